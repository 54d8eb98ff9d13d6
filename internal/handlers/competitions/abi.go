package competitions

const eventCenterABI = `[
  {"type":"event","name":"NewMatch","anonymous":false,"inputs":[{"name":"param0","type":"address","indexed":false}]},
  {"type":"event","name":"MatchAdded","anonymous":false,"inputs":[{"name":"param0","type":"address","indexed":false}]},
  {"type":"event","name":"MatchUpdated","anonymous":false,"inputs":[{"name":"param0","type":"address","indexed":false}]},
  {"type":"event","name":"UnmatchedBet","anonymous":false,"inputs":[{"name":"param0","type":"address","indexed":false}]},
  {"type":"event","name":"MatchedBet","anonymous":false,"inputs":[{"name":"param0","type":"address","indexed":false}]},
  {"type":"event","name":"CancelledBet","anonymous":false,"inputs":[{"name":"param0","type":"address","indexed":false}]},
  {"type":"event","name":"MatchClosed","anonymous":false,"inputs":[{"name":"param0","type":"address","indexed":false}]},
  {"type":"event","name":"MatchSettled","anonymous":false,"inputs":[{"name":"param0","type":"address","indexed":false}]},
  {"type":"function","name":"getCompetitionInfo","stateMutability":"view",
   "inputs":[{"name":"competition","type":"address"},{"name":"context","type":"address"}],
   "outputs":[{"name":"","type":"tuple","components":[
     {"name":"basicInfo","type":"tuple","components":[
       {"name":"id","type":"uint256"},
       {"name":"openStatus","type":"bool"},
       {"name":"host","type":"uint256"},
       {"name":"guest","type":"uint256"},
       {"name":"result","type":"uint256"},
       {"name":"currentBetId","type":"uint256"},
       {"name":"totalAmountMatchedEffective","type":"uint256"},
       {"name":"competitionPendingAmount","type":"uint256"},
       {"name":"outright","type":"bool"},
       {"name":"live","type":"bool"},
       {"name":"hidden","type":"bool"},
       {"name":"fee","type":"uint256"},
       {"name":"competitionsAddress","type":"address"},
       {"name":"startDate","type":"uint256"}]},
     {"name":"additionalInfo","type":"tuple","components":[
       {"name":"additionalHome","type":"string"},
       {"name":"additionalAway","type":"string"},
       {"name":"betType","type":"string"},
       {"name":"preview","type":"bool"}]},
     {"name":"bets","type":"tuple[]","components":[
       {"name":"id","type":"uint256"},
       {"name":"backUser","type":"address"},
       {"name":"team","type":"uint256"},
       {"name":"pendingAmount","type":"uint256"},
       {"name":"totalMatched","type":"uint256"},
       {"name":"odd","type":"uint256"},
       {"name":"effectiveOdd","type":"uint256"},
       {"name":"collateral","type":"uint256"},
       {"name":"settled","type":"bool"},
       {"name":"matchedBetsList","type":"tuple[]","components":[
         {"name":"layUser","type":"address"},
         {"name":"amount","type":"uint256"}]}]}]}]}
]`
