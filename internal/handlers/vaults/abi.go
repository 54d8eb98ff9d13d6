package vaults

// scrubVaultABI covers the two-phase deposit vault.
const scrubVaultABI = `[
  {"type":"event","name":"VaultInitialized","anonymous":false,"inputs":[
    {"name":"vault","type":"address","indexed":true},
    {"name":"stablecoin","type":"address","indexed":false},
    {"name":"strategy","type":"address","indexed":false},
    {"name":"shareToken","type":"address","indexed":false},
    {"name":"treasury","type":"address","indexed":false},
    {"name":"initialShareValue","type":"uint256","indexed":false}]},
  {"type":"event","name":"DepositRequested","anonymous":false,"inputs":[
    {"name":"depositId","type":"uint256","indexed":true},
    {"name":"user","type":"address","indexed":true},
    {"name":"amount","type":"uint256","indexed":false},
    {"name":"fee","type":"uint256","indexed":false},
    {"name":"timestamp","type":"uint256","indexed":false}]},
  {"type":"event","name":"DepositProcessed","anonymous":false,"inputs":[
    {"name":"depositId","type":"uint256","indexed":true},
    {"name":"user","type":"address","indexed":true},
    {"name":"usdAmount","type":"uint256","indexed":false},
    {"name":"sharesMinted","type":"uint256","indexed":false},
    {"name":"timestamp","type":"uint256","indexed":false}]},
  {"type":"event","name":"WithdrawalRequested","anonymous":false,"inputs":[
    {"name":"withdrawalId","type":"uint256","indexed":true},
    {"name":"user","type":"address","indexed":true},
    {"name":"shares","type":"uint256","indexed":false},
    {"name":"shareValueAtRequest","type":"uint256","indexed":false},
    {"name":"expectedUsdAmount","type":"uint256","indexed":false},
    {"name":"timestamp","type":"uint256","indexed":false},
    {"name":"canBeApprovedAt","type":"uint256","indexed":false}]},
  {"type":"event","name":"WithdrawalProcessed","anonymous":false,"inputs":[
    {"name":"withdrawalId","type":"uint256","indexed":true},
    {"name":"user","type":"address","indexed":true},
    {"name":"shares","type":"uint256","indexed":false},
    {"name":"shareValueAtProcessing","type":"uint256","indexed":false},
    {"name":"usdAmount","type":"uint256","indexed":false},
    {"name":"fee","type":"uint256","indexed":false},
    {"name":"timestamp","type":"uint256","indexed":false}]},
  {"type":"event","name":"RewardDistributed","anonymous":false,"inputs":[
    {"name":"rewardAmount","type":"int256","indexed":false},
    {"name":"newShareValue","type":"uint256","indexed":false},
    {"name":"newTotalVaultValue","type":"uint256","indexed":false}]},
  {"type":"event","name":"DepositFeeUpdated","anonymous":false,"inputs":[
    {"name":"oldFee","type":"uint256","indexed":false},
    {"name":"newFee","type":"uint256","indexed":false}]},
  {"type":"event","name":"WithdrawalFeeUpdated","anonymous":false,"inputs":[
    {"name":"oldFee","type":"uint256","indexed":false},
    {"name":"newFee","type":"uint256","indexed":false}]},
  {"type":"event","name":"MinDepositUpdated","anonymous":false,"inputs":[
    {"name":"oldMin","type":"uint256","indexed":false},
    {"name":"newMin","type":"uint256","indexed":false}]},
  {"type":"event","name":"MinWithdrawalSharesUpdated","anonymous":false,"inputs":[
    {"name":"oldMin","type":"uint256","indexed":false},
    {"name":"newMin","type":"uint256","indexed":false}]},
  {"type":"function","name":"depositFee","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"withdrawalFee","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"minDeposit","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"minWithdrawalShares","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"shareValue","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]}
]`

// autoCompounderABI covers the instant deposit vaults spawned by the aggregator.
const autoCompounderABI = `[
  {"type":"event","name":"Deposit","anonymous":false,"inputs":[
    {"name":"user","type":"address","indexed":true},
    {"name":"amount","type":"uint256","indexed":false},
    {"name":"shares","type":"uint256","indexed":false}]},
  {"type":"event","name":"Withdraw","anonymous":false,"inputs":[
    {"name":"user","type":"address","indexed":true},
    {"name":"amount","type":"uint256","indexed":false},
    {"name":"shares","type":"uint256","indexed":false}]},
  {"type":"event","name":"Compound","anonymous":false,"inputs":[
    {"name":"timestamp","type":"uint256","indexed":false}]},
  {"type":"function","name":"deposited","stateMutability":"view","inputs":[{"name":"user","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"withdrawn","stateMutability":"view","inputs":[{"name":"user","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"totalSupply","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"totalCollateral","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]}
]`

// hoverABI covers wind-and-check vaults.
const hoverABI = `[
  {"type":"event","name":"Deposit","anonymous":false,"inputs":[
    {"name":"user","type":"address","indexed":true},
    {"name":"amount","type":"uint256","indexed":false}]},
  {"type":"event","name":"Withdraw","anonymous":false,"inputs":[
    {"name":"user","type":"address","indexed":true},
    {"name":"amount","type":"uint256","indexed":false}]},
  {"type":"event","name":"RewardDistribution","anonymous":false,"inputs":[
    {"name":"amount","type":"uint256","indexed":false},
    {"name":"apy","type":"uint256","indexed":false}]}
]`

// aggregatorABI covers the factory that announces new vaults.
const aggregatorABI = `[
  {"type":"event","name":"NewVault","anonymous":false,"inputs":[
    {"name":"vault","type":"address","indexed":true},
    {"name":"underlying","type":"address","indexed":false},
    {"name":"decimals","type":"uint8","indexed":false},
    {"name":"tokenName","type":"string","indexed":false}]},
  {"type":"event","name":"UpdateVault","anonymous":false,"inputs":[
    {"name":"vault","type":"address","indexed":true},
    {"name":"apr","type":"uint256","indexed":false},
    {"name":"tvl","type":"uint256","indexed":false},
    {"name":"totalSupplied","type":"uint256","indexed":false},
    {"name":"totalBorrowed","type":"uint256","indexed":false},
    {"name":"totalBorrowable","type":"uint256","indexed":false},
    {"name":"lastCompounTime","type":"uint256","indexed":false}]}
]`
