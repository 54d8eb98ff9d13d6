// Package entity holds the projected records and their canonical key formulas.
// Every entity type is keyed by exactly one function in this file.
package entity

import (
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// SingletonID keys global statistics records.
const SingletonID = "singleton"

// AddressKey is the lowercase 0x-prefixed hex form used in every address-derived key.
func AddressKey(a common.Address) string {
	return strings.ToLower(a.Hex())
}

func join(parts ...string) string {
	return strings.Join(parts, "-")
}

func VaultID(vault common.Address) string {
	return AddressKey(vault)
}

func VaultUserID(vault, user common.Address) string {
	return join(AddressKey(vault), AddressKey(user))
}

// RequestID keys two-phase deposit and withdrawal records.
func RequestID(vault common.Address, requestID *big.Int) string {
	return join(AddressKey(vault), requestID.String())
}

// EventID keys records created once per log.
func EventID(txHash common.Hash, logIndex uint) string {
	return join(strings.ToLower(txHash.Hex()), strconv.FormatUint(uint64(logIndex), 10))
}

// VaultInfoID keys per-timestamp vault chart rows. Writers in the same second update one row.
func VaultInfoID(vault common.Address, timestamp uint64) string {
	return join(AddressKey(vault), strconv.FormatUint(timestamp, 10))
}

func HolderID(holder common.Address) string {
	return AddressKey(holder)
}

func CaveUserID(user common.Address) string {
	return AddressKey(user)
}

func CompetitionID(competition common.Address) string {
	return AddressKey(competition)
}

func BetID(competition common.Address, betID *big.Int) string {
	return join(AddressKey(competition), betID.String())
}

func MatchedBetID(competition common.Address, betID *big.Int, index int) string {
	return join(AddressKey(competition), betID.String(), strconv.Itoa(index))
}

func BombID(bomb common.Address, run *big.Int) string {
	return join(AddressKey(bomb), run.String())
}
