package service

import (
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/sha3"
)

// keccak256 hashes the parts joined by "|".
func keccak256(parts ...string) []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(strings.Join(parts, "|")))
	return h.Sum(nil)
}

// settlementHash synthesizes a 32-byte transaction hash in 0x-hex form.
func settlementHash(parts ...string) string {
	return "0x" + hex.EncodeToString(keccak256(parts...))
}

// addressFromSeed derives an EVM-style address: the last 20 bytes of keccak256(seed).
func addressFromSeed(parts ...string) string {
	sum := keccak256(parts...)
	return "0x" + hex.EncodeToString(sum[12:])
}
