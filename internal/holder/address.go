package holder

import (
	"regexp"
	"strings"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// Base58 alphabet, 32-44 characters: the shape of an encoded 32-byte key.
var addressShape = regexp.MustCompile(`^[1-9A-HJ-NP-Za-km-z]{32,44}$`)

// IsSolanaAddress reports whether s is a base58-encoded 32-byte Solana
// public key. Hex addresses of other chain families ("0x...") never match.
func IsSolanaAddress(s string) bool {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return false
	}
	if !addressShape.MatchString(s) {
		return false
	}
	raw, err := base58.Decode(s)
	return err == nil && len(raw) == 32
}

// IsOnCurve reports whether the address decodes to a point on the ed25519
// curve. Wallet keys are on-curve; program-derived addresses are not.
// Diagnostic only: off-curve owners are still queried.
func IsOnCurve(s string) bool {
	raw, err := base58.Decode(strings.TrimSpace(s))
	if err != nil || len(raw) != 32 {
		return false
	}
	_, err = new(edwards25519.Point).SetBytes(raw)
	return err == nil
}
