// Package types provides common type definitions for the giveaway service.
package types

import (
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// ZeroAddress is the native-asset sentinel token address.
const ZeroAddress = "0x0000000000000000000000000000000000000000"

var (
	addressPattern = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)
	txHashPattern  = regexp.MustCompile(`^0x[a-fA-F0-9]{64}$`)
	decimalPattern = regexp.MustCompile(`^[0-9]+$`)
)

// IsValidAddress reports whether s is a standard 20-byte hex address.
func IsValidAddress(s string) bool {
	return addressPattern.MatchString(s)
}

// IsValidTxHash reports whether s is a 32-byte hex transaction hash.
func IsValidTxHash(s string) bool {
	return txHashPattern.MatchString(s)
}

// maxUint256 bounds decimal giveaway identifiers.
var maxUint256 = new(big.Int).Lsh(big.NewInt(1), 256)

// ParseGiveawayID converts a giveaway identifier into its on-chain 256-bit
// integer form. Two textual encodings are accepted: a hyphenated UUID whose
// 32 hex digits are reinterpreted as an unsigned integer, and a plain decimal
// string. This is the single canonical conversion used by every component
// that crosses the on-chain/off-chain boundary.
func ParseGiveawayID(id string) (*big.Int, error) {
	if id == "" {
		return nil, fmt.Errorf("empty giveaway id")
	}

	if strings.Contains(id, "-") {
		u, err := uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("invalid giveaway id %q: %w", id, err)
		}
		return new(big.Int).SetBytes(u[:]), nil
	}

	if !decimalPattern.MatchString(id) {
		return nil, fmt.Errorf("invalid giveaway id %q: not a UUID or decimal string", id)
	}

	n, ok := new(big.Int).SetString(id, 10)
	if !ok || n.Cmp(maxUint256) >= 0 {
		return nil, fmt.Errorf("invalid giveaway id %q: out of uint256 range", id)
	}
	return n, nil
}

// GiveawayIDToUUID maps the on-chain integer form back to the hyphenated
// 8-4-4-4-12 UUID form. Values above 128 bits cannot originate from a UUID
// and are rejected.
func GiveawayIDToUUID(n *big.Int) (string, error) {
	if n == nil || n.Sign() < 0 || n.BitLen() > 128 {
		return "", fmt.Errorf("giveaway id out of uuid range")
	}

	var buf [16]byte
	n.FillBytes(buf[:])

	u, err := uuid.FromBytes(buf[:])
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

// CanonicalGiveawayID normalizes either accepted encoding to the hyphenated
// UUID form used as the ledger key.
func CanonicalGiveawayID(id string) (string, error) {
	n, err := ParseGiveawayID(id)
	if err != nil {
		return "", err
	}
	return GiveawayIDToUUID(n)
}

// GiveawayStatus holds contract-derived state for a giveaway. It is computed
// at read time and never persisted.
type GiveawayStatus struct {
	IsActive     bool   `json:"isActive"`
	ClaimedCount uint64 `json:"claimedCount"`
}

// Profile is a social-graph profile for a FID.
type Profile struct {
	FID               uint64
	Username          string
	AvatarURL         string
	CustodyAddress    string
	VerifiedAddresses []string
}

// DisplayName returns the ledger display name for a profile, or the
// deterministic placeholder when no profile is available.
func DisplayName(p *Profile, fid uint64) string {
	if p != nil && p.Username != "" {
		return "@" + p.Username
	}
	return fmt.Sprintf("FID: %d", fid)
}

// ServiceError represents a structured error response.
type ServiceError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *ServiceError) Error() string {
	return e.Message
}
