package service

import (
	"context"
	"strings"

	"github.com/AyuTriphasari/baget/internal/logging"
)

// Verifier checks that a wallet address actually belongs to a FID before any
// authorization is signed. It fails closed: a social-graph outage yields
// "not verified", never a pass.
type Verifier struct {
	profiles ProfileResolver
	logger   *logging.Logger
}

// NewVerifier creates an ownership verifier.
func NewVerifier(profiles ProfileResolver, logger *logging.Logger) *Verifier {
	return &Verifier{
		profiles: profiles,
		logger:   logger.WithField("component", "verifier"),
	}
}

// VerifyOwnership reports whether address is the custody address or one of
// the verified addresses of fid. Comparison is case-insensitive since hex
// addresses arrive in mixed checksum casings.
func (v *Verifier) VerifyOwnership(ctx context.Context, fid uint64, address string) bool {
	profile, err := v.profiles.User(ctx, fid)
	if err != nil {
		v.logger.WithError(err).WithField("fid", fid).Warn("profile lookup failed, treating as not verified")
		return false
	}
	if profile == nil {
		v.logger.WithField("fid", fid).Warn("unknown fid, treating as not verified")
		return false
	}

	want := strings.ToLower(address)
	if strings.ToLower(profile.CustodyAddress) == want {
		return true
	}
	for _, verified := range profile.VerifiedAddresses {
		if strings.ToLower(verified) == want {
			return true
		}
	}

	return false
}
