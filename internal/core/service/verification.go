package service

import (
	"context"
	"strings"

	"github.com/nexus-app/marketplace/internal/core/domain"
	"github.com/nexus-app/marketplace/internal/core/ports"
)

// abnWeights are the published ABN checksum weights.
var abnWeights = [11]int{10, 1, 3, 5, 7, 9, 11, 13, 15, 17, 19}

// ValidABN reports whether abn (spaces allowed) is 11 digits and passes the
// modulus-89 checksum.
func ValidABN(abn string) bool {
	abn = strings.ReplaceAll(abn, " ", "")
	if len(abn) != len(abnWeights) {
		return false
	}
	sum := 0
	for i, r := range abn {
		if r < '0' || r > '9' {
			return false
		}
		d := int(r - '0')
		if i == 0 {
			d--
		}
		sum += d * abnWeights[i]
	}
	return sum%89 == 0
}

// AbnVerification gates business registrations. With Stub set every ABN passes.
type AbnVerification struct {
	Stub bool
}

func (v AbnVerification) Verify(_ context.Context, reg domain.Registration) (bool, error) {
	if v.Stub {
		return true, nil
	}
	return ValidABN(reg.ABN), nil
}

func (AbnVerification) FailureReason() string {
	return "failed to verify your ABN, please check your details"
}

// IdentityVerification gates service provider registrations. With Stub set
// every identity passes.
type IdentityVerification struct {
	Stub bool
}

// TODO: replace the offline field check with the identity provider lookup once
// provider credentials are issued.
func (v IdentityVerification) Verify(_ context.Context, reg domain.Registration) (bool, error) {
	if v.Stub {
		return true, nil
	}
	for _, f := range []string{reg.FirstName, reg.LastName, reg.Address} {
		if strings.TrimSpace(f) == "" {
			return false, nil
		}
	}
	return true, nil
}

func (IdentityVerification) FailureReason() string {
	return "failed to verify your identity, please check your details"
}

// NewVerificationStrategies returns the strategy for every account kind.
func NewVerificationStrategies(stub bool) map[domain.AccountKind]ports.VerificationStrategy {
	return map[domain.AccountKind]ports.VerificationStrategy{
		domain.KindBusiness:        AbnVerification{Stub: stub},
		domain.KindServiceProvider: IdentityVerification{Stub: stub},
	}
}
