package service

import (
	"time"

	"github.com/JoaoGrandizoli/calculadora-consorcio-contrato-v4/model"
	"github.com/google/uuid"
)

// FallbackIssuer synthesizes a local temporary credential when
// reconciliation cannot complete. The "fallback-" prefix marks the
// credential as degraded, so it can never be mistaken for a backend-issued
// token anywhere the deny-list is applied.
type FallbackIssuer struct{}

func NewFallbackIssuer() *FallbackIssuer {
	return &FallbackIssuer{}
}

// IssueFallback returns a grant with a unique synthetic credential and no
// holder identity. Availability over identity-accuracy: the user keeps
// access to the simulator, but nothing about them is verified.
func (i *FallbackIssuer) IssueFallback() *model.AccessGrant {
	return &model.AccessGrant{
		Credential: "fallback-" + uuid.New().String(),
		IssuedAt:   time.Now(),
		Provenance: model.ProvenanceFallback,
	}
}
