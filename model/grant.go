package model

import (
	"strings"
	"time"
)

// Provenance records how an access grant was obtained.
type Provenance string

const (
	// ProvenanceConfirmed means the credential was matched to a backend
	// lead record and validated server-side.
	ProvenanceConfirmed Provenance = "confirmed"
	// ProvenanceFallback means the credential was synthesized locally after
	// reconciliation exhausted its attempts. It carries no verified identity.
	ProvenanceFallback Provenance = "fallback"
)

// MinCredentialLen is the minimum length of a well-formed issued credential.
const MinCredentialLen = 20

// SubmissionFingerprint captures what the client knows at the moment the
// external form reports completion. It is never persisted.
type SubmissionFingerprint struct {
	Email       string    `json:"email,omitempty"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// LeadCandidate is one row from the backend's lead collection.
type LeadCandidate struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	AccessToken string    `json:"access_token"`
	CreatedAt   time.Time `json:"created_at"`
}

// AccessGrant is the resolved, persisted outcome of reconciliation.
type AccessGrant struct {
	Credential  string     `json:"credential"`
	HolderName  string     `json:"holder_name"`
	HolderEmail string     `json:"holder_email,omitempty"`
	IssuedAt    time.Time  `json:"issued_at"`
	Provenance  Provenance `json:"provenance"`
}

// Verified reports whether the grant represents server-confirmed identity.
// Fallback grants never do.
func (g *AccessGrant) Verified() bool {
	return g.Provenance == ProvenanceConfirmed
}

// Expired reports whether the grant has aged past the given ceiling.
func (g *AccessGrant) Expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(g.IssuedAt) > ttl
}

// AdminSession is the admin gate's persisted state. It shares the store
// with AccessGrant but not its identity semantics.
type AdminSession struct {
	Authenticated bool `json:"authenticated"`
	RouteIntent   bool `json:"route_intent"`
}

// Denylist recognizes seed/test records that coexist with real leads in the
// backend collection and must never be adopted as a genuine match.
type Denylist struct {
	Names    []string
	Prefixes []string
}

// DeniesName reports whether the holder name matches a known placeholder.
func (d Denylist) DeniesName(name string) bool {
	name = strings.TrimSpace(name)
	for _, n := range d.Names {
		if strings.EqualFold(name, n) {
			return true
		}
	}
	return false
}

// DegradedCredential reports whether the credential carries a reserved
// test/fallback prefix.
func (d Denylist) DegradedCredential(cred string) bool {
	for _, p := range d.Prefixes {
		if strings.HasPrefix(cred, p) {
			return true
		}
	}
	return false
}

// WellFormed reports whether a credential looks like a real issued token:
// structured, at least MinCredentialLen characters, with a separator.
func WellFormed(cred string) bool {
	return len(cred) >= MinCredentialLen && strings.Contains(cred, "-")
}
