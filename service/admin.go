package service

import (
	"crypto/subtle"
	"errors"
	"log/slog"
	"sync"

	"github.com/JoaoGrandizoli/calculadora-consorcio-contrato-v4/config"
	"github.com/JoaoGrandizoli/calculadora-consorcio-contrato-v4/model"
	"golang.org/x/crypto/bcrypt"
)

// GateState is the admin gate's position, independent of the lead flow.
type GateState string

const (
	GateAnonymous        GateState = "anonymous"
	GateAwaitingPassword GateState = "awaiting_password"
	GateAuthenticated    GateState = "authenticated"
)

var (
	// ErrRouteIntentRequired means a password arrived without the admin
	// route having been entered first.
	ErrRouteIntentRequired = errors.New("admin route intent required")
	// ErrInvalidPassword means the password check failed. There is no
	// retry-count limiting on top of it.
	ErrInvalidPassword = errors.New("invalid admin password")
)

// PasswordChecker is the capability behind the admin password check, so a
// future server-side, rate-limited implementation can be substituted.
type PasswordChecker interface {
	Check(candidate string) bool
}

// BcryptChecker compares against a bcrypt hash of the admin secret.
type BcryptChecker struct {
	hash []byte
}

func (c *BcryptChecker) Check(candidate string) bool {
	return bcrypt.CompareHashAndPassword(c.hash, []byte(candidate)) == nil
}

// PlainChecker compares against the configured secret in constant time.
type PlainChecker struct {
	secret string
}

func (c *PlainChecker) Check(candidate string) bool {
	if c.secret == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(c.secret), []byte(candidate)) == 1
}

// NewPasswordChecker prefers a configured hash over a plaintext secret.
func NewPasswordChecker(cfg *config.AdminConfig) PasswordChecker {
	if cfg.PasswordHash != "" {
		return &BcryptChecker{hash: []byte(cfg.PasswordHash)}
	}
	if cfg.Password == "" {
		slog.Warn("no admin password configured, admin gate disabled")
	}
	return &PlainChecker{secret: cfg.Password}
}

// AdminGate grants the elevated admin capability only when the route
// indicates admin intent and a password check succeeds. It shares the
// credential store with the lead flow but never produces a lead credential,
// only an is-admin flag.
type AdminGate struct {
	mu      sync.Mutex
	state   GateState
	checker PasswordChecker
	store   *CredentialStore
}

func NewAdminGate(checker PasswordChecker, store *CredentialStore) *AdminGate {
	return &AdminGate{
		state:   GateAnonymous,
		checker: checker,
		store:   store,
	}
}

// EnterRoute records admin intent. A previously authenticated session still
// marked in the store resumes directly; otherwise a password is required.
func (g *AdminGate) EnterRoute() GateState {
	g.mu.Lock()
	defer g.mu.Unlock()

	sess := g.store.LoadAdmin()
	sess.RouteIntent = true
	g.store.SaveAdmin(sess)

	if sess.Authenticated {
		g.state = GateAuthenticated
	} else {
		g.state = GateAwaitingPassword
	}
	return g.state
}

// SubmitPassword attempts to authenticate. On failure the gate stays in
// AwaitingPassword and the caller surfaces the error.
func (g *AdminGate) SubmitPassword(candidate string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	switch g.state {
	case GateAuthenticated:
		return nil
	case GateAnonymous:
		return ErrRouteIntentRequired
	}

	if !g.checker.Check(candidate) {
		return ErrInvalidPassword
	}

	g.store.SaveAdmin(model.AdminSession{Authenticated: true, RouteIntent: true})
	g.state = GateAuthenticated
	return nil
}

// LeaveRoute clears transient admin state. The persisted authenticated flag
// survives so a later EnterRoute can resume it.
func (g *AdminGate) LeaveRoute() {
	g.mu.Lock()
	defer g.mu.Unlock()

	sess := g.store.LoadAdmin()
	sess.RouteIntent = false
	g.store.SaveAdmin(sess)
	g.state = GateAnonymous
}

// Logout clears both the transient and persisted admin state.
func (g *AdminGate) Logout() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.store.ClearAdmin()
	g.state = GateAnonymous
}

// State returns the gate's current position.
func (g *AdminGate) State() GateState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// IsAdmin reports whether the elevated capability is currently granted.
func (g *AdminGate) IsAdmin() bool {
	return g.State() == GateAuthenticated
}
