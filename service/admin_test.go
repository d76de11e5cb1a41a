package service

import (
	"errors"
	"testing"

	"github.com/JoaoGrandizoli/calculadora-consorcio-contrato-v4/config"
	"golang.org/x/crypto/bcrypt"
)

func TestPlainCheckerConstantTimeCompare(t *testing.T) {
	checker := &PlainChecker{secret: "s3cret"}

	if !checker.Check("s3cret") {
		t.Error("expected correct password to pass")
	}
	if checker.Check("wrong") {
		t.Error("expected wrong password to fail")
	}
	if checker.Check("") {
		t.Error("expected empty password to fail")
	}

	empty := &PlainChecker{}
	if empty.Check("") {
		t.Error("an unconfigured secret must reject everything")
	}
}

func TestBcryptChecker(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	checker := &BcryptChecker{hash: hash}
	if !checker.Check("s3cret") {
		t.Error("expected correct password to pass")
	}
	if checker.Check("wrong") {
		t.Error("expected wrong password to fail")
	}
}

func TestNewPasswordCheckerPrefersHash(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hashed"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	checker := NewPasswordChecker(&config.AdminConfig{
		Password:     "plain",
		PasswordHash: string(hash),
	})

	if !checker.Check("hashed") {
		t.Error("expected hash-based check to apply")
	}
	if checker.Check("plain") {
		t.Error("plaintext secret must be ignored when a hash is configured")
	}
}

func newTestGate(t *testing.T) (*AdminGate, *CredentialStore) {
	t.Helper()
	store := newTestStore(t)
	gate := NewAdminGate(&PlainChecker{secret: "s3cret"}, store)
	return gate, store
}

func TestAdminGateHappyPath(t *testing.T) {
	gate, store := newTestGate(t)

	if gate.State() != GateAnonymous {
		t.Fatalf("expected anonymous start, got %s", gate.State())
	}

	if state := gate.EnterRoute(); state != GateAwaitingPassword {
		t.Fatalf("expected awaiting password after route entry, got %s", state)
	}

	if err := gate.SubmitPassword("s3cret"); err != nil {
		t.Fatalf("expected password to pass: %v", err)
	}
	if !gate.IsAdmin() {
		t.Error("expected authenticated gate")
	}

	sess := store.LoadAdmin()
	if !sess.Authenticated || !sess.RouteIntent {
		t.Errorf("expected persisted authenticated session, got %+v", sess)
	}
}

func TestAdminGateWrongPasswordStaysAwaiting(t *testing.T) {
	gate, store := newTestGate(t)
	gate.EnterRoute()

	if err := gate.SubmitPassword("wrong"); !errors.Is(err, ErrInvalidPassword) {
		t.Fatalf("expected ErrInvalidPassword, got %v", err)
	}
	if gate.State() != GateAwaitingPassword {
		t.Errorf("expected gate to stay awaiting, got %s", gate.State())
	}
	if store.LoadAdmin().Authenticated {
		t.Error("failed check must not persist authentication")
	}

	// No lockout: a later correct attempt still succeeds.
	if err := gate.SubmitPassword("s3cret"); err != nil {
		t.Errorf("expected retry to succeed: %v", err)
	}
}

func TestAdminGatePasswordWithoutRouteIntent(t *testing.T) {
	gate, _ := newTestGate(t)

	if err := gate.SubmitPassword("s3cret"); !errors.Is(err, ErrRouteIntentRequired) {
		t.Errorf("expected ErrRouteIntentRequired, got %v", err)
	}
	if gate.IsAdmin() {
		t.Error("password without route intent must not authenticate")
	}
}

func TestAdminGateResumesPersistedSession(t *testing.T) {
	gate, store := newTestGate(t)
	gate.EnterRoute()
	if err := gate.SubmitPassword("s3cret"); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	// Cold start on the same store: a fresh gate is anonymous until the
	// admin route is entered again, then resumes without a password.
	fresh := NewAdminGate(&PlainChecker{secret: "s3cret"}, store)
	if fresh.State() != GateAnonymous {
		t.Fatalf("expected anonymous cold start, got %s", fresh.State())
	}
	if state := fresh.EnterRoute(); state != GateAuthenticated {
		t.Errorf("expected resumed session, got %s", state)
	}
}

func TestAdminGateLeaveKeepsPersistedAuth(t *testing.T) {
	gate, store := newTestGate(t)
	gate.EnterRoute()
	if err := gate.SubmitPassword("s3cret"); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	gate.LeaveRoute()
	if gate.State() != GateAnonymous {
		t.Errorf("expected anonymous after leaving, got %s", gate.State())
	}

	sess := store.LoadAdmin()
	if sess.RouteIntent {
		t.Error("expected route intent cleared on leave")
	}
	if !sess.Authenticated {
		t.Error("expected authenticated flag to survive leave")
	}

	if state := gate.EnterRoute(); state != GateAuthenticated {
		t.Errorf("expected re-entry to resume, got %s", state)
	}
}

func TestAdminGateLogoutClearsEverything(t *testing.T) {
	gate, store := newTestGate(t)
	gate.EnterRoute()
	if err := gate.SubmitPassword("s3cret"); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	gate.Logout()
	if gate.State() != GateAnonymous {
		t.Errorf("expected anonymous after logout, got %s", gate.State())
	}

	sess := store.LoadAdmin()
	if sess.Authenticated || sess.RouteIntent {
		t.Errorf("expected cleared session, got %+v", sess)
	}

	if state := gate.EnterRoute(); state != GateAwaitingPassword {
		t.Errorf("expected password required after logout, got %s", state)
	}
}

func TestAdminGateUnavailableStoreFailsSafe(t *testing.T) {
	store := &CredentialStore{} // no backing database
	gate := NewAdminGate(&PlainChecker{secret: "s3cret"}, store)

	if state := gate.EnterRoute(); state != GateAwaitingPassword {
		t.Errorf("unavailable store must read as not authenticated, got %s", state)
	}

	// Authentication still works for the in-memory session; it just will
	// not survive a restart.
	if err := gate.SubmitPassword("s3cret"); err != nil {
		t.Errorf("expected in-memory auth to succeed: %v", err)
	}
	if !gate.IsAdmin() {
		t.Error("expected authenticated gate")
	}
}
