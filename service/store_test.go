package service

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/JoaoGrandizoli/calculadora-consorcio-contrato-v4/config"
	"github.com/JoaoGrandizoli/calculadora-consorcio-contrato-v4/model"
)

func newTestStore(t *testing.T) *CredentialStore {
	t.Helper()
	store := NewCredentialStore(&config.StoreConfig{
		Path: filepath.Join(t.TempDir(), "gateway.db"),
	}, 24*time.Hour)
	t.Cleanup(store.Close)
	if !store.Available() {
		t.Fatal("expected test store to be available")
	}
	return store
}

func TestStoreSaveLoadClearGrant(t *testing.T) {
	store := newTestStore(t)

	if store.LoadGrant() != nil {
		t.Fatal("expected no grant in fresh store")
	}

	grant := &model.AccessGrant{
		Credential:  "lead-1700000000-x7k2p9qlm",
		HolderName:  "Ana Silva",
		HolderEmail: "ana@x.com",
		IssuedAt:    time.Now(),
		Provenance:  model.ProvenanceConfirmed,
	}
	store.SaveGrant(grant)

	loaded := store.LoadGrant()
	if loaded == nil {
		t.Fatal("expected grant after save")
	}
	if loaded.Credential != grant.Credential {
		t.Errorf("expected credential %q, got %q", grant.Credential, loaded.Credential)
	}
	if loaded.Provenance != model.ProvenanceConfirmed {
		t.Errorf("expected confirmed provenance, got %q", loaded.Provenance)
	}

	store.ClearGrant()
	if store.LoadGrant() != nil {
		t.Error("expected no grant after clear")
	}
}

func TestStoreGrantReplacedLastWriteWins(t *testing.T) {
	store := newTestStore(t)

	store.SaveGrant(&model.AccessGrant{Credential: "lead-111-aaaaaaaaaaaaa", IssuedAt: time.Now()})
	store.SaveGrant(&model.AccessGrant{Credential: "lead-222-bbbbbbbbbbbbb", IssuedAt: time.Now()})

	loaded := store.LoadGrant()
	if loaded == nil || loaded.Credential != "lead-222-bbbbbbbbbbbbb" {
		t.Errorf("expected latest grant to win, got %+v", loaded)
	}
}

func TestStoreExpiredGrantClearedOnLoad(t *testing.T) {
	store := newTestStore(t)

	store.SaveGrant(&model.AccessGrant{
		Credential: "lead-1700000000-x7k2p9qlm",
		IssuedAt:   time.Now().Add(-25 * time.Hour),
		Provenance: model.ProvenanceConfirmed,
	})

	if store.LoadGrant() != nil {
		t.Fatal("expected expired grant to load as absent")
	}

	// The expired record is gone for good, not just filtered.
	if _, ok := store.get(keyAccessGrant); ok {
		t.Error("expected expired grant to be cleared from the store")
	}
}

func TestStoreAdminSession(t *testing.T) {
	store := newTestStore(t)

	sess := store.LoadAdmin()
	if sess.Authenticated || sess.RouteIntent {
		t.Fatal("expected empty admin session in fresh store")
	}

	store.SaveAdmin(model.AdminSession{Authenticated: true, RouteIntent: true})

	sess = store.LoadAdmin()
	if !sess.Authenticated || !sess.RouteIntent {
		t.Errorf("expected persisted admin session, got %+v", sess)
	}

	store.ClearAdmin()
	sess = store.LoadAdmin()
	if sess.Authenticated || sess.RouteIntent {
		t.Error("expected cleared admin session")
	}
}

func TestStoreAdminIndependentOfGrant(t *testing.T) {
	store := newTestStore(t)

	store.SaveGrant(&model.AccessGrant{Credential: "lead-111-aaaaaaaaaaaaa", IssuedAt: time.Now()})
	store.SaveAdmin(model.AdminSession{Authenticated: true, RouteIntent: true})

	store.ClearGrant()
	if !store.LoadAdmin().Authenticated {
		t.Error("clearing the grant must not touch the admin session")
	}

	store.SaveGrant(&model.AccessGrant{Credential: "lead-222-bbbbbbbbbbbbb", IssuedAt: time.Now()})
	store.ClearAdmin()
	if store.LoadGrant() == nil {
		t.Error("clearing the admin session must not touch the grant")
	}
}

func TestStoreUnavailableFailsSafe(t *testing.T) {
	// A directory that does not exist makes the sqlite open fail on first
	// exec; the store must degrade to no-ops, not crash.
	store := NewCredentialStore(&config.StoreConfig{
		Path: filepath.Join(t.TempDir(), "missing", "sub", "gateway.db"),
	}, 24*time.Hour)
	defer store.Close()

	if store.Available() {
		t.Skip("sqlite created the file despite missing parent directory")
	}

	store.SaveGrant(&model.AccessGrant{Credential: "lead-111-aaaaaaaaaaaaa", IssuedAt: time.Now()})
	if store.LoadGrant() != nil {
		t.Error("unavailable store must report no grant")
	}

	store.SaveAdmin(model.AdminSession{Authenticated: true})
	if store.LoadAdmin().Authenticated {
		t.Error("unavailable store must report no admin session")
	}

	// Clears are no-ops, not panics.
	store.ClearGrant()
	store.ClearAdmin()
}
