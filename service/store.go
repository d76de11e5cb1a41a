package service

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	"github.com/JoaoGrandizoli/calculadora-consorcio-contrato-v4/config"
	"github.com/JoaoGrandizoli/calculadora-consorcio-contrato-v4/model"
	_ "github.com/mattn/go-sqlite3"
)

// Local key space. One key for the grant, two for the admin gate, nothing
// else is durable.
const (
	keyAccessGrant        = "access_grant"
	keyAdminRouteIntent   = "admin_route_intent"
	keyAdminAuthenticated = "admin_authenticated"
)

const createKVTable = `
	CREATE TABLE IF NOT EXISTS kv (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`

// CredentialStore is the durable local store shared by the lead flow and
// the admin gate. An unavailable store degrades to no-ops: loads report
// nothing present and saves are dropped, so callers fail safe to
// "not authenticated" instead of crashing.
type CredentialStore struct {
	db       *sql.DB
	grantTTL time.Duration
}

// NewCredentialStore opens (or creates) the SQLite file at cfg.Path.
func NewCredentialStore(cfg *config.StoreConfig, grantTTL time.Duration) *CredentialStore {
	db, err := sql.Open("sqlite3", cfg.Path)
	if err != nil {
		slog.Warn("credential store unavailable", "path", cfg.Path, "error", err)
		return &CredentialStore{grantTTL: grantTTL}
	}
	if _, err := db.Exec(createKVTable); err != nil {
		slog.Warn("credential store unavailable", "path", cfg.Path, "error", err)
		db.Close()
		return &CredentialStore{grantTTL: grantTTL}
	}
	return &CredentialStore{db: db, grantTTL: grantTTL}
}

// Available reports whether the backing database opened successfully.
func (s *CredentialStore) Available() bool {
	return s.db != nil
}

// Close releases the underlying database.
func (s *CredentialStore) Close() {
	if s.db != nil {
		s.db.Close()
	}
}

// SaveGrant persists the grant, replacing any previous one. Last write wins.
func (s *CredentialStore) SaveGrant(grant *model.AccessGrant) {
	data, err := json.Marshal(grant)
	if err != nil {
		slog.Warn("failed to encode access grant", "error", err)
		return
	}
	s.set(keyAccessGrant, string(data))
}

// LoadGrant returns the persisted grant, or nil when none exists. A grant
// older than the configured ceiling is expired on the spot: cleared from
// the store and reported absent, so no call ever reuses a stale credential.
func (s *CredentialStore) LoadGrant() *model.AccessGrant {
	raw, ok := s.get(keyAccessGrant)
	if !ok {
		return nil
	}

	var grant model.AccessGrant
	if err := json.Unmarshal([]byte(raw), &grant); err != nil {
		slog.Warn("discarding malformed stored grant", "error", err)
		s.del(keyAccessGrant)
		return nil
	}

	if grant.Expired(time.Now(), s.grantTTL) {
		slog.Info("stored grant expired",
			"issued_at", grant.IssuedAt,
			"provenance", grant.Provenance,
		)
		s.del(keyAccessGrant)
		return nil
	}

	return &grant
}

// ClearGrant removes the persisted grant.
func (s *CredentialStore) ClearGrant() {
	s.del(keyAccessGrant)
}

// SaveAdmin persists the admin gate state under its two logical keys.
func (s *CredentialStore) SaveAdmin(sess model.AdminSession) {
	s.set(keyAdminRouteIntent, strconv.FormatBool(sess.RouteIntent))
	s.set(keyAdminAuthenticated, strconv.FormatBool(sess.Authenticated))
}

// LoadAdmin returns the persisted admin gate state. Missing or malformed
// keys read as false.
func (s *CredentialStore) LoadAdmin() model.AdminSession {
	var sess model.AdminSession
	if raw, ok := s.get(keyAdminRouteIntent); ok {
		sess.RouteIntent, _ = strconv.ParseBool(raw)
	}
	if raw, ok := s.get(keyAdminAuthenticated); ok {
		sess.Authenticated, _ = strconv.ParseBool(raw)
	}
	return sess
}

// ClearAdmin removes both admin keys.
func (s *CredentialStore) ClearAdmin() {
	s.del(keyAdminRouteIntent)
	s.del(keyAdminAuthenticated)
}

func (s *CredentialStore) set(key, value string) {
	if s.db == nil {
		return
	}
	_, err := s.db.Exec(
		`INSERT INTO kv (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		slog.Warn("store write failed", "key", key, "error", err)
	}
}

func (s *CredentialStore) get(key string) (string, bool) {
	if s.db == nil {
		return "", false
	}
	var value string
	err := s.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false
	}
	if err != nil {
		slog.Warn("store read failed", "key", key, "error", err)
		return "", false
	}
	return value, true
}

func (s *CredentialStore) del(key string) {
	if s.db == nil {
		return
	}
	if _, err := s.db.Exec(`DELETE FROM kv WHERE key = ?`, key); err != nil {
		slog.Warn("store delete failed", "key", key, "error", err)
	}
}
