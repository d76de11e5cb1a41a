package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/JoaoGrandizoli/calculadora-consorcio-contrato-v4/config"
	"github.com/JoaoGrandizoli/calculadora-consorcio-contrato-v4/model"
	"github.com/JoaoGrandizoli/calculadora-consorcio-contrato-v4/pkg/logger"
	"github.com/google/uuid"
)

// FlowState is the reconciliation state machine's current position.
type FlowState string

const (
	StateIdle      FlowState = "idle"
	StatePolling   FlowState = "polling"
	StateConfirmed FlowState = "confirmed"
	StateDegraded  FlowState = "degraded"
)

// Reconciler drives bounded, backoff-spaced polling attempts against the
// fetcher+scorer pipeline until a confident match is validated, or the
// attempt budget is exhausted and a fallback grant is issued. At most one
// run is active; starting a new run cancels the previous one and discards
// its eventual result.
type Reconciler struct {
	cfg       *config.ReconcileConfig
	fetcher   CandidateLister
	scorer    Scorer
	validator CredentialConfirmer
	store     *CredentialStore
	denylist  model.Denylist
	issuer    *FallbackIssuer

	mu     sync.Mutex
	state  FlowState
	cancel context.CancelFunc
	gen    int
	done   chan struct{}
}

func NewReconciler(cfg *config.ReconcileConfig, fetcher CandidateLister, scorer Scorer, validator CredentialConfirmer, store *CredentialStore, denylist model.Denylist) *Reconciler {
	return &Reconciler{
		cfg:       cfg,
		fetcher:   fetcher,
		scorer:    scorer,
		validator: validator,
		store:     store,
		denylist:  denylist,
		issuer:    NewFallbackIssuer(),
		state:     StateIdle,
	}
}

// Start begins a reconciliation run for the given fingerprint. The run is
// detached from any request lifetime; it ends in Confirmed or Degraded
// unless a newer run replaces it first.
func (r *Reconciler) Start(fp model.SubmissionFingerprint) {
	ctx, cancel := context.WithCancel(context.Background())

	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
	}
	r.cancel = cancel
	r.gen++
	gen := r.gen
	r.state = StatePolling
	done := make(chan struct{})
	r.done = done
	r.mu.Unlock()

	go r.run(ctx, fp, gen, done)
}

// Cancel stops any in-flight run and returns the machine to Idle.
func (r *Reconciler) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	r.state = StateIdle
}

// Status reports the current flow state and the persisted grant, if any.
func (r *Reconciler) Status() (FlowState, *model.AccessGrant) {
	r.mu.Lock()
	state := r.state
	r.mu.Unlock()
	return state, r.store.LoadGrant()
}

func (r *Reconciler) run(ctx context.Context, fp model.SubmissionFingerprint, gen int, done chan struct{}) {
	defer close(done)

	ctx = context.WithValue(ctx, logger.FlowIDKey, uuid.New().String())
	logger.Info(ctx, "reconciliation started",
		"has_email", fp.Email != "",
		"submitted_at", fp.SubmittedAt,
	)

	// A fresh confirmed grant for the same identity short-circuits the run;
	// re-running reconciliation must never downgrade it.
	if existing := r.store.LoadGrant(); existing != nil && existing.Verified() {
		if fp.Email == "" || strings.EqualFold(existing.HolderEmail, fp.Email) {
			logger.Info(ctx, "existing confirmed grant reused", "holder", existing.HolderName)
			r.settle(gen, StateConfirmed)
			return
		}
	}

	for attempt := 1; attempt <= r.cfg.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return
		}

		actx := context.WithValue(ctx, logger.AttemptKey, attempt)
		if grant := r.attempt(actx, fp, attempt); grant != nil {
			r.store.SaveGrant(grant)
			logger.Info(actx, "access granted",
				"holder", grant.HolderName,
				"provenance", grant.Provenance,
			)
			r.settle(gen, StateConfirmed)
			return
		}

		if attempt == r.cfg.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(r.cfg.Backoff(attempt)):
		}
	}

	// Attempt budget spent. The user is never left blocked: issue a local,
	// clearly-marked grant instead, unless a confirmed one appeared
	// meanwhile.
	if existing := r.store.LoadGrant(); existing != nil && existing.Verified() {
		r.settle(gen, StateConfirmed)
		return
	}

	grant := r.issuer.IssueFallback()
	r.store.SaveGrant(grant)
	logger.Warn(ctx, "reconciliation exhausted, fallback grant issued",
		"attempts", r.cfg.MaxAttempts,
	)
	r.settle(gen, StateDegraded)
}

// attempt runs one fetch→score→validate pass under the per-attempt
// deadline. Any failure counts as "no match this attempt".
func (r *Reconciler) attempt(ctx context.Context, fp model.SubmissionFingerprint, attempt int) *model.AccessGrant {
	actx, cancel := context.WithTimeout(ctx, r.cfg.AttemptTimeout())
	defer cancel()

	candidates, err := r.fetcher.ListCandidates(actx)
	if err != nil {
		logger.Warn(ctx, "lead fetch failed", "error", err)
		return nil
	}

	candidate := r.scorer.SelectBest(candidates, fp, time.Now(), attempt)
	if candidate == nil {
		logger.Debug(ctx, "no plausible candidate", "candidates", len(candidates))
		return nil
	}

	conf, err := r.validator.Confirm(actx, candidate.AccessToken)
	if err != nil {
		logger.Warn(ctx, "credential validation failed", "error", err)
		return nil
	}
	if !conf.Valid {
		logger.Info(ctx, "candidate rejected by validator", "lead_id", candidate.ID)
		return nil
	}
	if r.denylist.DeniesName(conf.HolderName) || r.denylist.DegradedCredential(candidate.AccessToken) {
		logger.Info(ctx, "candidate rejected as test record", "lead_id", candidate.ID)
		return nil
	}

	holderName := conf.HolderName
	if holderName == "" {
		holderName = candidate.Name
	}
	issuedAt := conf.IssuedAt
	if issuedAt.IsZero() {
		issuedAt = candidate.CreatedAt
	}

	return &model.AccessGrant{
		Credential:  candidate.AccessToken,
		HolderName:  holderName,
		HolderEmail: candidate.Email,
		IssuedAt:    issuedAt,
		Provenance:  model.ProvenanceConfirmed,
	}
}

// settle records a terminal state, unless a newer run has taken over.
func (r *Reconciler) settle(gen int, state FlowState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.gen != gen {
		return
	}
	r.state = state
	r.cancel = nil
}
