package service

import (
	"strings"
	"time"

	"github.com/JoaoGrandizoli/calculadora-consorcio-contrato-v4/config"
	"github.com/JoaoGrandizoli/calculadora-consorcio-contrato-v4/model"
)

// Scorer narrows the raw lead list down to the record that corresponds to
// the just-submitted form, or nil when no candidate is plausible. It sits
// behind an interface so the heuristic can be swapped out (e.g. for a push
// channel from the backend) without touching the reconciler.
type Scorer interface {
	SelectBest(candidates []model.LeadCandidate, fp model.SubmissionFingerprint, now time.Time, attempt int) *model.LeadCandidate
}

// LeadScorer implements the two-rule matching heuristic: an email+time
// match wins outright; otherwise the most recent plausible record within a
// window that widens as attempts progress is the best available proxy,
// since the form provider gives no direct linkage.
type LeadScorer struct {
	cfg      *config.ReconcileConfig
	denylist model.Denylist
}

func NewLeadScorer(cfg *config.ReconcileConfig, denylist model.Denylist) *LeadScorer {
	return &LeadScorer{cfg: cfg, denylist: denylist}
}

// SelectBest applies the rules in strict priority order. Ties within a rule
// break toward the latest CreatedAt.
func (s *LeadScorer) SelectBest(candidates []model.LeadCandidate, fp model.SubmissionFingerprint, now time.Time, attempt int) *model.LeadCandidate {
	if fp.Email != "" {
		emailWindow := time.Duration(s.cfg.EmailWindowMinutes) * time.Minute
		if best := s.pickLatest(candidates, now, emailWindow, func(c *model.LeadCandidate) bool {
			return strings.EqualFold(c.Email, fp.Email) && model.WellFormed(c.AccessToken)
		}); best != nil {
			return best
		}
	}

	return s.pickLatest(candidates, now, s.recencyWindow(attempt), func(c *model.LeadCandidate) bool {
		return model.WellFormed(c.AccessToken)
	})
}

// RecencyWindow exposes the window used by the recency-only rule at the
// given attempt number. It is non-decreasing in attempt and stays inside
// the configured bounds.
func (s *LeadScorer) RecencyWindow(attempt int) time.Duration {
	return s.recencyWindow(attempt)
}

func (s *LeadScorer) recencyWindow(attempt int) time.Duration {
	minutes := attempt
	if minutes < s.cfg.RecencyMinMinutes {
		minutes = s.cfg.RecencyMinMinutes
	}
	if minutes > s.cfg.RecencyMaxMinutes {
		minutes = s.cfg.RecencyMaxMinutes
	}
	return time.Duration(minutes) * time.Minute
}

// pickLatest returns the newest candidate inside the trailing window that
// passes the extra filter and is not a seed/test record.
func (s *LeadScorer) pickLatest(candidates []model.LeadCandidate, now time.Time, window time.Duration, match func(*model.LeadCandidate) bool) *model.LeadCandidate {
	cutoff := now.Add(-window)

	var best *model.LeadCandidate
	for i := range candidates {
		c := &candidates[i]
		if c.CreatedAt.Before(cutoff) || c.CreatedAt.After(now) {
			continue
		}
		if s.denylist.DeniesName(c.Name) || s.denylist.DegradedCredential(c.AccessToken) {
			continue
		}
		if !match(c) {
			continue
		}
		if best == nil || c.CreatedAt.After(best.CreatedAt) {
			best = c
		}
	}
	return best
}
