package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/JoaoGrandizoli/calculadora-consorcio-contrato-v4/config"
	"github.com/JoaoGrandizoli/calculadora-consorcio-contrato-v4/model"
)

// CandidateLister is the "list candidate records" collaborator contract.
type CandidateLister interface {
	ListCandidates(ctx context.Context) ([]model.LeadCandidate, error)
}

// LeadsService queries the backend for the lead records visible so far.
type LeadsService struct {
	config     *config.BackendConfig
	httpClient *http.Client
}

func NewLeadsService(cfg *config.BackendConfig) *LeadsService {
	return &LeadsService{
		config: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout(),
		},
	}
}

type leadsResponse struct {
	Leads []model.LeadCandidate `json:"leads"`
}

// ListCandidates fetches the full lead collection, most recent first.
// Any network or parse failure comes back as a single wrapped error; the
// reconciler treats it as "no match this attempt", never as fatal.
func (s *LeadsService) ListCandidates(ctx context.Context) ([]model.LeadCandidate, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.config.BaseURL+"/api/admin/leads", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if s.config.ServiceToken != "" {
		req.Header.Set("Authorization", "Bearer "+s.config.ServiceToken)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch leads: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read leads response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("leads endpoint returned status %d", resp.StatusCode)
	}

	var result leadsResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse leads response: %w", err)
	}

	return result.Leads, nil
}
