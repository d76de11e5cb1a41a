package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/JoaoGrandizoli/calculadora-consorcio-contrato-v4/config"
	"github.com/JoaoGrandizoli/calculadora-consorcio-contrato-v4/pkg/logger"
)

// SimulatorService forwards simulation requests to the backend, attaching
// the current access grant's credential as a bearer header. The financial
// mathematics all happen server-side; this service only gates the call.
type SimulatorService struct {
	config     *config.BackendConfig
	httpClient *http.Client
	store      *CredentialStore
}

func NewSimulatorService(cfg *config.BackendConfig, store *CredentialStore) *SimulatorService {
	return &SimulatorService{
		config: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout(),
		},
		store: store,
	}
}

// Simulate proxies the request body to the backend's simulation endpoint.
// A missing grant is logged but never blocks the call.
func (s *SimulatorService) Simulate(ctx context.Context, body []byte) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.BaseURL+"/api/simular", bytes.NewReader(body))
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	if grant := s.store.LoadGrant(); grant != nil {
		req.Header.Set("Authorization", "Bearer "+grant.Credential)
	} else {
		logger.Warn(ctx, "simulation requested without access grant")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to reach simulation backend: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read simulation response: %w", err)
	}

	return resp.StatusCode, respBody, nil
}

// DefaultParameters fetches the backend's default simulation parameters.
func (s *SimulatorService) DefaultParameters(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.config.BaseURL+"/api/parametros-padrao", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch default parameters: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("default parameters endpoint returned status %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}
