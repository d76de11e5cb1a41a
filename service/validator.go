package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/JoaoGrandizoli/calculadora-consorcio-contrato-v4/config"
)

// Confirmation is the backend's answer to a credential check.
type Confirmation struct {
	Valid       bool      `json:"valid"`
	HolderName  string    `json:"name"`
	HolderEmail string    `json:"email"`
	IssuedAt    time.Time `json:"created_at"`
}

// CredentialConfirmer is the "validate credential" collaborator contract.
type CredentialConfirmer interface {
	Confirm(ctx context.Context, credential string) (*Confirmation, error)
}

// ValidatorService checks a credential against the backend.
type ValidatorService struct {
	config     *config.BackendConfig
	httpClient *http.Client
}

func NewValidatorService(cfg *config.BackendConfig) *ValidatorService {
	return &ValidatorService{
		config: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout(),
		},
	}
}

// Confirm asks the backend whether the credential is currently accepted.
func (s *ValidatorService) Confirm(ctx context.Context, credential string) (*Confirmation, error) {
	endpoint := fmt.Sprintf("%s/api/validar-token/%s", s.config.BaseURL, url.PathEscape(credential))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to validate credential: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read validation response: %w", err)
	}

	// The backend answers 404 for unknown credentials; that is a definitive
	// "not valid", not a transport failure.
	if resp.StatusCode == http.StatusNotFound {
		return &Confirmation{Valid: false}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("validation endpoint returned status %d", resp.StatusCode)
	}

	var result Confirmation
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse validation response: %w", err)
	}

	return &result, nil
}
