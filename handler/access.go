package handler

import (
	"io"
	"net/http"
	"time"

	"github.com/JoaoGrandizoli/calculadora-consorcio-contrato-v4/model"
	"github.com/JoaoGrandizoli/calculadora-consorcio-contrato-v4/service"
	"github.com/gin-gonic/gin"
)

type AccessHandler struct {
	reconciler *service.Reconciler
	simulator  *service.SimulatorService
	store      *service.CredentialStore
}

func NewAccessHandler(reconciler *service.Reconciler, simulator *service.SimulatorService, store *service.CredentialStore) *AccessHandler {
	return &AccessHandler{
		reconciler: reconciler,
		simulator:  simulator,
		store:      store,
	}
}

type submittedRequest struct {
	Email       string `json:"email"`
	SubmittedAt string `json:"submitted_at"`
}

// Submitted receives the form-submission event and starts a reconciliation
// run. The event carries no credential; discovery happens asynchronously
// and the UI polls Status for the outcome.
func (h *AccessHandler) Submitted(c *gin.Context) {
	var req submittedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	submittedAt := time.Now()
	if req.SubmittedAt != "" {
		if t, err := time.Parse(time.RFC3339, req.SubmittedAt); err == nil {
			submittedAt = t
		}
	}

	h.reconciler.Start(model.SubmissionFingerprint{
		Email:       req.Email,
		SubmittedAt: submittedAt,
	})

	c.JSON(http.StatusAccepted, gin.H{"state": service.StatePolling})
}

type statusResponse struct {
	State       service.FlowState `json:"state"`
	HasGrant    bool              `json:"has_grant"`
	Provenance  model.Provenance  `json:"provenance,omitempty"`
	HolderName  string            `json:"holder_name,omitempty"`
	HolderEmail string            `json:"holder_email,omitempty"`
	IssuedAt    string            `json:"issued_at,omitempty"`
}

// Status reports the flow state and grant metadata. The credential value
// itself is never echoed back.
func (h *AccessHandler) Status(c *gin.Context) {
	state, grant := h.reconciler.Status()

	resp := statusResponse{State: state}
	if grant != nil {
		resp.HasGrant = true
		resp.Provenance = grant.Provenance
		resp.HolderName = grant.HolderName
		resp.HolderEmail = grant.HolderEmail
		resp.IssuedAt = grant.IssuedAt.Format(time.RFC3339)
	}

	c.JSON(http.StatusOK, resp)
}

// Logout cancels any in-flight run and clears the persisted grant.
func (h *AccessHandler) Logout(c *gin.Context) {
	h.reconciler.Cancel()
	h.store.ClearGrant()
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// Simulate forwards a simulation request to the backend, gated by the
// current grant. Backend status and body pass through unchanged.
func (h *AccessHandler) Simulate(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	status, respBody, err := h.simulator.Simulate(c.Request.Context(), body)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Simulation backend unreachable"})
		return
	}

	c.Data(status, "application/json", respBody)
}

// SimulateDefaults proxies the backend's default simulation parameters.
func (h *AccessHandler) SimulateDefaults(c *gin.Context) {
	body, err := h.simulator.DefaultParameters(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Simulation backend unreachable"})
		return
	}

	c.Data(http.StatusOK, "application/json", body)
}
