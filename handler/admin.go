package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/JoaoGrandizoli/calculadora-consorcio-contrato-v4/config"
	"github.com/JoaoGrandizoli/calculadora-consorcio-contrato-v4/middleware"
	"github.com/JoaoGrandizoli/calculadora-consorcio-contrato-v4/service"
	"github.com/gin-gonic/gin"
)

type AdminHandler struct {
	gate    *service.AdminGate
	fetcher service.CandidateLister
	config  *config.AdminConfig
}

func NewAdminHandler(gate *service.AdminGate, fetcher service.CandidateLister, cfg *config.AdminConfig) *AdminHandler {
	return &AdminHandler{
		gate:    gate,
		fetcher: fetcher,
		config:  cfg,
	}
}

// Enter records admin route intent. A session still marked authenticated in
// the store resumes directly and gets a fresh token; otherwise the UI must
// collect a password.
func (h *AdminHandler) Enter(c *gin.Context) {
	state := h.gate.EnterRoute()

	resp := gin.H{"state": state}
	if state == service.GateAuthenticated {
		token, expiresAt, err := middleware.GenerateAdminToken(h.config)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
			return
		}
		resp["token"] = token
		resp["expires_at"] = expiresAt.Format(time.RFC3339)
	}

	c.JSON(http.StatusOK, resp)
}

type adminLoginRequest struct {
	Password string `json:"password" binding:"required"`
}

// Login checks the admin password and, on success, persists the
// authenticated session and returns a token for the admin routes.
func (h *AdminHandler) Login(c *gin.Context) {
	var req adminLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if err := h.gate.SubmitPassword(req.Password); err != nil {
		if errors.Is(err, service.ErrRouteIntentRequired) {
			c.JSON(http.StatusForbidden, gin.H{"error": "Admin route not entered"})
			return
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid password"})
		return
	}

	token, expiresAt, err := middleware.GenerateAdminToken(h.config)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"state":      service.GateAuthenticated,
		"token":      token,
		"expires_at": expiresAt.Format(time.RFC3339),
	})
}

// Leave drops route intent without touching the persisted authentication.
func (h *AdminHandler) Leave(c *gin.Context) {
	h.gate.LeaveRoute()
	c.JSON(http.StatusOK, gin.H{"state": service.GateAnonymous})
}

// Logout clears the persisted admin session entirely.
func (h *AdminHandler) Logout(c *gin.Context) {
	h.gate.Logout()
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// Leads lists the backend's lead records for the admin panel.
func (h *AdminHandler) Leads(c *gin.Context) {
	leads, err := h.fetcher.ListCandidates(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to fetch leads"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"leads": leads, "count": len(leads)})
}
