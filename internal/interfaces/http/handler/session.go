package handler

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/3btraders/ims/internal/application/dashboard"
	"github.com/3btraders/ims/internal/domain/catalog"
	"github.com/3btraders/ims/internal/infrastructure/gateway"
	"github.com/3btraders/ims/internal/interfaces/http/dto"
)

// SessionGateway is the backend session the dashboard acts under.
type SessionGateway interface {
	Login(ctx context.Context, email, password string) error
	Register(ctx context.Context, fullname, email string, role gateway.Role, password string) (string, error)
	VerifyOTP(ctx context.Context, email, otp string) (string, error)
	Logout(ctx context.Context) error
	Authenticated() bool
	ExpiresAt() (time.Time, bool)
}

// CatalogReader provides the current catalog snapshot.
type CatalogReader interface {
	Snapshot() *catalog.Catalog
}

// CatalogRefresher refetches the catalog.
type CatalogRefresher interface {
	Refresh(ctx context.Context) (*catalog.Catalog, error)
}

// SessionHandler signs the dashboard in and out of the backend
type SessionHandler struct {
	BaseHandler
	session SessionGateway
	catalog CatalogRefresher
	store   *dashboard.Store
}

// NewSessionHandler creates a SessionHandler
func NewSessionHandler(session SessionGateway, catalog CatalogRefresher, store *dashboard.Store) *SessionHandler {
	return &SessionHandler{session: session, catalog: catalog, store: store}
}

func (h *SessionHandler) current(message string) dto.SessionResponse {
	resp := dto.SessionResponse{Authenticated: h.session.Authenticated(), Message: message}
	if exp, ok := h.session.ExpiresAt(); ok {
		resp.ExpiresAt = &exp
	}
	return resp
}

// Get reports whether a backend session is held
func (h *SessionHandler) Get(c *gin.Context) {
	h.Success(c, h.current(""))
}

// Login signs in and loads the catalog. A failed catalog load leaves the
// session in place and raises a notice.
func (h *SessionHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err)
		return
	}
	ctx := c.Request.Context()
	if err := h.session.Login(ctx, req.Email, req.Password); err != nil {
		h.store.Fail(ctx, err)
		h.HandleError(c, err)
		return
	}
	if _, err := h.catalog.Refresh(ctx); err != nil {
		h.store.Fail(ctx, err)
	}
	h.Success(c, h.current("Logged in"))
}

// Logout ends the backend session
func (h *SessionHandler) Logout(c *gin.Context) {
	ctx := c.Request.Context()
	if err := h.session.Logout(ctx); err != nil {
		err = fmt.Errorf("Logout failed: %w", err)
		h.store.Fail(ctx, err)
		h.HandleError(c, err)
		return
	}
	h.Success(c, h.current("Logged out"))
}

// Register creates an account; the backend emails an OTP
func (h *SessionHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err)
		return
	}
	msg, err := h.session.Register(c.Request.Context(), req.Fullname, req.Email, gateway.Role(req.Role), req.Password)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, h.current(msg))
}

// VerifyOTP confirms a registration
func (h *SessionHandler) VerifyOTP(c *gin.Context) {
	var req dto.VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err)
		return
	}
	msg, err := h.session.VerifyOTP(c.Request.Context(), req.Email, req.OTP)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, h.current(msg))
}
