package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/3btraders/ims/internal/application/dashboard"
	"github.com/3btraders/ims/internal/domain/shared"
)

// StateHandler exposes the whole dashboard state and the notice banner
type StateHandler struct {
	BaseHandler
	store *dashboard.Store
}

// NewStateHandler creates a StateHandler
func NewStateHandler(store *dashboard.Store) *StateHandler {
	return &StateHandler{store: store}
}

// Get returns every page's state and the current notice
func (h *StateHandler) Get(c *gin.Context) {
	h.Success(c, h.store.State())
}

// DismissNotice clears the notice if it is still the one with the given id
func (h *StateHandler) DismissNotice(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		h.HandleError(c, shared.ErrInvalidInput.WithMessage("Notice id must be a number"))
		return
	}
	h.store.DismissNotice(id)
	h.Success(c, h.store.State())
}
