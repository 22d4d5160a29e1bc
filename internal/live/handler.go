package live

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/clipstage/backend/internal/platform"
	"github.com/clipstage/backend/pkg/response"
)

// ListGateway is the slice of the platform client the handler needs beyond
// the transport itself.
type ListGateway interface {
	ListLiveInputs(ctx context.Context) ([]platform.LiveInput, error)
	DeleteLiveInput(ctx context.Context, uid string) error
}

// Enricher fills embed/manifest URLs on a live input.
type Enricher interface {
	EnrichLiveInput(li *platform.LiveInput)
}

// Handler exposes the live session lifecycle over HTTP.
type Handler struct {
	transport *Transport
	gw        ListGateway
	enricher  Enricher
	logger    *zap.Logger
}

// NewHandler creates a live handler. enricher may be nil.
func NewHandler(transport *Transport, gw ListGateway, enricher Enricher, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{transport: transport, gw: gw, enricher: enricher, logger: logger}
}

// Start handles POST /live/start with JSON body {"name": "..."}.
func (h *Handler) Start(c *gin.Context) {
	var req struct {
		Name string `json:"name"`
	}
	_ = c.ShouldBindJSON(&req)

	li, err := h.transport.Start(c.Request.Context(), req.Name)
	if err != nil {
		h.logger.Error("live start failed", zap.Error(err))
		response.Error(c, err)
		return
	}
	if h.enricher != nil {
		h.enricher.EnrichLiveInput(&li)
	}
	response.Created(c, li)
}

// Stop handles POST /live/stop.
func (h *Handler) Stop(c *gin.Context) {
	if err := h.transport.Stop(c.Request.Context()); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"state": StateDisconnected})
}

// Pause handles POST /live/pause. The capture device is released before the
// response; the remote flag follows asynchronously.
func (h *Handler) Pause(c *gin.Context) {
	if err := h.transport.Pause(c.Request.Context()); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"state": StatePaused})
}

// Resume handles POST /live/resume.
func (h *Handler) Resume(c *gin.Context) {
	if err := h.transport.Resume(c.Request.Context()); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"state": h.transport.State()})
}

// Status handles GET /live/status: local state plus the platform's view of
// the live input (the reconciliation read for the optimistic pause).
func (h *Handler) Status(c *gin.Context) {
	state := h.transport.State()
	uid := h.transport.LiveInputUID()
	body := gin.H{"state": state, "live_input": nil}
	if uid != "" {
		li, err := h.transport.Status(c.Request.Context())
		if err != nil {
			h.logger.Warn("live input status fetch failed", zap.String("uid", uid), zap.Error(err))
		} else {
			if h.enricher != nil {
				h.enricher.EnrichLiveInput(&li)
			}
			body["live_input"] = li
		}
	}
	response.OK(c, body)
}

// List handles GET /live: all live inputs on the account.
func (h *Handler) List(c *gin.Context) {
	inputs, err := h.gw.ListLiveInputs(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	if h.enricher != nil {
		for i := range inputs {
			h.enricher.EnrichLiveInput(&inputs[i])
		}
	}
	response.OK(c, inputs)
}

// Delete handles DELETE /live/:id. Recordings the input produced persist.
func (h *Handler) Delete(c *gin.Context) {
	uid := c.Param("id")
	if uid == "" {
		response.BadRequest(c, "live input id is required")
		return
	}
	if err := h.gw.DeleteLiveInput(c.Request.Context(), uid); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
