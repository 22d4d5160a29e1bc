package uploads

import (
	"context"
	"io"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/clipstage/backend/internal/events"
	"github.com/clipstage/backend/internal/platform"
	"github.com/clipstage/backend/internal/readiness"
	"github.com/clipstage/backend/pkg/response"
)

// SessionCreator provisions one-shot upload sessions.
type SessionCreator interface {
	CreateDirectUpload(ctx context.Context, req platform.DirectUploadRequest) (platform.DirectUpload, error)
}

// Watcher polls the uploaded video until it becomes playable.
type Watcher interface {
	Watch(ctx context.Context, uid string) readiness.Outcome
}

// Broadcaster pushes progress events to connected studio clients.
type Broadcaster interface {
	Broadcast(channel, event string, payload interface{})
}

// Options are the account-level upload session parameters.
type Options struct {
	MaxDurationSeconds int
	AllowedOrigins     []string
	RequireSignedURLs  bool
}

// Handler handles the upload HTTP endpoint: provision a session, push the
// blob, watch readiness in the background.
type Handler struct {
	gw        SessionCreator
	transport *Transport
	watcher   Watcher
	hub       Broadcaster
	opts      Options
	watchCtx  context.Context
	logger    *zap.Logger
}

// NewHandler creates an uploads handler. watchCtx bounds the background
// readiness watches: when the server shuts down, pending polls are canceled
// rather than left to fire against a torn-down process.
func NewHandler(gw SessionCreator, transport *Transport, watcher Watcher, hub Broadcaster, opts Options, watchCtx context.Context, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if watchCtx == nil {
		watchCtx = context.Background()
	}
	return &Handler{
		gw:        gw,
		transport: transport,
		watcher:   watcher,
		hub:       hub,
		opts:      opts,
		watchCtx:  watchCtx,
		logger:    logger,
	}
}

// Upload handles POST /videos/upload. Multipart form: "file" is the finished
// recording, "name" an optional display name.
func (h *Handler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "recording file is required")
		return
	}
	name := c.PostForm("name")

	f, err := fileHeader.Open()
	if err != nil {
		response.BadRequest(c, "could not read recording file")
		return
	}
	defer f.Close()
	payload, err := io.ReadAll(f)
	if err != nil {
		response.BadRequest(c, "could not read recording file")
		return
	}

	session, err := h.gw.CreateDirectUpload(c.Request.Context(), platform.DirectUploadRequest{
		MaxDurationSeconds: h.opts.MaxDurationSeconds,
		AllowedOrigins:     h.opts.AllowedOrigins,
		RequireSignedURLs:  h.opts.RequireSignedURLs,
		Meta:               platform.Meta{Name: name},
	})
	if err != nil {
		h.logger.Error("create upload session failed", zap.Error(err))
		response.Error(c, err)
		return
	}

	progress := func(percent int) {
		if h.hub != nil {
			h.hub.Broadcast(events.ChannelStudio, events.EventUploadProgress, gin.H{
				"uid":     session.UID,
				"percent": percent,
			})
		}
	}
	if err := h.transport.Upload(c.Request.Context(), session.UploadURL, name, payload, progress); err != nil {
		h.logger.Error("upload failed", zap.String("uid", session.UID), zap.Error(err))
		if h.hub != nil {
			h.hub.Broadcast(events.ChannelStudio, events.EventUploadFailed, gin.H{
				"uid":   session.UID,
				"error": err.Error(),
			})
		}
		response.Error(c, err)
		return
	}
	if h.hub != nil {
		h.hub.Broadcast(events.ChannelStudio, events.EventUploadDone, gin.H{"uid": session.UID})
	}

	if h.watcher != nil {
		go func(uid string) {
			outcome := h.watcher.Watch(h.watchCtx, uid)
			if outcome == readiness.OutcomeReady && h.hub != nil {
				h.hub.Broadcast(events.ChannelStudio, events.EventVideoReady, gin.H{"uid": uid})
			}
		}(session.UID)
	}

	response.Created(c, gin.H{"uid": session.UID})
}
