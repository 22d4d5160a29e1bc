package library

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/clipstage/backend/internal/platform"
	"github.com/clipstage/backend/pkg/queue"
	"github.com/clipstage/backend/pkg/response"
	"github.com/clipstage/backend/pkg/storage"
)

// VideoGateway is the per-video slice of the platform client.
type VideoGateway interface {
	Video(ctx context.Context, uid string) (platform.Video, error)
	DeleteVideo(ctx context.Context, uid string) error
	GenerateCaptions(ctx context.Context, uid, language string) error
	MP4DownloadURL(uid string) string
}

// Handler serves the video library and per-video operations. queue and s3
// are optional: without them the archive endpoints answer 503.
type Handler struct {
	agg      *Aggregator
	gw       VideoGateway
	enricher Enricher
	queue    *queue.Queue
	s3       *storage.S3
	language string
	logger   *zap.Logger
}

// NewHandler creates a library handler.
func NewHandler(agg *Aggregator, gw VideoGateway, enricher Enricher, q *queue.Queue, s3 *storage.S3, captionLanguage string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if captionLanguage == "" {
		captionLanguage = "en"
	}
	return &Handler{
		agg:      agg,
		gw:       gw,
		enricher: enricher,
		queue:    q,
		s3:       s3,
		language: captionLanguage,
		logger:   logger,
	}
}

// List handles GET /library. ?ready=true narrows to playable videos.
func (h *Handler) List(c *gin.Context) {
	videos, err := h.agg.Library(c.Request.Context())
	if err != nil {
		h.logger.Error("library fetch failed", zap.Error(err))
		response.Error(c, err)
		return
	}
	if ready, _ := strconv.ParseBool(c.Query("ready")); ready {
		filtered := videos[:0]
		for _, v := range videos {
			if v.Ready() {
				filtered = append(filtered, v)
			}
		}
		videos = filtered
	}
	response.OK(c, videos)
}

// Get handles GET /videos/:id with playback URLs filled in.
func (h *Handler) Get(c *gin.Context) {
	uid := c.Param("id")
	if uid == "" {
		response.BadRequest(c, "video id is required")
		return
	}
	video, err := h.gw.Video(c.Request.Context(), uid)
	if err != nil {
		response.Error(c, err)
		return
	}
	if h.enricher != nil {
		h.enricher.EnrichVideo(c.Request.Context(), &video)
	}
	response.OK(c, video)
}

// Delete handles DELETE /videos/:id.
func (h *Handler) Delete(c *gin.Context) {
	uid := c.Param("id")
	if uid == "" {
		response.BadRequest(c, "video id is required")
		return
	}
	if err := h.gw.DeleteVideo(c.Request.Context(), uid); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Captions handles POST /videos/:id/captions: ask the platform to generate
// captions in the configured language.
func (h *Handler) Captions(c *gin.Context) {
	uid := c.Param("id")
	if uid == "" {
		response.BadRequest(c, "video id is required")
		return
	}
	language := c.DefaultQuery("language", h.language)
	if err := h.gw.GenerateCaptions(c.Request.Context(), uid, language); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"uid": uid, "language": language})
}

// Archive handles POST /videos/:id/archive: enqueue an export of the ready
// video into the S3 archive bucket.
func (h *Handler) Archive(c *gin.Context) {
	if h.queue == nil {
		response.ServiceUnavailable(c, "archiving is not configured")
		return
	}
	uid := c.Param("id")
	if uid == "" {
		response.BadRequest(c, "video id is required")
		return
	}
	video, err := h.gw.Video(c.Request.Context(), uid)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !video.Ready() {
		response.Conflict(c, "video is not ready to archive")
		return
	}
	payload := queue.VideoArchivePayload{
		VideoUID:  uid,
		SourceURL: h.gw.MP4DownloadURL(uid),
	}
	if err := h.queue.EnqueueVideoArchive(c.Request.Context(), payload); err != nil {
		h.logger.Error("enqueue archive failed", zap.String("uid", uid), zap.Error(err))
		response.Error(c, err)
		return
	}
	response.Created(c, gin.H{"uid": uid, "status": "queued"})
}

// ArchiveURL handles GET /videos/:id/archive: presigned download link for a
// previously archived video.
func (h *Handler) ArchiveURL(c *gin.Context) {
	if h.s3 == nil {
		response.ServiceUnavailable(c, "archiving is not configured")
		return
	}
	uid := c.Param("id")
	if uid == "" {
		response.BadRequest(c, "video id is required")
		return
	}
	url, err := h.s3.PresignDownload(c.Request.Context(), storage.ArchiveKey(uid), h.s3.PresignExpire())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"uid": uid, "url": url})
}
