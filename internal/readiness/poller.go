// Package readiness watches a freshly uploaded video until it becomes
// playable, then triggers caption generation once. Polling is bounded: a
// fixed interval and a fixed attempt budget, never an open-ended loop.
package readiness

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/clipstage/backend/internal/platform"
)

// Outcome is the terminal state of one watch.
type Outcome string

const (
	// OutcomeReady: the video became playable; captions were requested.
	OutcomeReady Outcome = "ready"
	// OutcomeErrored: the platform reported a processing error.
	OutcomeErrored Outcome = "errored"
	// OutcomeExhausted: the attempt budget ran out. The video may still
	// become ready later; this watcher gives up.
	OutcomeExhausted Outcome = "exhausted"
	// OutcomeCanceled: the context was canceled (component teardown).
	OutcomeCanceled Outcome = "canceled"
)

// VideoFetcher fetches current video status.
type VideoFetcher interface {
	Video(ctx context.Context, uid string) (platform.Video, error)
}

// CaptionRequester asks the platform to generate captions.
type CaptionRequester interface {
	GenerateCaptions(ctx context.Context, uid, language string) error
}

// Poller drives bounded readiness watches.
type Poller struct {
	fetcher     VideoFetcher
	captions    CaptionRequester
	interval    time.Duration
	maxAttempts int
	language    string
	logger      *zap.Logger
}

// NewPoller creates a poller. captions may be nil to disable the side effect.
func NewPoller(fetcher VideoFetcher, captions CaptionRequester, interval time.Duration, maxAttempts int, language string, logger *zap.Logger) *Poller {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if maxAttempts <= 0 {
		maxAttempts = 24
	}
	if language == "" {
		language = "en"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{
		fetcher:     fetcher,
		captions:    captions,
		interval:    interval,
		maxAttempts: maxAttempts,
		language:    language,
		logger:      logger,
	}
}

// Watch polls the video until it is ready, errored, the attempt budget is
// spent, or ctx is canceled. A transport failure during a poll is transient:
// it consumes one attempt instead of aborting the watch. Caption generation
// on readiness is fire-and-forget; captions are an enhancement, not a
// requirement, so its failure is logged and dropped.
func (p *Poller) Watch(ctx context.Context, uid string) Outcome {
	timer := time.NewTimer(p.interval)
	defer timer.Stop()

	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		v, err := p.fetcher.Video(ctx, uid)
		if err != nil {
			p.logger.Warn("readiness poll failed",
				zap.String("uid", uid),
				zap.Int("attempt", attempt),
				zap.Error(err))
		} else {
			if v.Ready() {
				p.logger.Info("video ready", zap.String("uid", uid), zap.Int("attempt", attempt))
				p.requestCaptions(ctx, uid)
				return OutcomeReady
			}
			if v.Status.State == platform.StateError {
				p.logger.Warn("video processing errored",
					zap.String("uid", uid),
					zap.String("reason", v.Status.ErrorMessage))
				return OutcomeErrored
			}
		}

		if attempt == p.maxAttempts {
			break
		}
		timer.Reset(p.interval)
		select {
		case <-ctx.Done():
			return OutcomeCanceled
		case <-timer.C:
		}
	}

	p.logger.Warn("readiness polling exhausted",
		zap.String("uid", uid),
		zap.Int("attempts", p.maxAttempts))
	return OutcomeExhausted
}

func (p *Poller) requestCaptions(ctx context.Context, uid string) {
	if p.captions == nil {
		return
	}
	if err := p.captions.GenerateCaptions(ctx, uid, p.language); err != nil {
		p.logger.Warn("caption generation failed",
			zap.String("uid", uid),
			zap.String("language", p.language),
			zap.Error(err))
	}
}
