// Package archive exports ready videos out of the platform into S3. Jobs
// arrive on the Redis queue; the processor streams the platform's MP4 into
// the archive bucket without buffering.
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/clipstage/backend/pkg/queue"
	"github.com/clipstage/backend/pkg/storage"
)

// Processor consumes archive jobs.
type Processor struct {
	s3     *storage.S3
	queue  *queue.Queue
	httpc  *http.Client
	logger *zap.Logger
}

// NewProcessor creates an archive job processor.
func NewProcessor(s3 *storage.S3, q *queue.Queue, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{
		s3:     s3,
		queue:  q,
		httpc:  &http.Client{Timeout: 30 * time.Minute},
		logger: logger,
	}
}

// Process executes one archive job.
func (p *Processor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeVideoArchive {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.VideoArchivePayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, payload.SourceURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := p.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download status: %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "video/mp4"
	}
	key := storage.ArchiveKey(payload.VideoUID)
	url, err := p.s3.Upload(ctx, key, contentType, resp.Body, resp.ContentLength)
	if err != nil {
		return fmt.Errorf("s3 upload: %w", err)
	}

	p.logger.Info("video archived",
		zap.String("video_uid", payload.VideoUID),
		zap.String("s3_url", url))
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *Processor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("archive worker stopping")
			return
		default:
		}

		job, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			time.Sleep(queue.RetryBackoff)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			if reErr := p.queue.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			time.Sleep(queue.RetryBackoff)
		}
	}
}
