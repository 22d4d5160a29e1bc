// Package uploads moves finished recordings to the platform's pre-authorized
// one-shot upload URLs.
package uploads

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/clipstage/backend/internal/apperrors"
)

// fileField is the multipart field name the platform requires.
const fileField = "file"

// defaultFilename is used when no usable display name was supplied.
const defaultFilename = "recording.webm"

// ProgressFunc receives transfer progress in [0,100]. Reports are
// monotonically increasing and 100 is delivered exactly once, on success.
type ProgressFunc func(percent int)

// Transport drives the chunked-buffer-then-upload strategy: the capture
// pipeline has already produced a complete blob; this moves it upstream.
type Transport struct {
	httpc  *http.Client
	logger *zap.Logger
}

// NewTransport creates an upload transport. A nil httpc gets a client with a
// generous timeout since recordings can be large.
func NewTransport(httpc *http.Client, logger *zap.Logger) *Transport {
	if httpc == nil {
		httpc = &http.Client{Timeout: 10 * time.Minute}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Transport{httpc: httpc, logger: logger}
}

// Upload sends payload to the one-shot uploadURL as a multipart request.
// An empty payload means the capture pipeline produced no data; that is
// rejected before any network activity since a silent empty upload would be
// far harder to diagnose. progress may be nil.
func (t *Transport) Upload(ctx context.Context, uploadURL, name string, payload []byte, progress ProgressFunc) error {
	if uploadURL == "" {
		return &apperrors.ValidationError{Msg: "upload URL is required"}
	}
	if len(payload) == 0 {
		return &apperrors.ValidationError{Msg: "recording is empty: capture produced no data"}
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(fileField, SanitizeFilename(name))
	if err != nil {
		return fmt.Errorf("create multipart: %w", err)
	}
	if _, err := part.Write(payload); err != nil {
		return fmt.Errorf("write multipart: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("close multipart: %w", err)
	}

	total := int64(body.Len())
	reader := &progressReader{r: &body, total: total, report: progress}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, reader)
	if err != nil {
		return fmt.Errorf("build upload request: %w", err)
	}
	req.ContentLength = total
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := t.httpc.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return &apperrors.TransportError{Op: "upload aborted", Err: ctx.Err()}
		}
		return &apperrors.TransportError{Op: "upload", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return uploadError(resp)
	}

	// The reader caps its own reports below 100 so the success report is the
	// single authoritative completion signal.
	if progress != nil {
		progress(100)
	}
	t.logger.Info("upload complete", zap.Int64("bytes", total))
	return nil
}

// uploadError extracts a structured message from the response body when the
// platform sent one, else synthesizes one from the status code.
func uploadError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	var env struct {
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if json.Unmarshal(raw, &env) == nil && len(env.Errors) > 0 && env.Errors[0].Message != "" {
		return &apperrors.RemoteError{Status: resp.StatusCode, Message: env.Errors[0].Message}
	}
	return &apperrors.RemoteError{Status: resp.StatusCode, Message: fmt.Sprintf("upload failed with status %d", resp.StatusCode)}
}

// SanitizeFilename makes a user-supplied display name safe to use as a
// filename: illegal filesystem characters are stripped and runs of
// whitespace collapse to single spaces.
func SanitizeFilename(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return defaultFilename
	}
	var b strings.Builder
	for _, r := range name {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			// drop
		default:
			b.WriteRune(r)
		}
	}
	cleaned := strings.Join(strings.Fields(b.String()), " ")
	if cleaned == "" {
		return defaultFilename
	}
	if path.Ext(cleaned) == "" {
		cleaned += ".webm"
	}
	return cleaned
}

// progressReader reports percent transferred as the request body is read.
// It never reports 100 itself: the transport reports completion once the
// platform has acknowledged the transfer.
type progressReader struct {
	r      io.Reader
	total  int64
	sent   int64
	last   int
	report ProgressFunc
}

func (p *progressReader) Read(buf []byte) (int, error) {
	n, err := p.r.Read(buf)
	if n > 0 && p.report != nil && p.total > 0 {
		p.sent += int64(n)
		pct := int(p.sent * 100 / p.total)
		if pct > 99 {
			pct = 99
		}
		if pct > p.last {
			p.last = pct
			p.report(pct)
		}
	}
	return n, err
}
