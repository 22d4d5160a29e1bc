// Package platform is a typed client for the remote video-hosting platform's
// REST API. It translates requests and normalizes responses; all retry and
// fallback policy belongs to callers.
package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/clipstage/backend/internal/apperrors"
)

// DefaultBaseURL is the platform API root. Overridable for tests and staging.
const DefaultBaseURL = "https://api.videodelivery.example/client/v4"

// ClientConfig holds the account-level settings every API call requires.
type ClientConfig struct {
	BaseURL   string
	AccountID string
	APIToken  string
}

// Client wraps the platform REST surface. One method per remote capability;
// no business logic and no internal retries.
type Client struct {
	cfg    ClientConfig
	httpc  *http.Client
	logger *zap.Logger
}

// NewClient creates a platform client. A nil httpc uses a client with the
// transport's default timeout behavior.
func NewClient(cfg ClientConfig, httpc *http.Client, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if httpc == nil {
		httpc = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{cfg: cfg, httpc: httpc, logger: logger}
}

// envelope is the platform's response wrapper. Mutating calls sometimes come
// back with no body at all; see do.
type envelope struct {
	Success bool            `json:"success"`
	Result  json.RawMessage `json:"result"`
	Errors  []apiError      `json:"errors"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// do performs one API call and decodes the result payload into out (when out
// is non-nil). It fails with a ConfigError before any network activity when
// account settings are missing.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	if c.cfg.AccountID == "" {
		return &apperrors.ConfigError{Setting: "account id"}
	}
	if c.cfg.APIToken == "" {
		return &apperrors.ConfigError{Setting: "api token"}
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	url := c.cfg.BaseURL + "/accounts/" + c.cfg.AccountID + path
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return &apperrors.TransportError{Op: method + " " + path, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &apperrors.TransportError{Op: "read response " + path, Err: err}
	}

	// The platform is inconsistent about emitting bodies for mutating calls:
	// an empty or non-JSON body on a 2xx is a valid empty result.
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if len(raw) == 0 || !isJSON(resp.Header.Get("Content-Type")) {
			return nil
		}
		var env envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		if !env.Success && len(env.Errors) > 0 {
			return &apperrors.RemoteError{Status: resp.StatusCode, Message: env.Errors[0].Message}
		}
		if out != nil && len(env.Result) > 0 {
			if err := json.Unmarshal(env.Result, out); err != nil {
				return fmt.Errorf("decode result: %w", err)
			}
		}
		return nil
	}

	msg := ""
	if isJSON(resp.Header.Get("Content-Type")) && len(raw) > 0 {
		var env envelope
		if json.Unmarshal(raw, &env) == nil && len(env.Errors) > 0 {
			msg = env.Errors[0].Message
		}
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	c.logger.Warn("platform call failed",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.String("message", msg),
	)
	return &apperrors.RemoteError{Status: resp.StatusCode, Message: msg}
}

func isJSON(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mt == "application/json" || strings.HasSuffix(mt, "+json")
}

// CreateDirectUpload provisions a one-shot upload session. The returned UID
// identifies the video before any bytes are sent.
func (c *Client) CreateDirectUpload(ctx context.Context, req DirectUploadRequest) (DirectUpload, error) {
	var out DirectUpload
	err := c.do(ctx, http.MethodPost, "/stream/direct_upload", req, &out)
	return out, err
}

// CreateLiveInput provisions a live input.
func (c *Client) CreateLiveInput(ctx context.Context, req LiveInputRequest) (LiveInput, error) {
	var out LiveInput
	err := c.do(ctx, http.MethodPost, "/stream/live_inputs", req, &out)
	return out, err
}

// Video fetches one video by UID.
func (c *Client) Video(ctx context.Context, uid string) (Video, error) {
	var out Video
	err := c.do(ctx, http.MethodGet, "/stream/"+uid, nil, &out)
	return out, err
}

// ListVideos lists all videos on the account.
func (c *Client) ListVideos(ctx context.Context) ([]Video, error) {
	var out []Video
	err := c.do(ctx, http.MethodGet, "/stream", nil, &out)
	return out, err
}

// LiveInput fetches one live input by UID.
func (c *Client) LiveInput(ctx context.Context, uid string) (LiveInput, error) {
	var out LiveInput
	err := c.do(ctx, http.MethodGet, "/stream/live_inputs/"+uid, nil, &out)
	return out, err
}

// ListLiveInputs lists all live inputs on the account.
func (c *Client) ListLiveInputs(ctx context.Context) ([]LiveInput, error) {
	var out []LiveInput
	err := c.do(ctx, http.MethodGet, "/stream/live_inputs", nil, &out)
	return out, err
}

// LiveInputVideos lists the recordings a live input has produced. A live
// input with no recordings yields an empty slice, not an error.
func (c *Client) LiveInputVideos(ctx context.Context, liveInputUID string) ([]Video, error) {
	var out []Video
	err := c.do(ctx, http.MethodGet, "/stream/live_inputs/"+liveInputUID+"/videos", nil, &out)
	return out, err
}

// DeleteVideo removes a video.
func (c *Client) DeleteVideo(ctx context.Context, uid string) error {
	return c.do(ctx, http.MethodDelete, "/stream/"+uid, nil, nil)
}

// DeleteLiveInput removes a live input. Recordings it produced persist as
// independent videos.
func (c *Client) DeleteLiveInput(ctx context.Context, uid string) error {
	return c.do(ctx, http.MethodDelete, "/stream/live_inputs/"+uid, nil, nil)
}

// SetLiveInputPaused flips the recording paused flag on a live input.
func (c *Client) SetLiveInputPaused(ctx context.Context, uid string, paused bool) error {
	body := map[string]bool{"paused": paused}
	return c.do(ctx, http.MethodPut, "/stream/live_inputs/"+uid, body, nil)
}

// CreatePlaybackToken asks the platform to issue a short-lived signed
// playback token for a video.
func (c *Client) CreatePlaybackToken(ctx context.Context, uid string, ttl time.Duration) (string, error) {
	body := map[string]int64{"exp": time.Now().Add(ttl).Unix()}
	var out struct {
		Token string `json:"token"`
	}
	if err := c.do(ctx, http.MethodPost, "/stream/"+uid+"/token", body, &out); err != nil {
		return "", err
	}
	return out.Token, nil
}

// GenerateCaptions requests caption generation for a video in the given
// BCP 47 language tag.
func (c *Client) GenerateCaptions(ctx context.Context, uid, language string) error {
	return c.do(ctx, http.MethodPost, "/stream/"+uid+"/captions/"+language+"/generate", nil, nil)
}

// MP4DownloadURL returns the platform's progressive-download URL for a ready
// video. Used by the archive worker; the platform serves it without the API
// envelope, so it is constructed, not fetched.
func (c *Client) MP4DownloadURL(uid string) string {
	return c.cfg.BaseURL + "/accounts/" + c.cfg.AccountID + "/stream/" + uid + "/downloads/default.mp4"
}
