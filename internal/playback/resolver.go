// Package playback derives playback URLs for videos and live inputs when the
// account has a public subdomain configured. It never overwrites a URL the
// platform already supplied.
package playback

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/clipstage/backend/internal/platform"
)

// Playback path suffixes under https://{subdomain}/{identifier}/.
const (
	suffixEmbed      = "iframe"
	suffixHLS        = "manifest/video.m3u8"
	suffixDASH       = "manifest/video.mpd"
	suffixWebRTCPlay = "webRTC/play"
	suffixThumbnail  = "thumbnails/thumbnail.jpg"
)

// TokenIssuer requests a signed playback token from the platform.
type TokenIssuer interface {
	CreatePlaybackToken(ctx context.Context, uid string, ttl time.Duration) (string, error)
}

// Signer issues playback tokens locally from the account's signing key.
type Signer interface {
	Sign(uid string, ttl time.Duration) (string, error)
}

// Config holds the account-level settings that gate URL construction.
type Config struct {
	// Subdomain is the account's public playback hostname. Empty disables
	// all URL synthesis: there is no basis for construction without it.
	Subdomain string
	// RequireSignedPlayback substitutes short-lived tokens for raw UIDs.
	RequireSignedPlayback bool
	TokenTTL              time.Duration
}

// Resolver fills in missing playback URLs for videos and live inputs.
type Resolver struct {
	cfg    Config
	signer Signer      // optional, preferred token source
	issuer TokenIssuer // optional, remote fallback
	logger *zap.Logger
}

// NewResolver creates a resolver. signer and issuer may each be nil; when
// both are nil signed playback degrades to raw-UID identifiers.
func NewResolver(cfg Config, signer Signer, issuer TokenIssuer, logger *zap.Logger) *Resolver {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{cfg: cfg, signer: signer, issuer: issuer, logger: logger}
}

// identifier returns the path segment to build URLs with: a signed token when
// the account policy requires one and issuance succeeds, else the raw UID.
// Token failure is a degraded mode, not an error; some assets are simply not
// configured for signed playback yet.
func (r *Resolver) identifier(ctx context.Context, uid string) (id string, signed bool) {
	if !r.cfg.RequireSignedPlayback {
		return uid, false
	}
	if r.signer != nil {
		tok, err := r.signer.Sign(uid, r.cfg.TokenTTL)
		if err == nil {
			return tok, true
		}
		r.logger.Warn("local token signing failed, trying platform issuance",
			zap.String("uid", uid), zap.Error(err))
	}
	if r.issuer != nil {
		tok, err := r.issuer.CreatePlaybackToken(ctx, uid, r.cfg.TokenTTL)
		if err == nil {
			return tok, true
		}
		r.logger.Warn("playback token issuance failed, falling back to raw uid",
			zap.String("uid", uid), zap.Error(err))
	}
	return uid, false
}

func (r *Resolver) base(identifier string) string {
	return "https://" + r.cfg.Subdomain + "/" + identifier + "/"
}

// EnrichVideo fills the video's playback bundle. Fields the platform already
// populated are left untouched, so the operation is idempotent.
func (r *Resolver) EnrichVideo(ctx context.Context, v *platform.Video) {
	if r.cfg.Subdomain == "" || v == nil || v.UID == "" {
		return
	}
	id, signed := r.identifier(ctx, v.UID)
	base := r.base(id)

	if v.Embed == "" {
		v.Embed = base + suffixEmbed
	}
	if v.Playback.HLS == "" {
		v.Playback.HLS = base + suffixHLS
	}
	if v.Playback.DASH == "" {
		v.Playback.DASH = base + suffixDASH
	}
	if v.WebRTCPlayback == "" {
		v.WebRTCPlayback = base + suffixWebRTCPlay
	}

	switch {
	case signed && v.Thumbnail != "" && strings.Contains(v.Thumbnail, v.UID):
		// Swap the raw UID for the token in place; query parameters and any
		// other decoration the platform attached survive.
		v.Thumbnail = strings.Replace(v.Thumbnail, v.UID, id, 1)
	case v.Thumbnail == "":
		v.Thumbnail = base + suffixThumbnail
	}
}

// EnrichLiveInput fills the live input's embed and manifest URLs using the
// raw UID. Signed tokens are defined for on-demand assets, not live ingest;
// the webRTC playback URL always comes from the live input's own record and
// is never constructed here.
func (r *Resolver) EnrichLiveInput(li *platform.LiveInput) {
	if r.cfg.Subdomain == "" || li == nil || li.UID == "" {
		return
	}
	base := r.base(li.UID)
	if li.Embed == "" {
		li.Embed = base + suffixEmbed
	}
	if li.Playback.HLS == "" {
		li.Playback.HLS = base + suffixHLS
	}
	if li.Playback.DASH == "" {
		li.Playback.DASH = base + suffixDASH
	}
}
