package playback

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/clipstage/backend/internal/platform"
)

type stubSigner struct {
	token string
	err   error
	calls int
}

func (s *stubSigner) Sign(uid string, ttl time.Duration) (string, error) {
	s.calls++
	return s.token, s.err
}

type stubIssuer struct {
	token string
	err   error
	calls int
}

func (s *stubIssuer) CreatePlaybackToken(ctx context.Context, uid string, ttl time.Duration) (string, error) {
	s.calls++
	return s.token, s.err
}

func TestEnrichVideoConstructsURLs(t *testing.T) {
	r := NewResolver(Config{Subdomain: "cust.example"}, nil, nil, nil)
	v := platform.Video{UID: "abc123"}
	r.EnrichVideo(context.Background(), &v)

	want := platform.Video{
		UID:            "abc123",
		Embed:          "https://cust.example/abc123/iframe",
		Thumbnail:      "https://cust.example/abc123/thumbnails/thumbnail.jpg",
		WebRTCPlayback: "https://cust.example/abc123/webRTC/play",
		Playback: platform.Playback{
			HLS:  "https://cust.example/abc123/manifest/video.m3u8",
			DASH: "https://cust.example/abc123/manifest/video.mpd",
		},
	}
	if !reflect.DeepEqual(v, want) {
		t.Fatalf("enriched video\n got %+v\nwant %+v", v, want)
	}
}

func TestEnrichVideoWithoutSubdomainIsNoop(t *testing.T) {
	r := NewResolver(Config{}, nil, nil, nil)
	v := platform.Video{UID: "abc123"}
	r.EnrichVideo(context.Background(), &v)
	if v.Embed != "" || v.Playback.HLS != "" || v.Thumbnail != "" {
		t.Fatalf("URLs constructed without a subdomain: %+v", v)
	}
}

func TestEnrichVideoPreservesPlatformURLs(t *testing.T) {
	r := NewResolver(Config{Subdomain: "cust.example"}, nil, nil, nil)
	v := platform.Video{
		UID:      "abc123",
		Embed:    "https://platform.example/native-embed",
		Playback: platform.Playback{HLS: "https://platform.example/native.m3u8"},
	}
	r.EnrichVideo(context.Background(), &v)

	if v.Embed != "https://platform.example/native-embed" {
		t.Errorf("embed overwritten: %s", v.Embed)
	}
	if v.Playback.HLS != "https://platform.example/native.m3u8" {
		t.Errorf("hls overwritten: %s", v.Playback.HLS)
	}
	if v.Playback.DASH != "https://cust.example/abc123/manifest/video.mpd" {
		t.Errorf("missing dash not filled: %s", v.Playback.DASH)
	}
}

func TestEnrichVideoSignedThumbnailSubstitution(t *testing.T) {
	signer := &stubSigner{token: "tok_42"}
	r := NewResolver(Config{Subdomain: "cust.example", RequireSignedPlayback: true}, signer, nil, nil)
	v := platform.Video{
		UID:       "abc123",
		Thumbnail: "https://cust.example/abc123/thumbnails/thumbnail.jpg?time=2s&height=270",
	}
	r.EnrichVideo(context.Background(), &v)

	want := "https://cust.example/tok_42/thumbnails/thumbnail.jpg?time=2s&height=270"
	if v.Thumbnail != want {
		t.Errorf("thumbnail = %s, want %s", v.Thumbnail, want)
	}
	if v.Embed != "https://cust.example/tok_42/iframe" {
		t.Errorf("embed = %s", v.Embed)
	}
}

func TestIdentifierFallbackChain(t *testing.T) {
	tests := []struct {
		name       string
		signer     *stubSigner
		issuer     *stubIssuer
		wantEmbed  string
		wantIssuer int
	}{
		{
			name:      "local signer preferred",
			signer:    &stubSigner{token: "local_tok"},
			issuer:    &stubIssuer{token: "remote_tok"},
			wantEmbed: "https://cust.example/local_tok/iframe",
		},
		{
			name:       "signer failure falls back to platform",
			signer:     &stubSigner{err: errors.New("bad key")},
			issuer:     &stubIssuer{token: "remote_tok"},
			wantEmbed:  "https://cust.example/remote_tok/iframe",
			wantIssuer: 1,
		},
		{
			name:       "both fail falls back to raw uid",
			signer:     &stubSigner{err: errors.New("bad key")},
			issuer:     &stubIssuer{err: errors.New("unreachable")},
			wantEmbed:  "https://cust.example/abc123/iframe",
			wantIssuer: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver(Config{Subdomain: "cust.example", RequireSignedPlayback: true}, tt.signer, tt.issuer, nil)
			v := platform.Video{UID: "abc123"}
			r.EnrichVideo(context.Background(), &v)
			if v.Embed != tt.wantEmbed {
				t.Errorf("embed = %s, want %s", v.Embed, tt.wantEmbed)
			}
			if tt.issuer.calls != tt.wantIssuer {
				t.Errorf("issuer calls = %d, want %d", tt.issuer.calls, tt.wantIssuer)
			}
		})
	}
}

func TestEnrichVideoIdempotent(t *testing.T) {
	r := NewResolver(Config{Subdomain: "cust.example"}, nil, nil, nil)
	v := platform.Video{UID: "abc123", Thumbnail: "https://cust.example/abc123/thumbnails/thumbnail.jpg"}
	r.EnrichVideo(context.Background(), &v)
	once := v
	r.EnrichVideo(context.Background(), &v)
	if !reflect.DeepEqual(v, once) {
		t.Fatalf("second enrich changed the video\n got %+v\nwant %+v", v, once)
	}
}

func TestEnrichLiveInputUsesRawUID(t *testing.T) {
	signer := &stubSigner{token: "tok_42"}
	r := NewResolver(Config{Subdomain: "cust.example", RequireSignedPlayback: true}, signer, nil, nil)
	li := platform.LiveInput{UID: "li9"}
	r.EnrichLiveInput(&li)

	if li.Embed != "https://cust.example/li9/iframe" {
		t.Errorf("embed = %s, want raw-uid URL", li.Embed)
	}
	if li.Playback.HLS != "https://cust.example/li9/manifest/video.m3u8" {
		t.Errorf("hls = %s", li.Playback.HLS)
	}
	if signer.calls != 0 {
		t.Errorf("signer consulted for a live input")
	}
	// The webRTC playback endpoint only ever comes from the platform record.
	if li.WebRTCPlayback.URL != "" {
		t.Errorf("webRTC playback constructed: %s", li.WebRTCPlayback.URL)
	}
}
