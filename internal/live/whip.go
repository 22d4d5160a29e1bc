package live

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pion/webrtc/v3"
	"go.uber.org/zap"

	"github.com/clipstage/backend/internal/apperrors"
)

// IngestSession is an open real-time session against the platform's ingest
// endpoint. It is owned exclusively by the Transport that dialed it.
type IngestSession interface {
	Close() error
}

// SessionDialer opens an ingest session. Swappable so the transport state
// machine is testable without a network.
type SessionDialer interface {
	Dial(ctx context.Context, endpoint string, tracks []webrtc.TrackLocal) (IngestSession, error)
}

// WHIPDialer negotiates a WebRTC ingest session using the WHIP offer/answer
// exchange: POST the local SDP offer, receive the answer, DELETE to hang up.
type WHIPDialer struct {
	iceServers []webrtc.ICEServer
	httpc      *http.Client
	logger     *zap.Logger
}

// NewWHIPDialer creates a dialer with the given STUN/TURN servers.
func NewWHIPDialer(iceServers []webrtc.ICEServer, httpc *http.Client, logger *zap.Logger) *WHIPDialer {
	if len(iceServers) == 0 {
		iceServers = []webrtc.ICEServer{{URLs: []string{"stun:stun.l.google.com:19302"}}}
	}
	if httpc == nil {
		httpc = &http.Client{Timeout: 15 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WHIPDialer{iceServers: iceServers, httpc: httpc, logger: logger}
}

// Dial opens the peer connection, attaches the capture tracks, and completes
// the offer/answer exchange against the ingest endpoint.
func (d *WHIPDialer) Dial(ctx context.Context, endpoint string, tracks []webrtc.TrackLocal) (IngestSession, error) {
	mediaEngine := &webrtc.MediaEngine{}
	if err := mediaEngine.RegisterDefaultCodecs(); err != nil {
		return nil, fmt.Errorf("register codecs: %w", err)
	}
	api := webrtc.NewAPI(webrtc.WithMediaEngine(mediaEngine))
	pc, err := api.NewPeerConnection(webrtc.Configuration{ICEServers: d.iceServers})
	if err != nil {
		return nil, fmt.Errorf("peer connection: %w", err)
	}

	for _, track := range tracks {
		if _, err := pc.AddTrack(track); err != nil {
			_ = pc.Close()
			return nil, fmt.Errorf("add track: %w", err)
		}
	}

	offer, err := pc.CreateOffer(nil)
	if err != nil {
		_ = pc.Close()
		return nil, fmt.Errorf("create offer: %w", err)
	}
	gathered := webrtc.GatheringCompletePromise(pc)
	if err := pc.SetLocalDescription(offer); err != nil {
		_ = pc.Close()
		return nil, fmt.Errorf("set local description: %w", err)
	}
	select {
	case <-gathered:
	case <-ctx.Done():
		_ = pc.Close()
		return nil, &apperrors.TransportError{Op: "ice gathering", Err: ctx.Err()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint,
		strings.NewReader(pc.LocalDescription().SDP))
	if err != nil {
		_ = pc.Close()
		return nil, fmt.Errorf("build ingest request: %w", err)
	}
	req.Header.Set("Content-Type", "application/sdp")

	resp, err := d.httpc.Do(req)
	if err != nil {
		_ = pc.Close()
		return nil, &apperrors.TransportError{Op: "ingest negotiation", Err: err}
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		_ = pc.Close()
		return nil, &apperrors.RemoteError{Status: resp.StatusCode, Message: "ingest endpoint rejected offer"}
	}

	answer := webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: string(body)}
	if err := pc.SetRemoteDescription(answer); err != nil {
		_ = pc.Close()
		return nil, fmt.Errorf("set remote description: %w", err)
	}

	// WHIP returns the session resource in Location; DELETE it on hang-up.
	resource := resp.Header.Get("Location")
	if resource != "" && !strings.HasPrefix(resource, "http") {
		resource = endpoint + resource
	}
	d.logger.Info("ingest session open", zap.String("endpoint", endpoint))
	return &whipSession{pc: pc, resource: resource, httpc: d.httpc}, nil
}

type whipSession struct {
	pc       *webrtc.PeerConnection
	resource string
	httpc    *http.Client
}

// Close tears down the session. Best-effort on both sides: the operator has
// already signaled intent to stop.
func (s *whipSession) Close() error {
	if s.resource != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if req, err := http.NewRequestWithContext(ctx, http.MethodDelete, s.resource, nil); err == nil {
			if resp, err := s.httpc.Do(req); err == nil {
				_ = resp.Body.Close()
			}
		}
	}
	return s.pc.Close()
}
