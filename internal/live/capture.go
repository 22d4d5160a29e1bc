package live

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/pion/webrtc/v3"
	"go.uber.org/zap"

	"github.com/clipstage/backend/internal/apperrors"
)

const rtpBufferSize = 1500

// Capture is an acquired media source. Closing it releases the underlying
// device so another transport may acquire it.
type Capture interface {
	Tracks() []webrtc.TrackLocal
	Close() error
}

// Source hands out the capture device. The device is a singleton per
// session: Acquire fails while a previous Capture is still open.
type Source interface {
	Acquire(ctx context.Context) (Capture, error)
}

// RTPSourceConfig configures the local RTP capture source: a local encoder
// (ffmpeg, OBS, the browser bridge) pushes RTP to these loopback ports.
type RTPSourceConfig struct {
	VideoPort int
	AudioPort int
}

// RTPSource is a Source fed by RTP on local UDP ports. Binding the ports is
// the device lock: a second Acquire fails until the first capture closes.
type RTPSource struct {
	cfg    RTPSourceConfig
	logger *zap.Logger

	mu   sync.Mutex
	held bool
}

// NewRTPSource creates an RTP capture source.
func NewRTPSource(cfg RTPSourceConfig, logger *zap.Logger) *RTPSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RTPSource{cfg: cfg, logger: logger}
}

// Acquire binds the capture ports and starts pumping RTP into local tracks.
func (s *RTPSource) Acquire(ctx context.Context) (Capture, error) {
	s.mu.Lock()
	if s.held {
		s.mu.Unlock()
		return nil, &apperrors.ValidationError{Msg: "capture device already in use"}
	}
	s.held = true
	s.mu.Unlock()

	release := func() {
		s.mu.Lock()
		s.held = false
		s.mu.Unlock()
	}

	videoTrack, err := webrtc.NewTrackLocalStaticRTP(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8, ClockRate: 90000},
		"video", "capture")
	if err != nil {
		release()
		return nil, fmt.Errorf("video track: %w", err)
	}
	audioTrack, err := webrtc.NewTrackLocalStaticRTP(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus, ClockRate: 48000, Channels: 2},
		"audio", "capture")
	if err != nil {
		release()
		return nil, fmt.Errorf("audio track: %w", err)
	}

	videoConn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: s.cfg.VideoPort})
	if err != nil {
		release()
		return nil, fmt.Errorf("bind video port: %w", err)
	}
	audioConn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: s.cfg.AudioPort})
	if err != nil {
		_ = videoConn.Close()
		release()
		return nil, fmt.Errorf("bind audio port: %w", err)
	}

	c := &rtpCapture{
		videoConn: videoConn,
		audioConn: audioConn,
		tracks:    []webrtc.TrackLocal{videoTrack, audioTrack},
		release:   release,
		logger:    s.logger,
	}
	go pump(videoConn, videoTrack)
	go pump(audioConn, audioTrack)
	s.logger.Info("capture acquired",
		zap.Int("video_port", s.cfg.VideoPort),
		zap.Int("audio_port", s.cfg.AudioPort))
	return c, nil
}

type rtpCapture struct {
	videoConn *net.UDPConn
	audioConn *net.UDPConn
	tracks    []webrtc.TrackLocal
	release   func()
	logger    *zap.Logger

	closeOnce sync.Once
}

func (c *rtpCapture) Tracks() []webrtc.TrackLocal { return c.tracks }

// Close releases the ports immediately; the pump goroutines exit on the
// resulting read error.
func (c *rtpCapture) Close() error {
	c.closeOnce.Do(func() {
		_ = c.videoConn.Close()
		_ = c.audioConn.Close()
		c.release()
		c.logger.Info("capture released")
	})
	return nil
}

func pump(conn *net.UDPConn, track *webrtc.TrackLocalStaticRTP) {
	buf := make([]byte, rtpBufferSize)
	for {
		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			return
		}
		if _, err := track.Write(buf[:n]); err != nil {
			return
		}
	}
}
