// Package live drives the real-time ingest strategy: it provisions a live
// input on the platform, acquires the local capture device, and manages one
// WebRTC ingest session through its lifecycle.
package live

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/clipstage/backend/internal/apperrors"
	"github.com/clipstage/backend/internal/platform"
)

// State of the transport session.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StatePaused       State = "paused"
	StateError        State = "error"
)

// defaultFlushDelay gives in-flight media a moment to drain before teardown.
const defaultFlushDelay = 250 * time.Millisecond

// Gateway is the slice of the platform client the transport needs.
type Gateway interface {
	CreateLiveInput(ctx context.Context, req platform.LiveInputRequest) (platform.LiveInput, error)
	SetLiveInputPaused(ctx context.Context, uid string, paused bool) error
	LiveInput(ctx context.Context, uid string) (platform.LiveInput, error)
}

// StateFunc observes state transitions (for the events hub / UI badges).
type StateFunc func(state State, liveInputUID string)

// FaultFunc observes non-fatal remote failures, e.g. the pause flag call
// failing after the device was already released locally.
type FaultFunc func(op string, err error)

// Transport is the live ingest state machine. At most one session is active
// per instance; the capture handle and ingest session it holds are owned
// exclusively and never shared.
type Transport struct {
	gw         Gateway
	source     Source
	dialer     SessionDialer
	flushDelay time.Duration
	onState    StateFunc
	onFault    FaultFunc
	logger     *zap.Logger

	mu        sync.Mutex
	state     State
	capture   Capture
	session   IngestSession
	liveInput platform.LiveInput
}

// NewTransport creates a live transport. onState and onFault may be nil.
func NewTransport(gw Gateway, source Source, dialer SessionDialer, logger *zap.Logger) *Transport {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Transport{
		gw:         gw,
		source:     source,
		dialer:     dialer,
		flushDelay: defaultFlushDelay,
		state:      StateDisconnected,
		logger:     logger,
	}
}

// SetStateFunc registers the state-transition observer.
func (t *Transport) SetStateFunc(fn StateFunc) { t.onState = fn }

// SetFaultFunc registers the non-fatal remote-failure observer.
func (t *Transport) SetFaultFunc(fn FaultFunc) { t.onFault = fn }

func (t *Transport) setState(s State) {
	t.state = s
	if t.onState != nil {
		t.onState(s, t.liveInput.UID)
	}
}

// State returns the current session state.
func (t *Transport) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// LiveInputUID returns the UID of the session's live input, if any.
func (t *Transport) LiveInputUID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.liveInput.UID
}

// Start acquires the capture device, provisions a live input, and opens the
// ingest session. On any failure every partially-acquired resource is
// released before the error surfaces: no orphaned device locks.
func (t *Transport) Start(ctx context.Context, name string) (platform.LiveInput, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch t.state {
	case StateConnecting, StateConnected, StatePaused:
		return platform.LiveInput{}, &apperrors.ValidationError{Msg: "a live session is already active"}
	}
	t.liveInput = platform.LiveInput{}
	t.setState(StateConnecting)

	capture, err := t.source.Acquire(ctx)
	if err != nil {
		t.setState(StateError)
		return platform.LiveInput{}, fmt.Errorf("acquire capture: %w", err)
	}

	li, err := t.gw.CreateLiveInput(ctx, platform.LiveInputRequest{
		Meta:      platform.Meta{Name: uniqueName(name)},
		Recording: platform.LiveInputRecording{Mode: platform.RecordingModeAutomatic},
	})
	if err != nil {
		_ = capture.Close()
		t.setState(StateError)
		return platform.LiveInput{}, err
	}

	// The ingest endpoint comes from the provisioning response. Its absence
	// means the live input is unusable; that is fatal, not retried.
	if li.WebRTC.URL == "" {
		_ = capture.Close()
		t.setState(StateError)
		return platform.LiveInput{}, &apperrors.RemoteError{
			Message: fmt.Sprintf("live input %s has no ingest endpoint", li.UID),
		}
	}

	session, err := t.dialer.Dial(ctx, li.WebRTC.URL, capture.Tracks())
	if err != nil {
		_ = capture.Close()
		t.setState(StateError)
		return platform.LiveInput{}, err
	}

	t.capture = capture
	t.session = session
	t.liveInput = li
	t.setState(StateConnected)
	t.logger.Info("live session started",
		zap.String("live_input", li.UID),
		zap.String("name", li.Meta.Name))
	return li, nil
}

// Pause releases the capture device immediately, so the camera/mic indicator
// turns off without waiting on a round trip, then informs the platform
// asynchronously. If the remote call fails the local paused state stays: the
// user-visible "device is off" fact is already true and is not rolled back.
// GET the live input (Status) to reconcile.
func (t *Transport) Pause(ctx context.Context) error {
	t.mu.Lock()
	if t.state != StateConnected {
		t.mu.Unlock()
		return &apperrors.ValidationError{Msg: "no connected live session to pause"}
	}
	if t.capture != nil {
		_ = t.capture.Close()
		t.capture = nil
	}
	t.setState(StatePaused)
	uid := t.liveInput.UID
	t.mu.Unlock()

	go func() {
		callCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := t.gw.SetLiveInputPaused(callCtx, uid, true); err != nil {
			t.logger.Warn("remote pause failed; local state remains paused",
				zap.String("live_input", uid), zap.Error(err))
			if t.onFault != nil {
				t.onFault("pause", err)
			}
		}
	}()
	return nil
}

// Resume clears the platform's paused flag. It deliberately does not
// re-acquire the capture device or reopen the ingest session: un-pausing the
// recording flag and restarting media are separate operator actions.
func (t *Transport) Resume(ctx context.Context) error {
	t.mu.Lock()
	if t.state != StatePaused {
		t.mu.Unlock()
		return &apperrors.ValidationError{Msg: "no paused live session to resume"}
	}
	uid := t.liveInput.UID
	t.mu.Unlock()

	if err := t.gw.SetLiveInputPaused(ctx, uid, false); err != nil {
		return err
	}

	t.mu.Lock()
	if t.state == StatePaused {
		t.setState(StateConnected)
	}
	t.mu.Unlock()
	return nil
}

// Stop releases the capture device, lets in-flight media flush briefly, then
// tears the ingest session down. Teardown errors are swallowed; the operator
// has already signaled intent to stop.
func (t *Transport) Stop(ctx context.Context) error {
	t.mu.Lock()
	if t.state == StateDisconnected {
		t.mu.Unlock()
		return &apperrors.ValidationError{Msg: "no live session to stop"}
	}
	capture := t.capture
	session := t.session
	uid := t.liveInput.UID
	t.capture = nil
	t.session = nil
	t.setState(StateDisconnected)
	t.mu.Unlock()

	if capture != nil {
		_ = capture.Close()
	}
	if session != nil {
		select {
		case <-time.After(t.flushDelay):
		case <-ctx.Done():
		}
		_ = session.Close()
	}
	t.logger.Info("live session stopped", zap.String("live_input", uid))
	return nil
}

// Status re-fetches the live input from the platform. This is the
// reconciliation read for the optimistic pause.
func (t *Transport) Status(ctx context.Context) (platform.LiveInput, error) {
	t.mu.Lock()
	uid := t.liveInput.UID
	t.mu.Unlock()
	if uid == "" {
		return platform.LiveInput{}, &apperrors.ValidationError{Msg: "no live session"}
	}
	return t.gw.LiveInput(ctx, uid)
}

// uniqueName suffixes the user-supplied label with a timestamp and a short
// random token so concurrent sessions with the same label stay distinct.
func uniqueName(name string) string {
	if name == "" {
		name = "live"
	}
	return fmt.Sprintf("%s-%d-%s", name, time.Now().Unix(), uuid.NewString()[:8])
}
