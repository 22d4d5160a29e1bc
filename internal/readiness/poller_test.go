package readiness

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/clipstage/backend/internal/platform"
)

type scriptedFetcher struct {
	responses []func() (platform.Video, error)
	calls     int
}

func (f *scriptedFetcher) Video(ctx context.Context, uid string) (platform.Video, error) {
	i := f.calls
	f.calls++
	if i >= len(f.responses) {
		i = len(f.responses) - 1
	}
	return f.responses[i]()
}

type captionRecorder struct {
	calls    int
	language string
	err      error
}

func (c *captionRecorder) GenerateCaptions(ctx context.Context, uid, language string) error {
	c.calls++
	c.language = language
	return c.err
}

func notReady() (platform.Video, error) {
	return platform.Video{UID: "v1", Status: platform.Status{State: platform.StateQueued}}, nil
}

func ready() (platform.Video, error) {
	return platform.Video{UID: "v1", ReadyToStream: true, Status: platform.Status{State: platform.StateReady}}, nil
}

func TestWatchReadyTriggersCaptionsOnce(t *testing.T) {
	fetcher := &scriptedFetcher{responses: []func() (platform.Video, error){notReady, notReady, ready}}
	captions := &captionRecorder{}
	p := NewPoller(fetcher, captions, time.Millisecond, 10, "en", nil)

	if got := p.Watch(context.Background(), "v1"); got != OutcomeReady {
		t.Fatalf("outcome = %s, want ready", got)
	}
	if fetcher.calls != 3 {
		t.Errorf("fetch calls = %d, want 3", fetcher.calls)
	}
	if captions.calls != 1 || captions.language != "en" {
		t.Errorf("captions calls = %d language = %q", captions.calls, captions.language)
	}
}

func TestWatchReadyFromEitherSignal(t *testing.T) {
	tests := []struct {
		name  string
		video platform.Video
	}{
		{"flag only", platform.Video{UID: "v1", ReadyToStream: true}},
		{"state only", platform.Video{UID: "v1", Status: platform.Status{State: platform.StateReady}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fetcher := &scriptedFetcher{responses: []func() (platform.Video, error){
				func() (platform.Video, error) { return tt.video, nil },
			}}
			p := NewPoller(fetcher, nil, time.Millisecond, 3, "en", nil)
			if got := p.Watch(context.Background(), "v1"); got != OutcomeReady {
				t.Fatalf("outcome = %s, want ready", got)
			}
		})
	}
}

func TestWatchErrorStateStopsWithoutCaptions(t *testing.T) {
	fetcher := &scriptedFetcher{responses: []func() (platform.Video, error){
		func() (platform.Video, error) {
			return platform.Video{UID: "v1", Status: platform.Status{
				State:        platform.StateError,
				ErrorMessage: "codec unsupported",
			}}, nil
		},
	}}
	captions := &captionRecorder{}
	p := NewPoller(fetcher, captions, time.Millisecond, 10, "en", nil)

	if got := p.Watch(context.Background(), "v1"); got != OutcomeErrored {
		t.Fatalf("outcome = %s, want errored", got)
	}
	if captions.calls != 0 {
		t.Errorf("captions requested for errored video")
	}
}

func TestWatchExhaustsAttemptBudget(t *testing.T) {
	fetcher := &scriptedFetcher{responses: []func() (platform.Video, error){notReady}}
	p := NewPoller(fetcher, nil, time.Millisecond, 4, "en", nil)

	if got := p.Watch(context.Background(), "v1"); got != OutcomeExhausted {
		t.Fatalf("outcome = %s, want exhausted", got)
	}
	if fetcher.calls != 4 {
		t.Errorf("fetch calls = %d, want exactly the attempt budget", fetcher.calls)
	}
}

func TestWatchTransientErrorConsumesAttempt(t *testing.T) {
	fetcher := &scriptedFetcher{responses: []func() (platform.Video, error){
		func() (platform.Video, error) { return platform.Video{}, errors.New("connection reset") },
		notReady,
	}}
	p := NewPoller(fetcher, nil, time.Millisecond, 2, "en", nil)

	if got := p.Watch(context.Background(), "v1"); got != OutcomeExhausted {
		t.Fatalf("outcome = %s, want exhausted", got)
	}
	if fetcher.calls != 2 {
		t.Errorf("fetch calls = %d, want 2", fetcher.calls)
	}
}

func TestWatchCanceled(t *testing.T) {
	fetcher := &scriptedFetcher{responses: []func() (platform.Video, error){notReady}}
	p := NewPoller(fetcher, nil, time.Minute, 10, "en", nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan Outcome, 1)
	go func() { done <- p.Watch(ctx, "v1") }()
	cancel()

	select {
	case got := <-done:
		if got != OutcomeCanceled {
			t.Fatalf("outcome = %s, want canceled", got)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not return after cancel")
	}
}

func TestWatchCaptionFailureIsSwallowed(t *testing.T) {
	fetcher := &scriptedFetcher{responses: []func() (platform.Video, error){ready}}
	captions := &captionRecorder{err: errors.New("captions unavailable")}
	p := NewPoller(fetcher, captions, time.Millisecond, 3, "en", nil)

	if got := p.Watch(context.Background(), "v1"); got != OutcomeReady {
		t.Fatalf("outcome = %s, want ready despite caption failure", got)
	}
	if captions.calls != 1 {
		t.Errorf("captions calls = %d, want 1", captions.calls)
	}
}
