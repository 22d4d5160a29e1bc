// Package library merges finished uploads and live-input recordings into one
// deduplicated, reverse-chronological view.
package library

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/clipstage/backend/internal/platform"
)

// Gateway is the slice of the platform client the aggregator reads from.
type Gateway interface {
	ListVideos(ctx context.Context) ([]platform.Video, error)
	ListLiveInputs(ctx context.Context) ([]platform.LiveInput, error)
	LiveInputVideos(ctx context.Context, liveInputUID string) ([]platform.Video, error)
}

// Enricher fills playback URLs on a video.
type Enricher interface {
	EnrichVideo(ctx context.Context, v *platform.Video)
}

// Aggregator builds the merged library view. It holds no state of its own;
// every call re-fetches remote truth.
type Aggregator struct {
	gw       Gateway
	enricher Enricher
	logger   *zap.Logger
}

// NewAggregator creates an aggregator. enricher may be nil to skip URL
// resolution (platform-native URLs only).
func NewAggregator(gw Gateway, enricher Enricher, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{gw: gw, enricher: enricher, logger: logger}
}

// Library fetches uploads and live inputs in parallel, collects ready
// recordings per live input, drops recordings whose UID already appears
// among the uploads, enriches everything, and sorts by creation time
// descending with missing timestamps last.
//
// A failure fetching one live input's recordings is swallowed: that input
// simply contributes nothing. Failure of either top-level fetch aborts.
func (a *Aggregator) Library(ctx context.Context) ([]platform.Video, error) {
	var (
		videos []platform.Video
		inputs []platform.LiveInput
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		videos, err = a.gw.ListVideos(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		inputs, err = a.gw.ListLiveInputs(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(videos))
	for _, v := range videos {
		seen[v.UID] = true
	}

	var (
		mu         sync.Mutex
		recordings []platform.Video
		wg         sync.WaitGroup
	)
	for _, li := range inputs {
		li := li
		wg.Add(1)
		go func() {
			defer wg.Done()
			recs, err := a.gw.LiveInputVideos(ctx, li.UID)
			if err != nil {
				a.logger.Warn("fetch live input recordings failed",
					zap.String("live_input", li.UID), zap.Error(err))
				return
			}
			mu.Lock()
			defer mu.Unlock()
			for _, rec := range recs {
				if !rec.Ready() {
					continue
				}
				rec.LiveInputID = li.UID
				rec.IsLiveRecording = true
				rec.Paused = li.Paused
				recordings = append(recordings, rec)
			}
		}()
	}
	wg.Wait()

	merged := make([]platform.Video, 0, len(videos)+len(recordings))
	merged = append(merged, videos...)
	for _, rec := range recordings {
		// The platform can surface the same asset both as an upload and as a
		// live-input recording; list it once.
		if seen[rec.UID] {
			continue
		}
		seen[rec.UID] = true
		merged = append(merged, rec)
	}

	if a.enricher != nil {
		for i := range merged {
			a.enricher.EnrichVideo(ctx, &merged[i])
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return createdAt(merged[i]).After(createdAt(merged[j]))
	})
	return merged, nil
}

// createdAt treats a missing creation timestamp as epoch zero so the item
// sorts after everything that has one.
func createdAt(v platform.Video) time.Time {
	if v.Created == nil {
		return time.Time{}
	}
	return *v.Created
}
