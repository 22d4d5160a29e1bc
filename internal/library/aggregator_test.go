package library

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/clipstage/backend/internal/platform"
)

type stubGateway struct {
	videos     []platform.Video
	videosErr  error
	inputs     []platform.LiveInput
	inputsErr  error
	recordings map[string][]platform.Video
	recErrs    map[string]error
}

func (g *stubGateway) ListVideos(ctx context.Context) ([]platform.Video, error) {
	return g.videos, g.videosErr
}

func (g *stubGateway) ListLiveInputs(ctx context.Context) ([]platform.LiveInput, error) {
	return g.inputs, g.inputsErr
}

func (g *stubGateway) LiveInputVideos(ctx context.Context, uid string) ([]platform.Video, error) {
	if err := g.recErrs[uid]; err != nil {
		return nil, err
	}
	return g.recordings[uid], nil
}

func ts(s string) *time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return &t
}

func readyVideo(uid string, created *time.Time) platform.Video {
	return platform.Video{UID: uid, Created: created, ReadyToStream: true}
}

func TestLibraryMergesAndDedupes(t *testing.T) {
	gw := &stubGateway{
		videos: []platform.Video{readyVideo("shared", ts("2026-02-01T10:00:00Z"))},
		inputs: []platform.LiveInput{{UID: "li1", Paused: true}},
		recordings: map[string][]platform.Video{
			"li1": {
				readyVideo("shared", ts("2026-02-01T10:00:00Z")),
				readyVideo("rec1", ts("2026-02-02T10:00:00Z")),
			},
		},
	}
	agg := NewAggregator(gw, nil, nil)

	got, err := agg.Library(context.Background())
	if err != nil {
		t.Fatalf("Library: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2 (shared listed once): %+v", len(got), got)
	}

	byUID := map[string]platform.Video{}
	for _, v := range got {
		byUID[v.UID] = v
	}
	shared, ok := byUID["shared"]
	if !ok {
		t.Fatal("shared video missing")
	}
	if shared.IsLiveRecording {
		t.Error("upload entry should win the dedupe, not the recording")
	}
	rec, ok := byUID["rec1"]
	if !ok {
		t.Fatal("recording missing")
	}
	if !rec.IsLiveRecording || rec.LiveInputID != "li1" || !rec.Paused {
		t.Errorf("recording not tagged with its live input: %+v", rec)
	}
}

func TestLibraryFiltersUnreadyRecordings(t *testing.T) {
	gw := &stubGateway{
		inputs: []platform.LiveInput{{UID: "li1"}},
		recordings: map[string][]platform.Video{
			"li1": {
				{UID: "processing", Status: platform.Status{State: platform.StateQueued}},
				readyVideo("done", ts("2026-02-02T10:00:00Z")),
			},
		},
	}
	agg := NewAggregator(gw, nil, nil)

	got, err := agg.Library(context.Background())
	if err != nil {
		t.Fatalf("Library: %v", err)
	}
	if len(got) != 1 || got[0].UID != "done" {
		t.Fatalf("want only the ready recording, got %+v", got)
	}
}

func TestLibrarySortsNewestFirstWithMissingTimestampsLast(t *testing.T) {
	gw := &stubGateway{
		videos: []platform.Video{
			readyVideo("old", ts("2026-01-01T00:00:00Z")),
			readyVideo("undated", nil),
			readyVideo("new", ts("2026-03-01T00:00:00Z")),
		},
	}
	agg := NewAggregator(gw, nil, nil)

	got, err := agg.Library(context.Background())
	if err != nil {
		t.Fatalf("Library: %v", err)
	}
	wantOrder := []string{"new", "old", "undated"}
	for i, want := range wantOrder {
		if got[i].UID != want {
			t.Fatalf("order = %v, want %v", uids(got), wantOrder)
		}
	}
}

func TestLibrarySwallowsPerInputFailures(t *testing.T) {
	gw := &stubGateway{
		inputs: []platform.LiveInput{{UID: "broken"}, {UID: "healthy"}},
		recordings: map[string][]platform.Video{
			"healthy": {readyVideo("rec1", ts("2026-02-02T10:00:00Z"))},
		},
		recErrs: map[string]error{"broken": errors.New("input unavailable")},
	}
	agg := NewAggregator(gw, nil, nil)

	got, err := agg.Library(context.Background())
	if err != nil {
		t.Fatalf("one input's failure should not fail the library: %v", err)
	}
	if len(got) != 1 || got[0].UID != "rec1" {
		t.Fatalf("got %+v", got)
	}
}

func TestLibraryTopLevelFailureAborts(t *testing.T) {
	gw := &stubGateway{videosErr: errors.New("platform down")}
	agg := NewAggregator(gw, nil, nil)

	if _, err := agg.Library(context.Background()); err == nil {
		t.Fatal("want error when the video listing fails")
	}

	gw = &stubGateway{inputsErr: errors.New("platform down")}
	agg = NewAggregator(gw, nil, nil)
	if _, err := agg.Library(context.Background()); err == nil {
		t.Fatal("want error when the live input listing fails")
	}
}

type countingEnricher struct{ calls int }

func (e *countingEnricher) EnrichVideo(ctx context.Context, v *platform.Video) {
	e.calls++
	v.Embed = "https://cust.example/" + v.UID + "/iframe"
}

func TestLibraryEnrichesEveryEntry(t *testing.T) {
	gw := &stubGateway{
		videos: []platform.Video{readyVideo("a", nil), readyVideo("b", nil)},
	}
	enricher := &countingEnricher{}
	agg := NewAggregator(gw, enricher, nil)

	got, err := agg.Library(context.Background())
	if err != nil {
		t.Fatalf("Library: %v", err)
	}
	if enricher.calls != 2 {
		t.Errorf("enricher calls = %d, want 2", enricher.calls)
	}
	for _, v := range got {
		if v.Embed == "" {
			t.Errorf("video %s not enriched", v.UID)
		}
	}
}

func uids(vs []platform.Video) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = v.UID
	}
	return out
}
