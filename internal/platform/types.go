package platform

import "time"

// Processing states reported by the platform for a video.
const (
	StatePendingUpload = "pendingupload"
	StateDownloading   = "downloading"
	StateQueued        = "queued"
	StateReady         = "ready"
	StateError         = "error"
)

// Live input recording modes.
const (
	RecordingModeAutomatic = "automatic"
	RecordingModeManual    = "manual"
)

// Status is the asynchronous processing state of a video.
type Status struct {
	State        string `json:"state,omitempty"`
	ErrorReason  string `json:"errorReasonCode,omitempty"`
	ErrorMessage string `json:"errorReasonText,omitempty"`
}

// Playback carries the adaptive-streaming manifest URLs for a video.
type Playback struct {
	HLS  string `json:"hls,omitempty"`
	DASH string `json:"dash,omitempty"`
}

// Meta is free-form metadata attached to videos and live inputs.
type Meta struct {
	Name string `json:"name,omitempty"`
}

// Video is an asset tracked by the remote platform. The platform owns its
// lifecycle; this process only caches what the API returned.
type Video struct {
	UID            string     `json:"uid"`
	Meta           Meta       `json:"meta,omitempty"`
	Created        *time.Time `json:"created,omitempty"`
	Modified       *time.Time `json:"modified,omitempty"`
	Duration       float64    `json:"duration,omitempty"`
	ReadyToStream  bool       `json:"readyToStream,omitempty"`
	Status         Status     `json:"status,omitempty"`
	Thumbnail      string     `json:"thumbnail,omitempty"`
	Embed          string     `json:"embed,omitempty"`
	Playback       Playback   `json:"playback,omitempty"`
	WebRTCPlayback string     `json:"webRTCPlayback,omitempty"`

	// Live association. LiveInputID is set by the platform on recordings a
	// live input produced; IsLiveRecording is set by the aggregator when the
	// video was discovered through its live input.
	IsLive          bool   `json:"isLive,omitempty"`
	LiveInputID     string `json:"liveInput,omitempty"`
	IsLiveRecording bool   `json:"isLiveRecording,omitempty"`

	// Paused mirrors the owning live input's paused flag. Meaningful only
	// when the video is associated with a live input.
	Paused bool `json:"paused,omitempty"`
}

// Ready reports whether the video is playable. The platform is inconsistent
// about which of the two signals it populates, so they are treated as an OR.
func (v Video) Ready() bool {
	return v.ReadyToStream || v.Status.State == StateReady
}

// LiveInputRecording configures how a live input records what it ingests.
type LiveInputRecording struct {
	Mode              string `json:"mode,omitempty"`
	TimeoutSeconds    int    `json:"timeoutSeconds,omitempty"`
	RequireSignedURLs bool   `json:"requireSignedURLs,omitempty"`
}

// LiveEndpoint is one transport endpoint of a live input (ingest or playback).
type LiveEndpoint struct {
	URL string `json:"url,omitempty"`
}

// LiveInput is a persistent real-time ingest endpoint on the platform.
// WebRTC is the write side, used only at stream start; WebRTCPlayback is the
// read side and is always taken from this record, never constructed.
type LiveInput struct {
	UID            string             `json:"uid"`
	Meta           Meta               `json:"meta,omitempty"`
	Created        *time.Time         `json:"created,omitempty"`
	Modified       *time.Time         `json:"modified,omitempty"`
	Paused         bool               `json:"paused,omitempty"`
	Recording      LiveInputRecording `json:"recording,omitempty"`
	Embed          string             `json:"embed,omitempty"`
	Playback       Playback           `json:"playback,omitempty"`
	WebRTC         LiveEndpoint       `json:"webRTC,omitempty"`
	WebRTCPlayback LiveEndpoint       `json:"webRTCPlayback,omitempty"`
	Status         LiveInputStatus    `json:"status,omitempty"`
}

// LiveInputStatus is the current connection state of a live input.
type LiveInputStatus struct {
	Current LiveInputState `json:"current,omitempty"`
}

// LiveInputState holds one observed connection state ("live", "disconnected", ...).
type LiveInputState struct {
	State string `json:"state,omitempty"`
}

// DirectUpload is an ephemeral one-shot upload session. The platform
// allocates the video UID before any bytes are sent; the URL is consumed by
// exactly one transfer.
type DirectUpload struct {
	UID       string `json:"uid"`
	UploadURL string `json:"uploadURL"`
}

// DirectUploadRequest provisions a DirectUpload.
type DirectUploadRequest struct {
	MaxDurationSeconds int      `json:"maxDurationSeconds"`
	AllowedOrigins     []string `json:"allowedOrigins,omitempty"`
	RequireSignedURLs  bool     `json:"requireSignedURLs,omitempty"`
	Meta               Meta     `json:"meta,omitempty"`
}

// LiveInputRequest provisions a LiveInput.
type LiveInputRequest struct {
	Meta      Meta               `json:"meta,omitempty"`
	Recording LiveInputRecording `json:"recording,omitempty"`
}
