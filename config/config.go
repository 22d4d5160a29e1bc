package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Server Server
	Stream Stream
	Ingest Ingest
	Poller Poller
	Redis  Redis
	AWS    AWS
}

// Server holds HTTP server settings.
type Server struct {
	Port               string
	ReadTimeout        int
	WriteTimeout       int
	CORSAllowedOrigins string // comma-separated, or "*" for all
}

// Stream holds the remote video platform account settings. AccountID and
// APIToken gate every API call. Subdomain gates playback URL construction:
// absent means platform-native URLs only.
type Stream struct {
	APIBase   string
	AccountID string
	APIToken  string

	Subdomain             string
	RequireSignedPlayback bool
	SigningKeyID          string
	SigningKeyPEM         string // path to RSA private key PEM; empty disables local signing
	TokenTTLMinutes       int

	UploadMaxDurationSeconds int
	UploadAllowedOrigins     []string
	CaptionLanguage          string
}

// Ingest holds live capture and WebRTC settings.
type Ingest struct {
	ICEUrls       []string // e.g. stun:stun.l.google.com:19302 (comma-separated in env)
	RTPVideoPort  int
	RTPAudioPort  int
}

// Poller holds readiness polling bounds.
type Poller struct {
	IntervalSeconds int
	MaxAttempts     int
}

// Redis holds Redis connection settings (events pub/sub + archive queue).
type Redis struct {
	Addr     string
	Password string
	DB       int
}

// AWS holds credentials and the archive bucket.
type AWS struct {
	Region               string
	AccessKeyID          string
	SecretAccessKey      string
	ArchiveBucket        string
	PresignExpireMinutes int
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: Server{
			Port:               getEnv("PORT", "8080"),
			ReadTimeout:        getEnvInt("READ_TIMEOUT_SEC", 30),
			WriteTimeout:       getEnvInt("WRITE_TIMEOUT_SEC", 60),
			CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
		},
		Stream: Stream{
			APIBase:   getEnv("STREAM_API_BASE", ""),
			AccountID: getEnv("STREAM_ACCOUNT_ID", ""),
			APIToken:  getEnv("STREAM_API_TOKEN", ""),

			Subdomain:             getEnv("STREAM_SUBDOMAIN", ""),
			RequireSignedPlayback: getEnvBool("STREAM_REQUIRE_SIGNED_PLAYBACK", false),
			SigningKeyID:          getEnv("STREAM_SIGNING_KEY_ID", ""),
			SigningKeyPEM:         getEnv("STREAM_SIGNING_KEY_PEM", ""),
			TokenTTLMinutes:       getEnvInt("STREAM_TOKEN_TTL_MINUTES", 60),

			UploadMaxDurationSeconds: getEnvInt("STREAM_UPLOAD_MAX_DURATION_SEC", 3600),
			UploadAllowedOrigins:     splitTrim(getEnv("STREAM_UPLOAD_ALLOWED_ORIGINS", ""), ","),
			CaptionLanguage:          getEnv("STREAM_CAPTION_LANGUAGE", "en"),
		},
		Ingest: Ingest{
			ICEUrls:      splitTrim(getEnv("WEBRTC_ICE_URLS", "stun:stun.l.google.com:19302"), ","),
			RTPVideoPort: getEnvInt("INGEST_RTP_VIDEO_PORT", 5004),
			RTPAudioPort: getEnvInt("INGEST_RTP_AUDIO_PORT", 5006),
		},
		Poller: Poller{
			IntervalSeconds: getEnvInt("READINESS_POLL_INTERVAL_SEC", 5),
			MaxAttempts:     getEnvInt("READINESS_POLL_MAX_ATTEMPTS", 24),
		},
		Redis: Redis{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		AWS: AWS{
			Region:               getEnv("AWS_REGION", ""),
			AccessKeyID:          getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey:      getEnv("AWS_SECRET_ACCESS_KEY", ""),
			ArchiveBucket:        getEnv("AWS_S3_ARCHIVE_BUCKET", ""),
			PresignExpireMinutes: getEnvInt("AWS_PRESIGN_EXPIRE_MINUTES", 15),
		},
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func splitTrim(s, sep string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, v := range strings.Split(s, sep) {
		if t := strings.TrimSpace(v); t != "" {
			out = append(out, t)
		}
	}
	return out
}
