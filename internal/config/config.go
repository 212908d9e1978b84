package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	// Application
	Version     string
	Environment string
	Port        int
	LogLevel    string

	// Logdy (lightweight web log viewer)
	LogdyEnabled bool
	LogdyHost    string
	LogdyPort    int

	// Auth
	JWTSecret    string
	TokenTTL     time.Duration
	BcryptCost   int
	DeviceAPIKey string

	// Database
	DBPath string

	// Frame Ingest
	// Analysis runs inline on the ingest path, so it gets a hard deadline
	// to keep device uploads responsive.
	AnalysisTimeout time.Duration
	AnalysisURL     string
	RingCapacity    int
	LivenessWindow  time.Duration

	// Stream Output
	ViewerFPSLimit    int
	IdlePollInterval  time.Duration
	PlaceholderWidth  int
	PlaceholderHeight int
	JPEGQuality       int

	// Roast Generation (Perplexity via OpenAI-compatible API)
	PerplexityAPIKey  string
	PerplexityBaseURL string
	RoastModel        string
	RoastMaxTokens    int
	HistoryLimit      int

	// Text to Speech (ElevenLabs)
	ElevenLabsAPIKey  string
	ElevenLabsBaseURL string
	DefaultVoiceID    string
	TTSModel          string
	TTSTimeout        time.Duration

	// Uploads
	UploadDir string
	BaseURL   string

	// Device Agent (Pi-side client, cmd/device)
	DeviceServerURL        string
	DeviceStreamID         string
	DeviceFPS              int
	DeviceJPEGQuality      int
	DeviceFrameDir         string
	DeviceUploadMode       string
	DeviceUserID           string
	DeviceAudioFile        string
	DeviceFrameTimeout     time.Duration
	DeviceTriggerTimeout   time.Duration
	DeviceBackoffMin       time.Duration
	DeviceBackoffMax       time.Duration
	DeviceBackoffJitterPct int

	// NATS (for event fan-out)
	// Default: nats://localhost:4222 (works with Docker Compose setup)
	// Docker: Use nats://nats:4222 if running the server in Docker
	NatsEnabled        bool
	NatsURL            string
	NatsConnectTimeout time.Duration
	NatsReconnectWait  time.Duration
	NatsMaxReconnects  int
	NatsDrainTimeout   time.Duration // For graceful shutdown

	// HTTP
	CORSOrigin string

	// Swagger Configuration
	SwaggerHost string
	SwaggerPort int

	// Graceful Shutdown
	ShutdownTimeout time.Duration
}

func Load() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("No .env file found or error loading .env file, using environment variables and defaults")
	} else {
		log.Info().Msg("Loaded configuration from .env file")
	}

	return &Config{
		// Application
		Version:     getEnv("VERSION", "1.0.0"),
		Environment: getEnv("ENVIRONMENT", "development"),
		Port:        getEnvInt("PORT", 8000),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		// Logdy (lightweight web log viewer)
		LogdyEnabled: getEnvBool("LOGDY_ENABLED", false),
		LogdyHost:    getEnv("LOGDY_HOST", "localhost"),
		LogdyPort:    getEnvInt("LOGDY_PORT", 8080),

		// Auth
		JWTSecret:    getEnv("SECRET_KEY", "your-secret-key-for-jwt"),
		TokenTTL:     getEnvDuration("ACCESS_TOKEN_TTL", 30*time.Minute),
		BcryptCost:   getEnvInt("BCRYPT_COST", 10),
		DeviceAPIKey: getEnv("RASPI_API_KEY", "raspberry_secret_key"),

		// Database
		DBPath: getEnv("DB_PATH", "data/roastbot.db"),

		// Frame Ingest
		AnalysisTimeout: getEnvDuration("ANALYSIS_TIMEOUT", 2*time.Second),
		AnalysisURL:     getEnv("ANALYSIS_URL", ""),
		RingCapacity:    getEnvInt("FRAME_RING_CAPACITY", 30),
		LivenessWindow:  getEnvDuration("STREAM_LIVENESS_WINDOW", 30*time.Second),

		// Stream Output
		ViewerFPSLimit:    getEnvInt("VIEWER_FPS_LIMIT", 15),
		IdlePollInterval:  getEnvDuration("VIEWER_IDLE_POLL", 100*time.Millisecond),
		PlaceholderWidth:  getEnvInt("PLACEHOLDER_WIDTH", 640),
		PlaceholderHeight: getEnvInt("PLACEHOLDER_HEIGHT", 480),
		JPEGQuality:       getEnvInt("JPEG_QUALITY", 75),

		// Roast Generation
		PerplexityAPIKey:  getEnv("PERPLEXITY_API_KEY", ""),
		PerplexityBaseURL: getEnv("PERPLEXITY_BASE_URL", "https://api.perplexity.ai"),
		RoastModel:        getEnv("ROAST_MODEL", "sonar-small-chat"),
		RoastMaxTokens:    getEnvInt("ROAST_MAX_TOKENS", 200),
		HistoryLimit:      getEnvInt("ROAST_HISTORY_LIMIT", 50),

		// Text to Speech
		ElevenLabsAPIKey:  getEnv("ELEVENLABS_API_KEY", ""),
		ElevenLabsBaseURL: getEnv("ELEVENLABS_BASE_URL", "https://api.elevenlabs.io"),
		DefaultVoiceID:    getEnv("ELEVENLABS_VOICE_ID", "jsCqWAovK2LkecY7zXl4"),
		TTSModel:          getEnv("ELEVENLABS_MODEL", "eleven_multilingual_v2"),
		TTSTimeout:        getEnvDuration("TTS_TIMEOUT", 30*time.Second),

		// Uploads
		UploadDir: getEnv("UPLOAD_DIR", "data/uploads"),
		BaseURL:   getEnv("BASE_URL", "http://localhost:8000"),

		// Device Agent (env names kept from the Pi scripts)
		DeviceServerURL:        getEnv("API_URL", "http://localhost:8000"),
		DeviceStreamID:         getEnv("STREAM_ID", "camera1"),
		DeviceFPS:              getEnvInt("DEVICE_FPS", 10),
		DeviceJPEGQuality:      getEnvInt("DEVICE_JPEG_QUALITY", 70),
		DeviceFrameDir:         getEnv("DEVICE_FRAME_DIR", ""),
		DeviceUploadMode:       getEnv("DEVICE_UPLOAD_MODE", "json"),
		DeviceUserID:           getEnv("USER_ID", ""),
		DeviceAudioFile:        getEnv("DEVICE_AUDIO_FILE", "temp_roast.mp3"),
		DeviceFrameTimeout:     getEnvDuration("DEVICE_FRAME_TIMEOUT", 2*time.Second),
		DeviceTriggerTimeout:   getEnvDuration("DEVICE_TRIGGER_TIMEOUT", 60*time.Second),
		DeviceBackoffMin:       getEnvDuration("DEVICE_BACKOFF_MIN", time.Second),
		DeviceBackoffMax:       getEnvDuration("DEVICE_BACKOFF_MAX", 30*time.Second),
		DeviceBackoffJitterPct: getEnvInt("DEVICE_BACKOFF_JITTER_PCT", 20),

		// NATS (configured for Docker Compose setup)
		NatsEnabled:        getEnvBool("NATS_ENABLED", false),
		NatsURL:            getNatsURL(),
		NatsConnectTimeout: getEnvDuration("NATS_CONNECT_TIMEOUT", 10*time.Second),
		NatsReconnectWait:  getEnvDuration("NATS_RECONNECT_WAIT", 2*time.Second),
		NatsMaxReconnects:  getEnvInt("NATS_MAX_RECONNECTS", -1), // -1 = unlimited
		NatsDrainTimeout:   getEnvDuration("NATS_DRAIN_TIMEOUT", 5*time.Second),

		// HTTP
		CORSOrigin: getEnv("CORS_ORIGIN", "http://localhost:3000"),

		// Swagger Configuration
		SwaggerHost: getEnv("SWAGGER_HOST", "localhost"),
		SwaggerPort: getEnvInt("SWAGGER_PORT", 8000),

		// Graceful Shutdown
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// Helper functions for Docker environment detection
func isRunningInDocker() bool {
	// Check for Docker-specific environment indicators
	if os.Getenv("DOCKER_CONTAINER") == "true" {
		return true
	}

	// Check for .dockerenv file
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true
	}

	return false
}

// getNatsURL returns the appropriate NATS URL based on environment
func getNatsURL() string {
	if envURL := os.Getenv("NATS_URL"); envURL != "" {
		return envURL
	}

	// If running in Docker, use service name; otherwise use localhost
	if isRunningInDocker() {
		return "nats://nats:4222"
	}

	return "nats://localhost:4222"
}
