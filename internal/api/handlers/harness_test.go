package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"roastbot-api/internal/api/middleware"
	"roastbot-api/internal/config"
	"roastbot-api/internal/services/analysis"
	"roastbot-api/internal/services/auth"
	"roastbot-api/internal/services/roast"
	"roastbot-api/internal/services/store"
	"roastbot-api/internal/services/stream"
	"roastbot-api/internal/services/tts"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const (
	testDeviceKey = "device-secret"
	testRoastText = "Your golf swing files a complaint every time you pick up a club."
)

// testEnv assembles the handler stack against a temp SQLite file and fake
// Perplexity and ElevenLabs backends. The route table mirrors the server's.
type testEnv struct {
	router  *gin.Engine
	cfg     *config.Config
	store   *store.Store
	manager *stream.Manager

	chatFail atomic.Bool
	ttsFail  atomic.Bool
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{}

	chatServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if env.chatFail.Load() {
			http.Error(w, "model overloaded", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"id":"gen-1","object":"chat.completion","created":1720000000,"model":"sonar-small-chat","choices":[{"index":0,"message":{"role":"assistant","content":%q},"finish_reason":"stop"}]}`, testRoastText)
	}))
	t.Cleanup(chatServer.Close)

	ttsServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if env.ttsFail.Load() {
			http.Error(w, "voice unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("AUDIO"))
	}))
	t.Cleanup(ttsServer.Close)

	tmp := t.TempDir()
	cfg := &config.Config{
		DBPath:            filepath.Join(tmp, "test.db"),
		JWTSecret:         "test-secret",
		TokenTTL:          time.Hour,
		BcryptCost:        bcrypt.MinCost,
		DeviceAPIKey:      testDeviceKey,
		UploadDir:         filepath.Join(tmp, "uploads"),
		BaseURL:           "http://localhost:8000",
		HistoryLimit:      50,
		AnalysisTimeout:   time.Second,
		RingCapacity:      5,
		LivenessWindow:    30 * time.Second,
		ViewerFPSLimit:    100,
		IdlePollInterval:  5 * time.Millisecond,
		PlaceholderWidth:  8,
		PlaceholderHeight: 8,
		JPEGQuality:       75,
		PerplexityAPIKey:  "test-key",
		PerplexityBaseURL: chatServer.URL,
		RoastModel:        "sonar-small-chat",
		ElevenLabsAPIKey:  "xi-key",
		ElevenLabsBaseURL: ttsServer.URL,
		DefaultVoiceID:    "default-voice",
		TTSModel:          "eleven_multilingual_v2",
		TTSTimeout:        5 * time.Second,
	}
	if err := os.MkdirAll(cfg.UploadDir, 0755); err != nil {
		t.Fatalf("create upload dir: %v", err)
	}

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	authService := auth.NewService(cfg)
	manager := stream.NewManager(cfg, nil)
	ingestor := stream.NewIngestor(manager, analysis.NewStub(), cfg.AnalysisTimeout, nil, nil)
	roastService := roast.NewService(cfg, st, nil, nil)
	ttsService := tts.NewService(cfg, nil)

	authHandler := NewAuthHandler(authService, st)
	userHandler := NewUserHandler(st, cfg)
	roastHandler := NewRoastHandler(st, roastService, ttsService, cfg)
	streamHandler := NewStreamHandler(manager, ingestor)
	healthHandler := NewHealthHandler("roastbot-api")
	systemHandler := NewSystemHandler(manager, nil)

	requireAuth := middleware.RequireAuth(authService, st)
	requireDeviceKey := middleware.RequireDeviceKey(cfg.DeviceAPIKey)

	router := gin.New()
	router.GET("/", healthHandler.Welcome)
	router.GET("/health", healthHandler.HealthCheck)

	authGroup := router.Group("/auth")
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
	}

	users := router.Group("/users", requireAuth)
	{
		users.GET("", userHandler.List)
		users.GET("/me", userHandler.Me)
		users.PUT("/me", userHandler.UpdateMe)
		users.POST("/me/profile-image", userHandler.ProfileImage)
		users.PUT("/:target_user_id/roast-config", roastHandler.UpdateConfig)
		users.GET("/:target_user_id/roast-config", roastHandler.GetConfig)
		users.POST("/:target_user_id/roast", roastHandler.SubmitRoast)
		users.GET("/:target_user_id/all-roasts", roastHandler.AllRoasts)
	}

	apiGroup := router.Group("/api")
	{
		apiGroup.POST("/generate-roast/:user_id", roastHandler.GenerateRoast)
		apiGroup.GET("/roast-history/:user_id", requireAuth, roastHandler.History)
		apiGroup.GET("/streams", requireAuth, streamHandler.ListStreams)
		apiGroup.GET("/streams/:stream_id/live", requireAuth, streamHandler.LiveAnalysis)
		apiGroup.GET("/stream/:stream_id/analysis", requireAuth, streamHandler.StreamAnalysis)
		apiGroup.GET("/stream/:stream_id/feed", requireAuth, streamHandler.StreamFeed)
		apiGroup.GET("/public-stream/:stream_id/:api_key", streamHandler.PublicStream(cfg.DeviceAPIKey))

		raspi := apiGroup.Group("/raspi")
		{
			raspi.POST("/trigger-roast", requireDeviceKey, roastHandler.TriggerRoast)
			raspi.POST("/stream-frame", requireDeviceKey, streamHandler.StreamFrame)
			raspi.POST("/upload_frame", streamHandler.UploadFrame)
		}
	}

	system := router.Group("/system")
	{
		system.GET("/stats", systemHandler.GetStats)
		system.GET("/debug", systemHandler.GetDebugInfo)
	}

	env.router = router
	env.cfg = cfg
	env.store = st
	env.manager = manager
	return env
}

// doJSON performs a request with an optional JSON body and bearer token.
func (e *testEnv) doJSON(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var payload map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return payload
}

// register creates an account through the API and returns its ID.
func (e *testEnv) register(t *testing.T, name, email, password string) string {
	t.Helper()
	rec := e.doJSON(t, "POST", "/auth/register", "", map[string]string{
		"name":     name,
		"email":    email,
		"password": password,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("register %s: status %d: %s", email, rec.Code, rec.Body.String())
	}
	return decodeBody(t, rec)["id"].(string)
}

// login exchanges credentials for a bearer token.
func (e *testEnv) login(t *testing.T, email, password string) string {
	t.Helper()
	rec := e.doJSON(t, "POST", "/auth/login", "", map[string]string{
		"email":    email,
		"password": password,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login %s: status %d: %s", email, rec.Code, rec.Body.String())
	}
	return decodeBody(t, rec)["access_token"].(string)
}

// jpegFixture returns a tiny JPEG the stub analyzer accepts.
func jpegFixture(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	return buf.Bytes()
}
