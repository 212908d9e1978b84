package handlers

import (
	"net/http"
	"testing"
)

func TestWelcome(t *testing.T) {
	env := newTestEnv(t)

	rec := env.doJSON(t, "GET", "/", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	if msg := decodeBody(t, rec)["message"]; msg != "Welcome to the Roast Bot API" {
		t.Errorf("unexpected message %v", msg)
	}
}

func TestHealthCheck(t *testing.T) {
	env := newTestEnv(t)

	rec := env.doJSON(t, "GET", "/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["status"] != "healthy" || body["service"] != "roastbot-api" {
		t.Errorf("unexpected body %v", body)
	}
}

func TestSystemStats(t *testing.T) {
	env := newTestEnv(t)
	env.uploadFrame(t, "cam-pi", jpegFixture(t))

	rec := env.doJSON(t, "GET", "/system/stats", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["success"] != true {
		t.Fatalf("unexpected body %v", body)
	}
	stats, ok := body["stats"].(map[string]interface{})
	if !ok {
		t.Fatalf("missing stats object: %v", body)
	}
	if stats["streams"].(float64) != 1 || stats["frames_received"].(float64) != 1 {
		t.Errorf("unexpected stream counters %v", stats)
	}
	if stats["nats_connected"] != false {
		t.Errorf("nats should read disconnected, got %v", stats["nats_connected"])
	}
	if version, _ := stats["go_version"].(string); version == "" {
		t.Error("missing go_version")
	}
	if body["timestamp"].(float64) <= 0 {
		t.Errorf("unexpected timestamp %v", body["timestamp"])
	}
}

func TestSystemDebug(t *testing.T) {
	env := newTestEnv(t)

	rec := env.doJSON(t, "GET", "/system/debug", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	body := decodeBody(t, rec)
	debug, ok := body["debug"].(map[string]interface{})
	if !ok {
		t.Fatalf("missing debug object: %v", body)
	}
	endpoints, _ := debug["endpoints"].([]interface{})
	if len(endpoints) == 0 {
		t.Fatal("missing endpoint listing")
	}
	found := false
	for _, e := range endpoints {
		if e == "/api/streams" {
			found = true
		}
	}
	if !found {
		t.Errorf("endpoint listing incomplete: %v", endpoints)
	}
}
