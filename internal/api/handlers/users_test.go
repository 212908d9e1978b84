package handlers

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestUsersRequireAuth(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/users", "/users/me"} {
		rec := env.doJSON(t, "GET", path, "", nil)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s without token: expected 401, got %d", path, rec.Code)
		}
	}
}

func TestListUsersExcludesCaller(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "Dana", "dana@example.com", "hunter22")
	eliID := env.register(t, "Eli", "eli@example.com", "hunter22")
	token := env.login(t, "dana@example.com", "hunter22")

	rec := env.doJSON(t, "GET", "/users", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list users: status %d", rec.Code)
	}

	var users []map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &users); err != nil {
		t.Fatalf("decode users: %v", err)
	}
	if len(users) != 1 {
		t.Fatalf("expected 1 user, got %d", len(users))
	}
	if users[0]["id"] != eliID || users[0]["name"] != "Eli" {
		t.Fatalf("unexpected listing %v", users[0])
	}
	if _, ok := users[0]["email"]; ok {
		t.Error("email leaked in public listing")
	}
	if users[0]["roast_count"].(float64) != 0 {
		t.Errorf("unexpected roast count %v", users[0]["roast_count"])
	}
}

func TestUpdateProfilePartial(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "Dana", "dana@example.com", "hunter22")
	token := env.login(t, "dana@example.com", "hunter22")

	rec := env.doJSON(t, "PUT", "/users/me", token, map[string]string{"name": "Dana Renamed"})
	if rec.Code != http.StatusOK {
		t.Fatalf("update name: status %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["name"] != "Dana Renamed" || body["email"] != "dana@example.com" {
		t.Fatalf("partial update wrong: %v", body)
	}

	// Empty update returns the unchanged profile
	rec = env.doJSON(t, "PUT", "/users/me", token, map[string]string{})
	if rec.Code != http.StatusOK {
		t.Fatalf("empty update: status %d", rec.Code)
	}
	if decodeBody(t, rec)["name"] != "Dana Renamed" {
		t.Fatal("empty update altered the profile")
	}
}

func TestProfileImageUpload(t *testing.T) {
	env := newTestEnv(t)
	userID := env.register(t, "Dana", "dana@example.com", "hunter22")
	token := env.login(t, "dana@example.com", "hunter22")

	frame := jpegFixture(t)
	payload := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(frame)

	rec := env.doJSON(t, "POST", "/users/me/profile-image", token, map[string]string{"image_data": payload})
	if rec.Code != http.StatusOK {
		t.Fatalf("upload image: status %d: %s", rec.Code, rec.Body.String())
	}

	wantURL := "http://localhost:8000/uploads/" + userID + "_profile.jpg"
	if got := decodeBody(t, rec)["image_url"]; got != wantURL {
		t.Fatalf("unexpected image url %v, want %s", got, wantURL)
	}

	stored, err := os.ReadFile(filepath.Join(env.cfg.UploadDir, userID+"_profile.jpg"))
	if err != nil {
		t.Fatalf("image file not written: %v", err)
	}
	if len(stored) != len(frame) {
		t.Fatalf("stored %d bytes, want %d", len(stored), len(frame))
	}

	user, err := env.store.GetUserByID(userID)
	if err != nil {
		t.Fatalf("reload user: %v", err)
	}
	if user.Image != wantURL {
		t.Fatalf("image url not recorded, got %q", user.Image)
	}
}

func TestProfileImageInvalidData(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "Dana", "dana@example.com", "hunter22")
	token := env.login(t, "dana@example.com", "hunter22")

	rec := env.doJSON(t, "POST", "/users/me/profile-image", token, map[string]string{"image_data": "!!!bad!!!"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	detail, _ := decodeBody(t, rec)["detail"].(string)
	if !strings.HasPrefix(detail, "Invalid image data:") {
		t.Fatalf("unexpected detail %q", detail)
	}
}
