package models

import (
	"encoding/json"
	"time"
)

// RoastConfig is one user's roast configuration for a target user. Topics are
// stored as a JSON-encoded string list, matching the history rows.
type RoastConfig struct {
	UserID       string `gorm:"primaryKey" json:"user_id"`
	TargetUserID string `gorm:"primaryKey;index" json:"target_user_id"`
	Topics       string `gorm:"not null" json:"-"`
	Style        string `gorm:"not null" json:"style"`
}

// TableName overrides the default pluralization
func (RoastConfig) TableName() string {
	return "roast_configs"
}

// RoastHistory is one generated roast, kept for the target user's history
// feed.
type RoastHistory struct {
	ID              string    `gorm:"primaryKey" json:"id"`
	TargetUserID    string    `gorm:"index;not null" json:"target_user_id"`
	Name            string    `gorm:"not null" json:"name"`
	Characteristics string    `gorm:"not null" json:"-"`
	RoastText       string    `gorm:"not null" json:"roast_text"`
	CreatedAt       time.Time `json:"created_at"`
}

// TableName overrides the default pluralization
func (RoastHistory) TableName() string {
	return "roast_history"
}

// EncodeTopics serializes a topic list for storage alongside the config row.
func EncodeTopics(topics []string) string {
	if topics == nil {
		topics = []string{}
	}
	data, _ := json.Marshal(topics)
	return string(data)
}

// DecodeTopics parses a stored topic list. Malformed or empty rows yield an
// empty list.
func DecodeTopics(raw string) []string {
	var topics []string
	if err := json.Unmarshal([]byte(raw), &topics); err != nil || topics == nil {
		return []string{}
	}
	return topics
}

// RoastConfigRequest for PUT /users/{id}/roast-config and POST /users/{id}/roast.
type RoastConfigRequest struct {
	Topics []string `json:"topics" binding:"required"`
	Style  string   `json:"style" binding:"required"`
}

// RoastConfigResponse mirrors RoastConfigRequest with decoded topics.
type RoastConfigResponse struct {
	Topics []string `json:"topics"`
	Style  string   `json:"style"`
}

// UserRoastConfig is a config row joined with its author's name.
type UserRoastConfig struct {
	UserID   string   `json:"user_id"`
	UserName string   `json:"user_name"`
	Topics   []string `json:"topics"`
	Style    string   `json:"style"`
}

// RoastRequest names the person standing in front of the camera.
type RoastRequest struct {
	Name string `json:"name" binding:"required"`
}

// RoastResponse for POST /api/generate-roast/{id}.
type RoastResponse struct {
	Roast   string `json:"roast"`
	RoastID string `json:"roast_id"`
}

// RoastHistoryItem is the client view of a history row.
type RoastHistoryItem struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Characteristics []string `json:"characteristics"`
	RoastText       string   `json:"roast_text"`
	CreatedAt       string   `json:"created_at"`
}

// TriggerRoastRequest for POST /api/raspi/trigger-roast. VoiceID and Format
// are optional; the configured defaults apply when empty. Field presence is
// checked by the handler so the device gets a plain 400 rather than a
// validation error.
type TriggerRoastRequest struct {
	UserID  string `json:"user_id"`
	Name    string `json:"name"`
	VoiceID string `json:"voice_id,omitempty"`
	Format  string `json:"format,omitempty"`
}

// TriggerRoastFallback is returned when speech synthesis fails and the roast
// text is delivered instead of audio.
type TriggerRoastFallback struct {
	Roast   string `json:"roast"`
	RoastID string `json:"roast_id"`
	Error   string `json:"error"`
}
