package roast

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	"roastbot-api/internal/config"
	"roastbot-api/internal/metrics"
	"roastbot-api/internal/models"
	"roastbot-api/internal/services/messaging"
	"roastbot-api/internal/services/store"
)

// ErrNoConfigs is returned when nobody has written a roast config for the
// target yet.
var ErrNoConfigs = errors.New("no roast configurations found for this user")

// SubjectRoastGenerated is the event bus subject for finished roasts.
const SubjectRoastGenerated = "roasts.generated"

// Service generates roast text via the Perplexity chat API and records each
// roast in history.
type Service struct {
	store     *store.Store
	client    *openai.Client
	model     string
	maxTokens int
	metrics   *metrics.Metrics
	events    *messaging.Service
}

func NewService(cfg *config.Config, st *store.Store, m *metrics.Metrics, events *messaging.Service) *Service {
	clientCfg := openai.DefaultConfig(cfg.PerplexityAPIKey)
	clientCfg.BaseURL = cfg.PerplexityBaseURL

	return &Service{
		store:     st,
		client:    openai.NewClientWithConfig(clientCfg),
		model:     cfg.RoastModel,
		maxTokens: cfg.RoastMaxTokens,
		metrics:   m,
		events:    events,
	}
}

// Generate produces a roast for the target user from every stored config
// about them, saves it to history, and bumps the target's roast counter.
func (s *Service) Generate(ctx context.Context, targetUserID, name string) (*models.RoastResponse, error) {
	if _, err := s.store.GetUserByID(targetUserID); err != nil {
		return nil, err
	}

	configs, err := s.store.ListConfigsForTarget(targetUserID)
	if err != nil {
		return nil, err
	}
	if len(configs) == 0 {
		return nil, ErrNoConfigs
	}

	topicLists := make([][]string, 0, len(configs))
	for _, cfg := range configs {
		topicLists = append(topicLists, cfg.Topics)
	}
	characteristics := buildCharacteristics(topicLists)
	prompt := buildPrompt(name, characteristics)

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     s.model,
		MaxTokens: s.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("chat completion returned no choices")
	}
	roastText := resp.Choices[0].Message.Content

	roastID := uuid.NewString()
	record := &models.RoastHistory{
		ID:              roastID,
		TargetUserID:    targetUserID,
		Name:            name,
		Characteristics: models.EncodeTopics(characteristics),
		RoastText:       roastText,
	}
	if err := s.store.SaveRoast(record); err != nil {
		return nil, err
	}
	if err := s.store.IncrementRoastCount(targetUserID); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RoastsGenerated.Inc()
	}
	s.publishEvent(roastID, targetUserID, name)

	log.Info().Str("roast_id", roastID).Str("target_user_id", targetUserID).Msg("Roast generated")

	return &models.RoastResponse{Roast: roastText, RoastID: roastID}, nil
}

func (s *Service) publishEvent(roastID, targetUserID, name string) {
	if s.events == nil || !s.events.IsConnected() {
		return
	}
	event := models.RoastEvent{
		RoastID:      roastID,
		TargetUserID: targetUserID,
		Name:         name,
		CreatedAt:    time.Now(),
	}
	if err := s.events.Publish(SubjectRoastGenerated, event); err != nil {
		log.Warn().Err(err).Msg("Failed to publish roast event")
	}
}

// History returns the newest roasts for a user with decoded characteristics.
func (s *Service) History(targetUserID string, limit int) ([]models.RoastHistoryItem, error) {
	if _, err := s.store.GetUserByID(targetUserID); err != nil {
		return nil, err
	}

	rows, err := s.store.ListRoastHistory(targetUserID, limit)
	if err != nil {
		return nil, err
	}

	items := make([]models.RoastHistoryItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, models.RoastHistoryItem{
			ID:              row.ID,
			Name:            row.Name,
			Characteristics: models.DecodeTopics(row.Characteristics),
			RoastText:       row.RoastText,
			CreatedAt:       row.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
		})
	}
	return items, nil
}
