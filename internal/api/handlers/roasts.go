package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"roastbot-api/internal/api/middleware"
	"roastbot-api/internal/config"
	"roastbot-api/internal/logging"
	"roastbot-api/internal/models"
	"roastbot-api/internal/services/roast"
	"roastbot-api/internal/services/store"
	"roastbot-api/internal/services/tts"
)

// defaultRoastStyle is served when the caller has not configured the target
// yet.
const defaultRoastStyle = "Funny but not too mean"

type RoastHandler struct {
	store        *store.Store
	roasts       *roast.Service
	tts          *tts.Service
	historyLimit int
}

func NewRoastHandler(st *store.Store, roastService *roast.Service, ttsService *tts.Service, cfg *config.Config) *RoastHandler {
	return &RoastHandler{
		store:        st,
		roasts:       roastService,
		tts:          ttsService,
		historyLimit: cfg.HistoryLimit,
	}
}

// targetUser resolves the path parameter against the user table, answering
// 404 when the target does not exist.
func (h *RoastHandler) targetUser(c *gin.Context, param string) (*models.User, bool) {
	user, err := h.store.GetUserByID(c.Param(param))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"detail": "User not found"})
			return nil, false
		}
		log.Error().Err(err).Msg("Failed to load target user")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		return nil, false
	}
	return user, true
}

// UpdateConfig stores the caller's roast config for a target user
// @Summary Set roast config
// @Description Store the caller's topics and style for roasting the target user
// @Tags roasts
// @Accept json
// @Produce json
// @Param target_user_id path string true "Target user ID"
// @Param request body models.RoastConfigRequest true "Topics and style"
// @Success 200 {object} models.RoastConfigResponse
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Security BearerAuth
// @Router /users/{target_user_id}/roast-config [put]
func (h *RoastHandler) UpdateConfig(c *gin.Context) {
	user := middleware.CurrentUser(c)

	var req models.RoastConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
		return
	}

	target, ok := h.targetUser(c, "target_user_id")
	if !ok {
		return
	}

	cfg := &models.RoastConfig{
		UserID:       user.ID,
		TargetUserID: target.ID,
		Topics:       models.EncodeTopics(req.Topics),
		Style:        req.Style,
	}
	if err := h.store.UpsertRoastConfig(cfg); err != nil {
		log.Error().Err(err).Str("target_user_id", target.ID).Msg("Failed to save roast config")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, models.RoastConfigResponse{Topics: req.Topics, Style: req.Style})
}

// GetConfig returns the caller's roast config for a target user
// @Summary Get roast config
// @Description Return the caller's topics and style for the target, or an empty default
// @Tags roasts
// @Produce json
// @Param target_user_id path string true "Target user ID"
// @Success 200 {object} models.RoastConfigResponse
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /users/{target_user_id}/roast-config [get]
func (h *RoastHandler) GetConfig(c *gin.Context) {
	user := middleware.CurrentUser(c)

	target, ok := h.targetUser(c, "target_user_id")
	if !ok {
		return
	}

	cfg, err := h.store.GetRoastConfig(user.ID, target.ID)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusOK, models.RoastConfigResponse{Topics: []string{}, Style: defaultRoastStyle})
		return
	}
	if err != nil {
		log.Error().Err(err).Str("target_user_id", target.ID).Msg("Failed to load roast config")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, models.RoastConfigResponse{Topics: models.DecodeTopics(cfg.Topics), Style: cfg.Style})
}

// SubmitRoast saves the caller's config and bumps the target's roast count
// @Summary Submit a roast
// @Description Store the caller's config for the target and increment the target's roast counter
// @Tags roasts
// @Accept json
// @Produce json
// @Param target_user_id path string true "Target user ID"
// @Param request body models.RoastConfigRequest true "Topics and style"
// @Success 200 {object} RoastSubmitResponse
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Security BearerAuth
// @Router /users/{target_user_id}/roast [post]
func (h *RoastHandler) SubmitRoast(c *gin.Context) {
	user := middleware.CurrentUser(c)

	var req models.RoastConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
		return
	}

	target, ok := h.targetUser(c, "target_user_id")
	if !ok {
		return
	}

	cfg := &models.RoastConfig{
		UserID:       user.ID,
		TargetUserID: target.ID,
		Topics:       models.EncodeTopics(req.Topics),
		Style:        req.Style,
	}
	if err := h.store.UpsertRoastConfig(cfg); err != nil {
		log.Error().Err(err).Str("target_user_id", target.ID).Msg("Failed to save roast config")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		return
	}
	if err := h.store.IncrementRoastCount(target.ID); err != nil {
		log.Error().Err(err).Str("target_user_id", target.ID).Msg("Failed to increment roast count")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		return
	}

	updated, err := h.store.GetUserByID(target.ID)
	if err != nil {
		log.Error().Err(err).Str("target_user_id", target.ID).Msg("Failed to reload target user")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		return
	}

	logging.Info(c).Str("target_user_id", target.ID).Msg("Roast submitted")
	c.JSON(http.StatusOK, RoastSubmitResponse{Success: true, RoastCount: updated.RoastCount})
}

// AllRoasts lists every user's roast config about the target
// @Summary List roast configs for a user
// @Description Return every author's topics and style about the target user
// @Tags roasts
// @Produce json
// @Param target_user_id path string true "Target user ID"
// @Success 200 {array} models.UserRoastConfig
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /users/{target_user_id}/all-roasts [get]
func (h *RoastHandler) AllRoasts(c *gin.Context) {
	target, ok := h.targetUser(c, "target_user_id")
	if !ok {
		return
	}

	configs, err := h.store.ListConfigsForTarget(target.ID)
	if err != nil {
		log.Error().Err(err).Str("target_user_id", target.ID).Msg("Failed to list roast configs")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, configs)
}

// GenerateRoast produces a roast for a user from the stored configs
// @Summary Generate a roast
// @Description Merge every stored config about the user into a prompt and generate a roast
// @Tags roasts
// @Accept json
// @Produce json
// @Param user_id path string true "Target user ID"
// @Param request body models.RoastRequest true "Name of the person to roast"
// @Success 200 {object} models.RoastResponse
// @Failure 404 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/generate-roast/{user_id} [post]
func (h *RoastHandler) GenerateRoast(c *gin.Context) {
	var req models.RoastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
		return
	}

	resp, err := h.roasts.Generate(c.Request.Context(), c.Param("user_id"), req.Name)
	if err != nil {
		h.roastError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *RoastHandler) roastError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"detail": "User not found"})
	case errors.Is(err, roast.ErrNoConfigs):
		c.JSON(http.StatusNotFound, gin.H{"detail": roast.ErrNoConfigs.Error()})
	default:
		logging.Error(c).Err(err).Msg("Roast generation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": fmt.Sprintf("Error generating roast: %v", err)})
	}
}

// History returns the newest roasts generated for a user
// @Summary Get roast history
// @Description Return the most recent roasts for the user, newest first
// @Tags roasts
// @Produce json
// @Param user_id path string true "Target user ID"
// @Success 200 {array} models.RoastHistoryItem
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /api/roast-history/{user_id} [get]
func (h *RoastHandler) History(c *gin.Context) {
	items, err := h.roasts.History(c.Param("user_id"), h.historyLimit)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"detail": "User not found"})
			return
		}
		log.Error().Err(err).Msg("Failed to load roast history")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, items)
}

// TriggerRoast generates a roast for the device and speaks it
// @Summary Trigger a roast from the device
// @Description Generate a roast for the user and return synthesized speech, falling back to text when synthesis fails
// @Tags device
// @Accept json
// @Produce json
// @Param request body models.TriggerRoastRequest true "Target user and display name"
// @Param format query string false "Audio format (mp3 or pcm)"
// @Success 200 {object} models.TriggerRoastFallback
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/raspi/trigger-roast [post]
func (h *RoastHandler) TriggerRoast(c *gin.Context) {
	var req models.TriggerRoastRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.UserID == "" || req.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "user_id and name are required"})
		return
	}

	resp, err := h.roasts.Generate(c.Request.Context(), req.UserID, req.Name)
	if err != nil {
		h.roastError(c, err)
		return
	}

	format := c.DefaultQuery("format", req.Format)
	if format == "" {
		format = tts.FormatMP3
	}

	audio, contentType, err := h.tts.Synthesize(c.Request.Context(), resp.Roast, req.VoiceID, format)
	if err != nil {
		log.Warn().Err(err).Str("roast_id", resp.RoastID).Msg("TTS generation failed")
		c.JSON(http.StatusOK, models.TriggerRoastFallback{
			Roast:   resp.Roast,
			RoastID: resp.RoastID,
			Error:   "TTS generation failed, returning text only",
		})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=roast_%s.%s", resp.RoastID, format))
	c.Data(http.StatusOK, contentType, audio)
}
