package handlers

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"roastbot-api/internal/api/middleware"
	"roastbot-api/internal/config"
	"roastbot-api/internal/helpers"
	"roastbot-api/internal/logging"
	"roastbot-api/internal/models"
	"roastbot-api/internal/services/store"
)

type UserHandler struct {
	store     *store.Store
	uploadDir string
	baseURL   string
}

func NewUserHandler(st *store.Store, cfg *config.Config) *UserHandler {
	return &UserHandler{
		store:     st,
		uploadDir: cfg.UploadDir,
		baseURL:   cfg.BaseURL,
	}
}

// Me returns the authenticated user's own profile
// @Summary Get current user
// @Description Return the profile of the authenticated user
// @Tags users
// @Produce json
// @Success 200 {object} models.UserResponse
// @Failure 401 {object} ErrorResponse
// @Security BearerAuth
// @Router /users/me [get]
func (h *UserHandler) Me(c *gin.Context) {
	user := middleware.CurrentUser(c)
	c.JSON(http.StatusOK, models.UserResponse{ID: user.ID, Name: user.Name, Email: user.Email})
}

// List returns every other user as a roast target candidate
// @Summary List users
// @Description Return all users except the caller
// @Tags users
// @Produce json
// @Success 200 {array} models.PublicUser
// @Failure 401 {object} ErrorResponse
// @Security BearerAuth
// @Router /users [get]
func (h *UserHandler) List(c *gin.Context) {
	user := middleware.CurrentUser(c)

	users, err := h.store.ListOtherUsers(user.ID)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list users")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		return
	}

	public := make([]models.PublicUser, 0, len(users))
	for _, u := range users {
		public = append(public, models.PublicUser{
			ID:         u.ID,
			Name:       u.Name,
			Image:      u.Image,
			RoastCount: u.RoastCount,
		})
	}
	c.JSON(http.StatusOK, public)
}

// UpdateMe updates name and/or email of the authenticated user
// @Summary Update profile
// @Description Update the caller's name and/or email. Omitted fields are left unchanged
// @Tags users
// @Accept json
// @Produce json
// @Param request body models.UpdateProfileRequest true "Fields to update"
// @Success 200 {object} models.UserResponse
// @Failure 401 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Security BearerAuth
// @Router /users/me [put]
func (h *UserHandler) UpdateMe(c *gin.Context) {
	user := middleware.CurrentUser(c)

	var req models.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
		return
	}

	updated, err := h.store.UpdateUserProfile(user.ID, &req)
	if err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("Failed to update profile")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, models.UserResponse{ID: updated.ID, Name: updated.Name, Email: updated.Email})
}

// ProfileImage stores a base64-encoded profile photo and returns its URL
// @Summary Upload profile image
// @Description Decode a base64 image, store it under the uploads directory and record its URL
// @Tags users
// @Accept json
// @Produce json
// @Param request body models.ProfileImageRequest true "Base64 image payload"
// @Success 200 {object} models.ProfileImageResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Security BearerAuth
// @Router /users/me/profile-image [post]
func (h *UserHandler) ProfileImage(c *gin.Context) {
	user := middleware.CurrentUser(c)

	var req models.ProfileImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
		return
	}

	imageBytes, err := helpers.DecodeBase64Image(req.ImageData)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": fmt.Sprintf("Invalid image data: %v", err)})
		return
	}

	filename := fmt.Sprintf("%s_profile.jpg", user.ID)
	if err := os.WriteFile(filepath.Join(h.uploadDir, filename), imageBytes, 0644); err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("Failed to write profile image")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		return
	}

	imageURL := fmt.Sprintf("%s/uploads/%s", h.baseURL, filename)
	if err := h.store.SetProfileImage(user.ID, imageURL); err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("Failed to record profile image")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		return
	}

	logging.Info(c).Msg("Profile image updated")
	c.JSON(http.StatusOK, models.ProfileImageResponse{ImageURL: imageURL})
}
