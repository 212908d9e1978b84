package store

import (
	"errors"

	"gorm.io/gorm"

	"roastbot-api/internal/models"
)

// CreateUser inserts a new user. Returns ErrEmailTaken when the email is
// already registered.
func (s *Store) CreateUser(user *models.User) error {
	var count int64
	if err := s.db.Model(&models.User{}).Where("email = ?", user.Email).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrEmailTaken
	}
	return s.db.Create(user).Error
}

// GetUserByEmail fetches a user by email for login.
func (s *Store) GetUserByEmail(email string) (*models.User, error) {
	var user models.User
	err := s.db.Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByID fetches a user by primary key.
func (s *Store) GetUserByID(id string) (*models.User, error) {
	var user models.User
	err := s.db.Where("id = ?", id).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ListOtherUsers returns every user except the one given, for the roast
// target picker.
func (s *Store) ListOtherUsers(excludeID string) ([]models.User, error) {
	var users []models.User
	if err := s.db.Where("id <> ?", excludeID).Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// UpdateUserProfile applies the provided fields to the user row. Nil fields
// are left untouched.
func (s *Store) UpdateUserProfile(id string, req *models.UpdateProfileRequest) (*models.User, error) {
	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Email != nil {
		updates["email"] = *req.Email
	}

	if len(updates) > 0 {
		result := s.db.Model(&models.User{}).Where("id = ?", id).Updates(updates)
		if result.Error != nil {
			return nil, result.Error
		}
		if result.RowsAffected == 0 {
			return nil, ErrNotFound
		}
	}
	return s.GetUserByID(id)
}

// SetProfileImage stores the public URL of the user's uploaded photo.
func (s *Store) SetProfileImage(id, imageURL string) error {
	result := s.db.Model(&models.User{}).Where("id = ?", id).Update("image", imageURL)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// IncrementRoastCount bumps the user's lifetime roast counter.
func (s *Store) IncrementRoastCount(id string) error {
	return s.db.Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("roast_count", gorm.Expr("roast_count + ?", 1)).Error
}
