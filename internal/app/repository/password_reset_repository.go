package repository

import (
	"time"

	"github.com/hometownhq/hometown-backend/internal/app/model"
	"github.com/hometownhq/hometown-backend/pkg/logger"
	"gorm.io/gorm"
)

type PasswordResetRepository interface {
	Create(reset *model.PasswordResetToken) error
	// Consume atomically marks the token used and replaces the owning
	// user's password hash. Returns gorm.ErrRecordNotFound when the token
	// is unknown, already used, or expired.
	Consume(token, newPasswordHash string) (*model.PasswordResetToken, error)
	// InvalidateForUser retires every outstanding unused token of a user.
	InvalidateForUser(userID uint) error
	DeleteExpired() (int64, error)
}

type passwordResetRepository struct {
	db *gorm.DB
}

func NewPasswordResetRepository(db *gorm.DB) PasswordResetRepository {
	return &passwordResetRepository{db: db}
}

func (r *passwordResetRepository) Create(reset *model.PasswordResetToken) error {
	logger.Debug("Creating password reset token in database", map[string]interface{}{
		"user_id": reset.UserID,
	})

	if err := r.db.Create(reset).Error; err != nil {
		logger.Error("Failed to create password reset token in database", err, map[string]interface{}{
			"user_id": reset.UserID,
		})
		return err
	}

	logger.Debug("Password reset token created in database", map[string]interface{}{
		"id":      reset.ID,
		"user_id": reset.UserID,
	})
	return nil
}

func (r *passwordResetRepository) Consume(token, newPasswordHash string) (*model.PasswordResetToken, error) {
	logger.Debug("Consuming password reset token in database")

	var reset model.PasswordResetToken
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("token = ? AND used = ? AND expires_at > ?", token, false, time.Now()).
			First(&reset).Error; err != nil {
			return err
		}

		// Conditional flip: a concurrent consumer that read the same row
		// loses here, sees zero affected rows, and rolls back.
		res := tx.Model(&model.PasswordResetToken{}).
			Where("id = ? AND used = ?", reset.ID, false).
			Update("used", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		if err := tx.Model(&model.User{}).
			Where("id = ?", reset.UserID).
			Update("password_hash", newPasswordHash).Error; err != nil {
			return err
		}

		reset.Used = true
		return nil
	})
	if err != nil {
		logger.Error("Failed to consume password reset token in database", err, nil)
		return nil, err
	}

	logger.Debug("Password reset token consumed in database", map[string]interface{}{
		"id":      reset.ID,
		"user_id": reset.UserID,
	})
	return &reset, nil
}

func (r *passwordResetRepository) InvalidateForUser(userID uint) error {
	logger.Debug("Invalidating outstanding password reset tokens in database", map[string]interface{}{
		"user_id": userID,
	})

	if err := r.db.Model(&model.PasswordResetToken{}).
		Where("user_id = ? AND used = ?", userID, false).
		Update("used", true).Error; err != nil {
		logger.Error("Failed to invalidate password reset tokens in database", err, map[string]interface{}{
			"user_id": userID,
		})
		return err
	}
	return nil
}

func (r *passwordResetRepository) DeleteExpired() (int64, error) {
	logger.Debug("Deleting dead password reset tokens from database")

	result := r.db.Where("expires_at < ? OR used = ?", time.Now(), true).
		Delete(&model.PasswordResetToken{})
	if result.Error != nil {
		logger.Error("Failed to delete dead password reset tokens from database", result.Error, nil)
		return 0, result.Error
	}

	logger.Debug("Dead password reset tokens deleted from database", map[string]interface{}{
		"count": result.RowsAffected,
	})
	return result.RowsAffected, nil
}
