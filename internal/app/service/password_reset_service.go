package service

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/hometownhq/hometown-backend/internal/app/model"
	"github.com/hometownhq/hometown-backend/internal/app/repository"
	"github.com/hometownhq/hometown-backend/pkg/logger"
	"github.com/hometownhq/hometown-backend/pkg/mailer"
	"github.com/hometownhq/hometown-backend/pkg/util"
	"gorm.io/gorm"
)

var ErrInvalidResetToken = errors.New("invalid or expired reset token")

// ResetTokenLength is the byte length of entropy behind a reset token;
// tokens go out hex-encoded, so twice this many characters.
const ResetTokenLength = 32

// MailOutcome reports one attempted reset-mail delivery. Outcomes are
// published on a channel so operators can alert on systemic delivery
// failure; they never influence the HTTP response, which is decided before
// the mail leaves.
type MailOutcome struct {
	Email string
	Err   error
	At    time.Time
}

type PasswordResetService interface {
	RequestReset(email string) error
	ResetPassword(token, newPassword string) error
	MailOutcomes() <-chan MailOutcome
}

type PasswordResetOptions struct {
	BaseURL            string
	TokenTTL           time.Duration
	InvalidatePrevious bool
}

type passwordResetService struct {
	resetRepo repository.PasswordResetRepository
	userRepo  repository.UserRepository
	mail      mailer.Mailer
	opts      PasswordResetOptions
	outcomes  chan MailOutcome
}

func NewPasswordResetService(
	resetRepo repository.PasswordResetRepository,
	userRepo repository.UserRepository,
	mail mailer.Mailer,
	opts PasswordResetOptions,
) PasswordResetService {
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 30 * time.Minute
	}
	return &passwordResetService{
		resetRepo: resetRepo,
		userRepo:  userRepo,
		mail:      mail,
		opts:      opts,
		outcomes:  make(chan MailOutcome, 64),
	}
}

func (s *passwordResetService) RequestReset(email string) error {
	logger.Info("Processing password reset request", map[string]interface{}{
		"email": email,
	})

	user, err := s.userRepo.FindByEmail(email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Anti-enumeration: the caller gets the same acknowledgment
			// whether or not the account exists.
			logger.Warn("Password reset requested for non-existent email", map[string]interface{}{
				"email": email,
			})
			return nil
		}
		logger.Error("Failed to find user for password reset", err, map[string]interface{}{
			"email": email,
		})
		return err
	}

	token, err := generateResetToken()
	if err != nil {
		logger.Error("Failed to generate reset token", err, map[string]interface{}{
			"email": email,
		})
		return err
	}

	if s.opts.InvalidatePrevious {
		if err := s.resetRepo.InvalidateForUser(user.ID); err != nil {
			logger.Error("Failed to invalidate previous reset tokens", err, map[string]interface{}{
				"user_id": user.ID,
			})
			return err
		}
	}

	reset := &model.PasswordResetToken{
		UserID:    user.ID,
		Token:     token,
		ExpiresAt: time.Now().Add(s.opts.TokenTTL),
		Used:      false,
	}

	if err := s.resetRepo.Create(reset); err != nil {
		logger.Error("Failed to create password reset token", err, map[string]interface{}{
			"user_id": user.ID,
		})
		return err
	}

	// The token is persisted and the response outcome decided; delivery is
	// fire-and-forget from here and must not block the request.
	link := fmt.Sprintf("%s/reset-password?token=%s", s.opts.BaseURL, token)
	go s.deliverResetMail(user.Email, link)

	logger.Info("Password reset token issued", map[string]interface{}{
		"user_id":    user.ID,
		"expires_at": reset.ExpiresAt,
	})

	return nil
}

func (s *passwordResetService) ResetPassword(token, newPassword string) error {
	logger.Info("Processing password reset with token")

	hashedPassword, err := util.HashPassword(newPassword)
	if err != nil {
		logger.Error("Failed to hash new password", err, nil)
		return err
	}

	reset, err := s.resetRepo.Consume(token, hashedPassword)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Unknown, already used and expired are indistinguishable to
			// the caller.
			logger.Warn("Invalid reset token provided", nil)
			return ErrInvalidResetToken
		}
		logger.Error("Failed to consume reset token", err, nil)
		return err
	}

	logger.Info("Password reset successful", map[string]interface{}{
		"user_id": reset.UserID,
	})

	return nil
}

func (s *passwordResetService) MailOutcomes() <-chan MailOutcome {
	return s.outcomes
}

func (s *passwordResetService) deliverResetMail(email, link string) {
	subject := "Reset your HomeTown password"
	body := resetMailBody(link)

	err := s.mail.Send(email, subject, body)
	if err != nil {
		logger.Error("Failed to send reset email", err, map[string]interface{}{
			"email": email,
		})
	}

	// Non-blocking publish: a slow or absent consumer must never stall
	// mail delivery goroutines.
	select {
	case s.outcomes <- MailOutcome{Email: email, Err: err, At: time.Now()}:
	default:
	}
}

func resetMailBody(link string) string {
	return fmt.Sprintf(`
<div style="font-family:Arial,sans-serif">
  <h2>Reset your password</h2>
  <p>Click the button below (valid for 30 minutes):</p>
  <p><a href="%s" style="background:#1ABC9C;color:#fff;padding:10px 16px;border-radius:6px;text-decoration:none">Reset Password</a></p>
  <p>If the button doesn't work, copy this link:</p>
  <p>%s</p>
</div>`, link, link)
}

// generateResetToken creates a cryptographically secure random token
func generateResetToken() (string, error) {
	bytes := make([]byte, ResetTokenLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
