package service

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hometownhq/hometown-backend/internal/app/model"
	"github.com/hometownhq/hometown-backend/internal/app/repository"
	"github.com/hometownhq/hometown-backend/internal/db"
	"github.com/hometownhq/hometown-backend/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeMailer struct {
	mu   sync.Mutex
	sent []fakeMail
	err  error
}

type fakeMail struct {
	to      string
	subject string
	body    string
}

func (f *fakeMailer) Send(to, subject, htmlBody string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, fakeMail{to: to, subject: subject, body: htmlBody})
	return f.err
}

func (f *fakeMailer) sentTo() []fakeMail {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]fakeMail(nil), f.sent...)
}

func setupResetServiceTest(t *testing.T, opts PasswordResetOptions) (*gorm.DB, PasswordResetService, *fakeMailer, *model.User) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })

	user := &model.User{
		FirstName:    "Ann",
		LastName:     "Lee",
		Email:        "ann@x.com",
		PasswordHash: "oldhash",
	}
	require.NoError(t, testDB.Create(user).Error)

	mail := &fakeMailer{}
	if opts.BaseURL == "" {
		opts.BaseURL = "http://localhost:3000"
	}
	svc := NewPasswordResetService(
		repository.NewPasswordResetRepository(testDB),
		repository.NewUserRepository(testDB),
		mail,
		opts,
	)

	return testDB, svc, mail, user
}

func awaitMailOutcome(t *testing.T, svc PasswordResetService) MailOutcome {
	t.Helper()
	select {
	case outcome := <-svc.MailOutcomes():
		return outcome
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for mail outcome")
		return MailOutcome{}
	}
}

func TestPasswordResetService_RequestReset(t *testing.T) {
	testDB, svc, mail, user := setupResetServiceTest(t, PasswordResetOptions{TokenTTL: 30 * time.Minute})

	before := time.Now()
	require.NoError(t, svc.RequestReset(user.Email))
	outcome := awaitMailOutcome(t, svc)

	// One token row, expiring ~30 minutes out
	var resets []model.PasswordResetToken
	require.NoError(t, testDB.Find(&resets).Error)
	require.Len(t, resets, 1)
	assert.Equal(t, user.ID, resets[0].UserID)
	assert.False(t, resets[0].Used)
	assert.Len(t, resets[0].Token, ResetTokenLength*2) // hex-encoded
	assert.WithinDuration(t, before.Add(30*time.Minute), resets[0].ExpiresAt, 5*time.Second)

	// Mail carried the raw token in the reset link
	require.NoError(t, outcome.Err)
	sent := mail.sentTo()
	require.Len(t, sent, 1)
	assert.Equal(t, user.Email, sent[0].to)
	assert.Contains(t, sent[0].body, "reset-password?token="+resets[0].Token)
}

func TestPasswordResetService_RequestReset_UnknownEmail(t *testing.T) {
	testDB, svc, mail, _ := setupResetServiceTest(t, PasswordResetOptions{})

	// Unknown email is acknowledged exactly like a known one
	require.NoError(t, svc.RequestReset("nobody@x.com"))

	var count int64
	require.NoError(t, testDB.Model(&model.PasswordResetToken{}).Count(&count).Error)
	assert.Zero(t, count)
	assert.Empty(t, mail.sentTo())
}

func TestPasswordResetService_RequestReset_MailFailure(t *testing.T) {
	testDB, svc, mail, user := setupResetServiceTest(t, PasswordResetOptions{})
	mail.err = errors.New("smtp unreachable")

	// Mail failure never surfaces to the caller; the token still exists
	require.NoError(t, svc.RequestReset(user.Email))
	outcome := awaitMailOutcome(t, svc)
	assert.Error(t, outcome.Err)
	assert.Equal(t, user.Email, outcome.Email)

	var count int64
	require.NoError(t, testDB.Model(&model.PasswordResetToken{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestPasswordResetService_RequestReset_MultipleOutstanding(t *testing.T) {
	testDB, svc, _, user := setupResetServiceTest(t, PasswordResetOptions{})

	require.NoError(t, svc.RequestReset(user.Email))
	awaitMailOutcome(t, svc)
	require.NoError(t, svc.RequestReset(user.Email))
	awaitMailOutcome(t, svc)

	// Default policy: earlier tokens stay live
	var live int64
	require.NoError(t, testDB.Model(&model.PasswordResetToken{}).
		Where("used = ?", false).Count(&live).Error)
	assert.EqualValues(t, 2, live)
}

func TestPasswordResetService_RequestReset_InvalidatePrevious(t *testing.T) {
	testDB, svc, _, user := setupResetServiceTest(t, PasswordResetOptions{InvalidatePrevious: true})

	require.NoError(t, svc.RequestReset(user.Email))
	awaitMailOutcome(t, svc)
	require.NoError(t, svc.RequestReset(user.Email))
	awaitMailOutcome(t, svc)

	var live []model.PasswordResetToken
	require.NoError(t, testDB.Where("used = ?", false).Find(&live).Error)
	require.Len(t, live, 1)

	var retired int64
	require.NoError(t, testDB.Model(&model.PasswordResetToken{}).
		Where("used = ?", true).Count(&retired).Error)
	assert.EqualValues(t, 1, retired)
}

func TestPasswordResetService_ResetPassword(t *testing.T) {
	testDB, svc, _, user := setupResetServiceTest(t, PasswordResetOptions{})

	require.NoError(t, svc.RequestReset(user.Email))
	awaitMailOutcome(t, svc)

	var reset model.PasswordResetToken
	require.NoError(t, testDB.First(&reset).Error)

	require.NoError(t, svc.ResetPassword(reset.Token, "NewPass1"))

	var stored model.User
	require.NoError(t, testDB.First(&stored, user.ID).Error)
	assert.True(t, util.VerifyPassword(stored.PasswordHash, "NewPass1"))

	// Replay with the same token fails and leaves the password alone
	err := svc.ResetPassword(reset.Token, "Another1")
	assert.ErrorIs(t, err, ErrInvalidResetToken)

	require.NoError(t, testDB.First(&stored, user.ID).Error)
	assert.True(t, util.VerifyPassword(stored.PasswordHash, "NewPass1"))
}

func TestPasswordResetService_ResetPassword_Invalid(t *testing.T) {
	testDB, svc, _, user := setupResetServiceTest(t, PasswordResetOptions{})

	expired := &model.PasswordResetToken{
		UserID:    user.ID,
		Token:     "expired-token",
		ExpiresAt: time.Now().Add(-time.Minute),
	}
	require.NoError(t, testDB.Create(expired).Error)

	tests := []struct {
		name  string
		token string
	}{
		{name: "Unknown token", token: "never-existed"},
		{name: "Expired token", token: "expired-token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.ResetPassword(tt.token, "NewPass1")
			assert.ErrorIs(t, err, ErrInvalidResetToken)
		})
	}
}
