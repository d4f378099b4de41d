package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tazhibayda/todo-service/internal/domain"
	"github.com/tazhibayda/todo-service/internal/helper"
	"github.com/tazhibayda/todo-service/internal/log"
	"github.com/tazhibayda/todo-service/internal/mail"
	"github.com/tazhibayda/todo-service/internal/metrics"
	"github.com/tazhibayda/todo-service/internal/queue"
	"github.com/tazhibayda/todo-service/internal/security"
)

const otpDigits = 6

const (
	DefaultOTPTTL   = 10 * time.Minute
	DefaultGrantTTL = 10 * time.Minute
)

// RecoveryService runs the forgot-password flow: a mailed one-time code is
// exchanged for a single-use reset grant, which authorises the new password.
type RecoveryService struct {
	Users    UserStore
	Codes    ResetCodeStore
	Grants   GrantStore
	Mail     mail.Sender
	Events   Events
	OTPTTL   time.Duration
	GrantTTL time.Duration

	now func() time.Time
}

func NewRecoveryService(users UserStore, codes ResetCodeStore, grants GrantStore, sender mail.Sender, events Events) *RecoveryService {
	return &RecoveryService{
		Users:    users,
		Codes:    codes,
		Grants:   grants,
		Mail:     sender,
		Events:   events,
		OTPTTL:   DefaultOTPTTL,
		GrantTTL: DefaultGrantTTL,
		now:      time.Now,
	}
}

func (s *RecoveryService) WithClock(now func() time.Time) *RecoveryService {
	s.now = now
	return s
}

func (s *RecoveryService) lookup(ctx context.Context, email string) (*domain.User, error) {
	u, err := s.Users.FindUserByEmail(ctx, email)
	if err != nil {
		if isNotFound(err) {
			return nil, errUserNotFound
		}
		return nil, err
	}
	return u, nil
}

func (s *RecoveryService) RequestReset(ctx context.Context, email string) error {
	email = helper.NormalizeEmail(email)
	if email == "" {
		return domain.E(domain.ErrValidation, "Email is required")
	}
	u, err := s.lookup(ctx, email)
	if err != nil {
		return err
	}
	if !u.CanPasswordLogin() {
		return domain.E(domain.ErrInvalidState, "This account signs in with a social provider. Set a password from your profile first")
	}

	code, err := security.NewOTP(otpDigits)
	if err != nil {
		return fmt.Errorf("generate otp: %w", err)
	}
	expiry := s.now().Add(s.OTPTTL)
	if err := s.Codes.SetResetCode(ctx, u.ID, code, expiry); err != nil {
		return fmt.Errorf("store reset code: %w", err)
	}
	if err := s.Mail.Send(ctx, mail.ResetCodeMessage(u.Email, code, s.OTPTTL)); err != nil {
		return domain.Wrap(domain.ErrUpstream, "Failed to send OTP email", err)
	}

	metrics.ResetCodes.WithLabelValues("issued").Inc()
	log.Ctx(ctx).Info("reset code issued", zap.Int64("user_id", u.ID), zap.Time("expires_at", expiry))
	return nil
}

// VerifyOTP consumes the code and returns a reset token that ResetPassword
// accepts once.
func (s *RecoveryService) VerifyOTP(ctx context.Context, email, code string) (string, error) {
	email, code = helper.NormalizeEmail(email), strings.TrimSpace(code)
	if email == "" || code == "" {
		return "", domain.E(domain.ErrValidation, "Email and OTP are required")
	}
	u, err := s.Codes.ConsumeResetCode(ctx, email, code, s.now())
	if err != nil {
		if isInvalid(err) {
			metrics.ResetCodes.WithLabelValues("rejected").Inc()
			return "", domain.E(domain.ErrInvalidOrExpired, "Invalid or expired OTP")
		}
		return "", err
	}

	token, err := security.NewOpaqueToken()
	if err != nil {
		return "", fmt.Errorf("reset token: %w", err)
	}
	if err := s.Grants.SaveResetGrant(ctx, security.HashToken(token), u.Email, s.GrantTTL); err != nil {
		return "", fmt.Errorf("store reset grant: %w", err)
	}
	metrics.ResetCodes.WithLabelValues("verified").Inc()
	return token, nil
}

func (s *RecoveryService) ResetPassword(ctx context.Context, email, newPassword, resetToken string) error {
	email = helper.NormalizeEmail(email)
	if email == "" {
		return domain.E(domain.ErrValidation, "Email is required")
	}
	u, err := s.lookup(ctx, email)
	if err != nil {
		return err
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	expired := domain.E(domain.ErrInvalidOrExpired, "Reset session is invalid or expired. Verify the OTP again")
	if strings.TrimSpace(resetToken) == "" {
		return expired
	}
	granted, err := s.Grants.ConsumeResetGrant(ctx, security.HashToken(resetToken))
	if err != nil {
		if isInvalid(err) {
			return expired
		}
		return err
	}
	if granted != u.Email {
		return expired
	}

	hash, err := security.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	u.PasswordHash = hash
	u.PasswordSet = true
	u.AuthType = domain.OriginLocal
	u.ClearResetCode()
	if err := s.Users.UpdateUser(ctx, u); err != nil {
		return err
	}

	log.Ctx(ctx).Info("password reset", zap.Int64("user_id", u.ID))
	s.Events.publish(ctx, queue.KeyPasswordReset, queue.PasswordReset{UserID: u.ID, Email: u.Email})
	return nil
}
