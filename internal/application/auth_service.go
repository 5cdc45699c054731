package application

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"
	"unicode"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-realtime-relay/internal/domain/entity"
	repo "github.com/oksasatya/go-realtime-relay/internal/domain/repository"
	"github.com/oksasatya/go-realtime-relay/internal/infrastructure/postgres"
	"github.com/oksasatya/go-realtime-relay/pkg/helpers"
)

var (
	// ErrChallengeInvalid covers every OTP rejection: unknown email, no live
	// challenge, expired challenge, wrong code, already consumed. Collapsing
	// them keeps the external protocol from leaking which case occurred.
	ErrChallengeInvalid = errors.New("invalid or expired challenge")
	// ErrTokenInvalid covers malformed, badly signed, and expired credentials.
	ErrTokenInvalid = errors.New("invalid session token")
	ErrUserNotFound = errors.New("user not found")
)

// Outcome names why an issuing call stayed silent, so tests and operators can
// tell intended silence from accidental silence. The external protocol reports
// login_request_sent for all of them.
type Outcome int

const (
	// OutcomeNone means nothing happened; it accompanies a non-nil error.
	OutcomeNone Outcome = iota
	// OutcomeSent means a challenge was stored and a notifier dispatch enqueued.
	OutcomeSent
	// OutcomeUnknownEmail is the silent no-op for request_login on an email
	// without an account (anti-enumeration).
	OutcomeUnknownEmail
	// OutcomeRateLimited means the per-email send cap was hit; no new
	// challenge was issued.
	OutcomeRateLimited
)

const usernameMaxAttempts = 5

// AuthService drives the signup/login/OTP/credential-issuance state machine.
type AuthService struct {
	Users    repo.UserRepository
	JWT      *helpers.JWTManager
	Notifier OTPNotifier
	Redis    *redis.Client // optional; enables the OTP send rate limit
	Logger   *logrus.Logger

	OTPTTL        time.Duration
	OTPSendMax    int
	OTPSendWindow time.Duration
}

func NewAuthService(users repo.UserRepository, jwt *helpers.JWTManager, notifier OTPNotifier, rdb *redis.Client, logger *logrus.Logger, otpTTL time.Duration, sendMax int, sendWindow time.Duration) *AuthService {
	return &AuthService{
		Users:         users,
		JWT:           jwt,
		Notifier:      notifier,
		Redis:         rdb,
		Logger:        logger,
		OTPTTL:        otpTTL,
		OTPSendMax:    sendMax,
		OTPSendWindow: sendWindow,
	}
}

func otpSendKey(email string) string { return "otp:send:" + email }

// BeginSignup creates the user and issues a first challenge. If the email is
// already registered, it behaves exactly like BeginLogin so the response never
// reveals whether an account exists.
func (s *AuthService) BeginSignup(ctx context.Context, firstname, lastname, email string) (Outcome, error) {
	if existing, err := s.Users.GetByEmail(ctx, email); err == nil && existing != nil {
		return s.issueChallenge(ctx, existing, false)
	} else if err != nil && !errors.Is(err, postgres.ErrNotFound) {
		return OutcomeNone, err
	}

	u, err := s.createWithUsername(ctx, firstname, lastname, email)
	if errors.Is(err, postgres.ErrConflict) {
		// Lost the check-then-act race on email: another signup landed first.
		// Fall back to the login path against the winner's record.
		existing, lerr := s.Users.GetByEmail(ctx, email)
		if lerr != nil {
			return OutcomeNone, lerr
		}
		return s.issueChallenge(ctx, existing, false)
	}
	if err != nil {
		return OutcomeNone, err
	}
	return s.issueChallenge(ctx, u, true)
}

// BeginLogin issues a fresh challenge for an existing account. An unknown
// email is a silent no-op: no notifier dispatch, no error surfaced.
func (s *AuthService) BeginLogin(ctx context.Context, email string) (Outcome, error) {
	u, err := s.Users.GetByEmail(ctx, email)
	if errors.Is(err, postgres.ErrNotFound) {
		if s.Logger != nil {
			s.Logger.WithField("email", email).Debug("login request for unknown email, dropping")
		}
		return OutcomeUnknownEmail, nil
	}
	if err != nil {
		return OutcomeNone, err
	}
	return s.issueChallenge(ctx, u, false)
}

// Verify checks a submitted code against the live challenge and, on success,
// consumes it and returns a signed session credential. The consume step is
// conditional on the stored hash, so concurrent verifies for one challenge
// cannot both succeed.
func (s *AuthService) Verify(ctx context.Context, email, code string) (string, time.Time, error) {
	u, err := s.Users.GetByEmail(ctx, email)
	if err != nil {
		return "", time.Time{}, ErrChallengeInvalid
	}
	if !u.HasLiveChallenge() {
		return "", time.Time{}, ErrChallengeInvalid
	}
	if time.Now().After(*u.OTPExpiresAt) {
		return "", time.Time{}, ErrChallengeInvalid
	}
	if !helpers.CompareOTPCode(*u.OTPHash, code) {
		return "", time.Time{}, ErrChallengeInvalid
	}
	consumed, err := s.Users.ConsumeOTP(ctx, u.ID, *u.OTPHash)
	if err != nil {
		return "", time.Time{}, err
	}
	if !consumed {
		// Someone else consumed it between our read and this write.
		return "", time.Time{}, ErrChallengeInvalid
	}
	token, exp, err := s.JWT.GenerateSessionToken(u.ID)
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("user_id", u.ID).Error("generate session token failed")
		}
		return "", time.Time{}, err
	}
	return token, exp, nil
}

// Validate checks signature and expiry of a session credential and returns the
// bound user id. It never touches storage.
func (s *AuthService) Validate(token string) (string, error) {
	claims, err := s.JWT.ParseSessionToken(token)
	if err != nil {
		return "", ErrTokenInvalid
	}
	return claims.UserID, nil
}

// Profile resolves a user by id, for presence names and history attribution.
func (s *AuthService) Profile(ctx context.Context, userID string) (*entity.User, error) {
	u, err := s.Users.GetByID(ctx, userID)
	if err != nil || u == nil {
		return nil, ErrUserNotFound
	}
	return u, nil
}

// issueChallenge generates, hashes and stores a fresh code, then hands it to
// the notifier. The plain code never travels back to the caller.
func (s *AuthService) issueChallenge(ctx context.Context, u *entity.User, isNewUser bool) (Outcome, error) {
	if capped, err := s.sendCapReached(ctx, u.Email); err == nil && capped {
		if s.Logger != nil {
			s.Logger.WithField("email", u.Email).Warn("otp send rate limit hit")
		}
		return OutcomeRateLimited, nil
	}

	code, err := helpers.GenOTPCode()
	if err != nil {
		return OutcomeNone, err
	}
	hash, err := helpers.HashOTPCode(code)
	if err != nil {
		return OutcomeNone, err
	}
	if err := s.Users.SetOTP(ctx, u.ID, hash, time.Now().Add(s.OTPTTL)); err != nil {
		return OutcomeNone, err
	}
	if err := s.Notifier.SendOTP(ctx, u.Email, u.DisplayName(), code, isNewUser); err != nil {
		// Best-effort delivery: the challenge stays valid, the user can
		// request another send.
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("email", u.Email).Warn("otp notifier dispatch failed")
		}
	}
	return OutcomeSent, nil
}

func (s *AuthService) sendCapReached(ctx context.Context, email string) (bool, error) {
	if s.Redis == nil || s.OTPSendMax <= 0 {
		return false, nil
	}
	n, err := helpers.FixedWindowIncr(ctx, s.Redis, otpSendKey(email), s.OTPSendWindow)
	if err != nil {
		// fail-open on redis errors
		return false, nil
	}
	return n > int64(s.OTPSendMax), nil
}

// createWithUsername creates the user with a generated unique username,
// retrying with a wider random suffix on collision.
func (s *AuthService) createWithUsername(ctx context.Context, firstname, lastname, email string) (*entity.User, error) {
	base := usernameBase(firstname, lastname)
	digits := 4
	for attempt := 0; attempt < usernameMaxAttempts; attempt++ {
		suffix, err := randomDigits(digits)
		if err != nil {
			return nil, err
		}
		u := &entity.User{
			Firstname: firstname,
			Lastname:  lastname,
			Username:  base + suffix,
			Email:     email,
		}
		err = s.Users.Create(ctx, u)
		if err == nil {
			return u, nil
		}
		if !errors.Is(err, postgres.ErrConflict) {
			return nil, err
		}
		// The conflict may be the email, not the username; let the caller
		// fall back to login in that case.
		if _, lerr := s.Users.GetByEmail(ctx, email); lerr == nil {
			return nil, postgres.ErrConflict
		}
		digits += 2 // widen the suffix space and retry
	}
	return nil, fmt.Errorf("could not generate a unique username for %s", email)
}

func usernameBase(firstname, lastname string) string {
	clean := func(s string) string {
		var b strings.Builder
		for _, r := range strings.ToLower(s) {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				b.WriteRune(r)
			}
		}
		return b.String()
	}
	base := clean(firstname) + clean(lastname)
	if base == "" {
		base = "user"
	}
	return base
}

func randomDigits(n int) (string, error) {
	var b strings.Builder
	for i := 0; i < n; i++ {
		d, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "%d", d.Int64())
	}
	return b.String(), nil
}
