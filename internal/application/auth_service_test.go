package application

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-realtime-relay/internal/domain/entity"
	"github.com/oksasatya/go-realtime-relay/internal/infrastructure/postgres"
	"github.com/oksasatya/go-realtime-relay/pkg/helpers"
)

// --- fakes ---

type memUserRepo struct {
	mu   sync.Mutex
	byID map[string]*entity.User
	seq  int
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{byID: make(map[string]*entity.User)}
}

func (r *memUserRepo) Create(_ context.Context, u *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.byID {
		if existing.Email == u.Email || existing.Username == u.Username {
			return postgres.ErrConflict
		}
	}
	r.seq++
	u.ID = fmt.Sprintf("u-%d", r.seq)
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	cp := *u
	r.byID[u.ID] = &cp
	return nil
}

func (r *memUserRepo) GetByID(_ context.Context, id string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, postgres.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *memUserRepo) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, postgres.ErrNotFound
}

func (r *memUserRepo) SetOTP(_ context.Context, userID, hash string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[userID]
	if !ok {
		return postgres.ErrNotFound
	}
	u.OTPHash = &hash
	u.OTPExpiresAt = &expiresAt
	return nil
}

func (r *memUserRepo) ConsumeOTP(_ context.Context, userID, hash string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[userID]
	if !ok || u.OTPHash == nil || *u.OTPHash != hash {
		return false, nil
	}
	u.OTPHash = nil
	u.OTPExpiresAt = nil
	return true, nil
}

func (r *memUserRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}

type sentCode struct {
	email     string
	name      string
	code      string
	isNewUser bool
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentCode
	fail error
}

func (n *recordingNotifier) SendOTP(_ context.Context, email, name, code string, isNewUser bool) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentCode{email: email, name: name, code: code, isNewUser: isNewUser})
	return n.fail
}

func (n *recordingNotifier) calls() []sentCode {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]sentCode(nil), n.sent...)
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newTestAuthService(users *memUserRepo, n *recordingNotifier) *AuthService {
	jwt := helpers.NewJWTManager("test-secret", time.Hour)
	return NewAuthService(users, jwt, n, nil, quietLogger(), 15*time.Minute, 5, time.Minute)
}

// --- tests ---

func TestBeginSignupCreatesUserAndIssuesChallenge(t *testing.T) {
	users := newMemUserRepo()
	notifier := &recordingNotifier{}
	svc := newTestAuthService(users, notifier)

	out, err := svc.BeginSignup(context.Background(), "Ada", "Lovelace", "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, OutcomeSent, out)

	u, err := users.GetByEmail(context.Background(), "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", u.DisplayName())
	assert.Contains(t, u.Username, "adalovelace")
	require.True(t, u.HasLiveChallenge())
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), *u.OTPExpiresAt, time.Minute)

	calls := notifier.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "ada@example.com", calls[0].email)
	assert.True(t, calls[0].isNewUser)
	assert.Len(t, calls[0].code, helpers.OTPCodeLength)
	assert.True(t, helpers.CompareOTPCode(*u.OTPHash, calls[0].code))
}

func TestBeginSignupExistingEmailActsLikeLogin(t *testing.T) {
	users := newMemUserRepo()
	notifier := &recordingNotifier{}
	svc := newTestAuthService(users, notifier)

	_, err := svc.BeginSignup(context.Background(), "Ada", "Lovelace", "ada@example.com")
	require.NoError(t, err)

	out, err := svc.BeginSignup(context.Background(), "Mallory", "Imposter", "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, OutcomeSent, out)

	// No second account, and the re-send goes through the login template.
	assert.Equal(t, 1, users.count())
	calls := notifier.calls()
	require.Len(t, calls, 2)
	assert.False(t, calls[1].isNewUser)

	u, err := users.GetByEmail(context.Background(), "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Ada", u.Firstname)
}

func TestBeginLoginUnknownEmailIsSilent(t *testing.T) {
	users := newMemUserRepo()
	notifier := &recordingNotifier{}
	svc := newTestAuthService(users, notifier)

	out, err := svc.BeginLogin(context.Background(), "nobody@example.com")
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnknownEmail, out)
	assert.Empty(t, notifier.calls())
}

func TestVerifyIssuesCredentialAndConsumesChallenge(t *testing.T) {
	users := newMemUserRepo()
	notifier := &recordingNotifier{}
	svc := newTestAuthService(users, notifier)

	_, err := svc.BeginSignup(context.Background(), "Ada", "Lovelace", "ada@example.com")
	require.NoError(t, err)
	code := notifier.calls()[0].code

	token, exp, err := svc.Verify(context.Background(), "ada@example.com", code)
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.True(t, exp.After(time.Now()))

	u, err := users.GetByEmail(context.Background(), "ada@example.com")
	require.NoError(t, err)
	userID, err := svc.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, userID)

	// Single use: replaying the same code must fail.
	_, _, err = svc.Verify(context.Background(), "ada@example.com", code)
	assert.ErrorIs(t, err, ErrChallengeInvalid)
}

func TestVerifyWrongCode(t *testing.T) {
	users := newMemUserRepo()
	notifier := &recordingNotifier{}
	svc := newTestAuthService(users, notifier)

	_, err := svc.BeginSignup(context.Background(), "Ada", "Lovelace", "ada@example.com")
	require.NoError(t, err)
	code := notifier.calls()[0].code

	_, _, err = svc.Verify(context.Background(), "ada@example.com", "zzzzzz")
	assert.ErrorIs(t, err, ErrChallengeInvalid)

	// A wrong guess does not burn the live challenge.
	_, _, err = svc.Verify(context.Background(), "ada@example.com", code)
	assert.NoError(t, err)
}

func TestVerifyExpiredChallenge(t *testing.T) {
	users := newMemUserRepo()
	notifier := &recordingNotifier{}
	svc := newTestAuthService(users, notifier)

	_, err := svc.BeginSignup(context.Background(), "Ada", "Lovelace", "ada@example.com")
	require.NoError(t, err)
	code := notifier.calls()[0].code

	u, err := users.GetByEmail(context.Background(), "ada@example.com")
	require.NoError(t, err)
	require.NoError(t, users.SetOTP(context.Background(), u.ID, *u.OTPHash, time.Now().Add(-time.Second)))

	_, _, err = svc.Verify(context.Background(), "ada@example.com", code)
	assert.ErrorIs(t, err, ErrChallengeInvalid)
}

func TestVerifyUnknownEmail(t *testing.T) {
	svc := newTestAuthService(newMemUserRepo(), &recordingNotifier{})

	_, _, err := svc.Verify(context.Background(), "nobody@example.com", "abc123")
	assert.ErrorIs(t, err, ErrChallengeInvalid)
}

func TestIssueChallengeSurvivesNotifierFailure(t *testing.T) {
	users := newMemUserRepo()
	notifier := &recordingNotifier{fail: fmt.Errorf("broker down")}
	svc := newTestAuthService(users, notifier)

	out, err := svc.BeginSignup(context.Background(), "Ada", "Lovelace", "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, OutcomeSent, out)

	// The challenge is stored even though delivery failed; the user can ask
	// for another send.
	u, err := users.GetByEmail(context.Background(), "ada@example.com")
	require.NoError(t, err)
	assert.True(t, u.HasLiveChallenge())
}

func TestValidateRejectsTamperedToken(t *testing.T) {
	svc := newTestAuthService(newMemUserRepo(), &recordingNotifier{})

	_, err := svc.Validate("not-a-token")
	assert.ErrorIs(t, err, ErrTokenInvalid)

	other := helpers.NewJWTManager("other-secret", time.Hour)
	token, _, err := other.GenerateSessionToken("u-1")
	require.NoError(t, err)
	_, err = svc.Validate(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestUsernameBase(t *testing.T) {
	assert.Equal(t, "adalovelace", usernameBase("Ada", "Lovelace"))
	assert.Equal(t, "jeanlucpicard", usernameBase("Jean-Luc", "Picard"))
	assert.Equal(t, "user", usernameBase("!!!", "???"))
}
