package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/onehorn/event-booking-backend/internal/database"
	"github.com/onehorn/event-booking-backend/internal/models"
	"github.com/onehorn/event-booking-backend/pkg/apperror"
	"github.com/onehorn/event-booking-backend/pkg/jwt"
	"github.com/onehorn/event-booking-backend/pkg/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fakeUserStore struct {
	mu       sync.Mutex
	users    map[string]*models.User
	profiles map[uuid.UUID]*models.Profile
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: map[string]*models.User{}, profiles: map[uuid.UUID]*models.Profile{}}
}

func (f *fakeUserStore) CreateUser(_ context.Context, email, hash string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	if _, ok := f.users[email]; ok {
		return nil, database.ErrEmailTaken
	}
	u := &models.User{ID: uuid.New(), Email: email, PasswordHash: hash, CreatedAt: time.Now()}
	f.users[email] = u
	return u, nil
}

func (f *fakeUserStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return nil, database.ErrNotFound
	}
	return u, nil
}

func (f *fakeUserStore) GetUserByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, database.ErrNotFound
}

func (f *fakeUserStore) EnsureProfile(_ context.Context, p *models.Profile) (*models.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if existing, ok := f.profiles[p.ID]; ok {
		return existing, nil
	}
	stored := *p
	f.profiles[p.ID] = &stored
	return &stored, nil
}

func (f *fakeUserStore) GetProfile(_ context.Context, id uuid.UUID) (*models.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return p, nil
}

func (f *fakeUserStore) UpdateProfile(_ context.Context, id uuid.UUID, req *models.UpdateProfileRequest) (*models.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	p.FullName, p.Phone, p.Address = req.FullName, req.Phone, req.Address
	return p, nil
}

func (f *fakeUserStore) UpdatePasswordHash(_ context.Context, id uuid.UUID, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.ID == id {
			u.PasswordHash = hash
			return nil
		}
	}
	return database.ErrNotFound
}

type fakeTokenStore struct {
	mu      sync.Mutex
	tokens  map[string]*models.RefreshToken
	cleaned int
	err     error
}

func newFakeTokenStore() *fakeTokenStore {
	return &fakeTokenStore{tokens: map[string]*models.RefreshToken{}}
}

func (f *fakeTokenStore) Store(_ context.Context, userID uuid.UUID, token string, _ models.ClientInfo, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens[token] = &models.RefreshToken{ID: uuid.New(), UserID: userID, ExpiresAt: expiresAt}
	return nil
}

func (f *fakeTokenStore) Get(_ context.Context, token string) (*models.RefreshToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tokens[token]
	if !ok {
		return nil, database.ErrNotFound
	}
	out := *t
	return &out, nil
}

func (f *fakeTokenStore) Revoke(_ context.Context, token string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tokens[token]
	if !ok || t.Revoked {
		return false, nil
	}
	t.Revoked = true
	return true, nil
}

func (f *fakeTokenStore) RevokeAllForUser(_ context.Context, userID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, t := range f.tokens {
		if t.UserID == userID && !t.Revoked {
			t.Revoked = true
			n++
		}
	}
	return n, nil
}

func (f *fakeTokenStore) CleanupExpired(context.Context, time.Duration) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	f.cleaned++
	return int64(len(f.tokens)), nil
}

type fakeAuthAuditor struct {
	mu      sync.Mutex
	entries []*models.AuthAuditEntry
}

func (f *fakeAuthAuditor) Log(_ context.Context, e *models.AuthAuditEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, e)
	return nil
}

func (f *fakeAuthAuditor) events() []models.AuthEventType {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.AuthEventType
	for _, e := range f.entries {
		out = append(out, e.EventType)
	}
	return out
}

type identityFixture struct {
	service *IdentityService
	users   *fakeUserStore
	tokens  *fakeTokenStore
	audit   *fakeAuthAuditor
	jwt     *jwt.Service
}

func newIdentityFixture() *identityFixture {
	f := &identityFixture{
		users:  newFakeUserStore(),
		tokens: newFakeTokenStore(),
		audit:  &fakeAuthAuditor{},
		jwt:    jwt.NewService("access-secret", "refresh-secret", 15*time.Minute, 7*24*time.Hour),
	}
	f.service = NewIdentityService(f.users, f.tokens, f.jwt, NewAuditService(f.audit, true, quietLogger()),
		validator.NewStructValidator(), NewRateLimitService(RateLimitConfig{}), bcrypt.MinCost, quietLogger())
	return f
}

var testClient = models.ClientInfo{
	IPAddress: "203.0.113.7",
	UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36",
}

func validSignUp() *models.SignUpRequest {
	return &models.SignUpRequest{
		Email:         "Asha@Example.com",
		Password:      "Str0ng!Pass",
		FullName:      "Asha Rao",
		Phone:         "9876543210",
		TermsAccepted: true,
	}
}

func TestSignUp(t *testing.T) {
	f := newIdentityFixture()

	session, err := f.service.SignUp(context.Background(), validSignUp(), testClient)
	require.NoError(t, err)

	assert.Equal(t, "Bearer", session.TokenType)
	assert.Equal(t, int64(900), session.ExpiresIn)
	require.NotNil(t, session.User)
	assert.Equal(t, "asha@example.com", session.User.Email)
	assert.Equal(t, "Asha Rao", session.User.FullName)

	claims, err := f.jwt.ValidateAccessToken(session.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, claims.UserID)
	assert.Equal(t, []string{CustomerRole}, claims.Roles)

	_, err = f.tokens.Get(context.Background(), session.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, []models.AuthEventType{models.AuthEventSignup}, f.audit.events())
	assert.Contains(t, f.audit.entries[0].Details, "device_info")
}

func TestSignUp_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *models.SignUpRequest)
		field  string
	}{
		{"weak password", func(r *models.SignUpRequest) { r.Password = "password" }, "password"},
		{"bad email", func(r *models.SignUpRequest) { r.Email = "asha" }, "email"},
		{"terms not accepted", func(r *models.SignUpRequest) { r.TermsAccepted = false }, "terms_accepted"},
		{"bad phone", func(r *models.SignUpRequest) { r.Phone = "555" }, "phone"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newIdentityFixture()
			req := validSignUp()
			tt.mutate(req)

			_, err := f.service.SignUp(context.Background(), req, testClient)
			appErr := apperror.From(err)
			assert.Equal(t, "validation_failed", appErr.Code)
			assert.Contains(t, appErr.Details["fields"], tt.field)
			assert.Empty(t, f.users.users)
		})
	}
}

func TestSignUp_EmailTaken(t *testing.T) {
	f := newIdentityFixture()
	_, err := f.service.SignUp(context.Background(), validSignUp(), testClient)
	require.NoError(t, err)

	_, err = f.service.SignUp(context.Background(), validSignUp(), testClient)
	assert.ErrorIs(t, err, apperror.ErrConflict)
	assert.Equal(t, "email_taken", apperror.From(err).Code)
}

func TestSignIn(t *testing.T) {
	f := newIdentityFixture()
	_, err := f.service.SignUp(context.Background(), validSignUp(), testClient)
	require.NoError(t, err)

	t.Run("Success", func(t *testing.T) {
		session, err := f.service.SignIn(context.Background(), &models.SignInRequest{
			Email: "asha@example.com", Password: "Str0ng!Pass",
		}, testClient)
		require.NoError(t, err)
		assert.NotEmpty(t, session.AccessToken)
		assert.Equal(t, "Asha Rao", session.User.FullName)
	})

	t.Run("Wrong Password", func(t *testing.T) {
		_, err := f.service.SignIn(context.Background(), &models.SignInRequest{
			Email: "asha@example.com", Password: "wrong",
		}, testClient)
		assert.ErrorIs(t, err, apperror.ErrAuthRequired)
		assert.Equal(t, invalidCredentials, apperror.From(err).Message)
	})

	t.Run("Unknown Email", func(t *testing.T) {
		_, err := f.service.SignIn(context.Background(), &models.SignInRequest{
			Email: "nobody@example.com", Password: "Str0ng!Pass",
		}, testClient)
		assert.ErrorIs(t, err, apperror.ErrAuthRequired)
		assert.Equal(t, invalidCredentials, apperror.From(err).Message)
	})

	assert.Equal(t, []models.AuthEventType{
		models.AuthEventSignup,
		models.AuthEventLogin,
		models.AuthEventLoginFailed,
		models.AuthEventLoginFailed,
	}, f.audit.events())
}

func TestSignIn_Throttled(t *testing.T) {
	f := newIdentityFixture()
	_, err := f.service.SignUp(context.Background(), validSignUp(), testClient)
	require.NoError(t, err)

	wrong := &models.SignInRequest{Email: "asha@example.com", Password: "wrong"}
	for i := 0; i < DefaultRateLimitConfig().MaxEmailAttempts; i++ {
		_, err := f.service.SignIn(context.Background(), wrong, testClient)
		require.ErrorIs(t, err, apperror.ErrAuthRequired)
	}

	// even the right password is refused until the window passes
	_, err = f.service.SignIn(context.Background(), &models.SignInRequest{
		Email: "asha@example.com", Password: "Str0ng!Pass",
	}, testClient)
	assert.ErrorIs(t, err, apperror.ErrRateLimited)
}

func TestRefresh_RotatesOnce(t *testing.T) {
	f := newIdentityFixture()
	session, err := f.service.SignUp(context.Background(), validSignUp(), testClient)
	require.NoError(t, err)

	rotated, err := f.service.Refresh(context.Background(), session.RefreshToken, testClient)
	require.NoError(t, err)
	assert.NotEqual(t, session.RefreshToken, rotated.RefreshToken)
	assert.Equal(t, session.User.ID, rotated.User.ID)

	_, err = f.service.Refresh(context.Background(), session.RefreshToken, testClient)
	assert.ErrorIs(t, err, apperror.ErrAuthRequired)

	_, err = f.service.Refresh(context.Background(), "not-a-token", testClient)
	assert.ErrorIs(t, err, apperror.ErrAuthRequired)
}

func TestSignOut(t *testing.T) {
	f := newIdentityFixture()
	session, err := f.service.SignUp(context.Background(), validSignUp(), testClient)
	require.NoError(t, err)

	require.NoError(t, f.service.SignOut(context.Background(), session.User.ID, testClient))

	_, err = f.service.Refresh(context.Background(), session.RefreshToken, testClient)
	assert.ErrorIs(t, err, apperror.ErrAuthRequired)

	last := f.audit.entries[len(f.audit.entries)-1]
	assert.Equal(t, models.AuthEventLogout, last.EventType)
	assert.Equal(t, int64(1), last.Details["sessions_revoked"])
}

func TestChangePassword(t *testing.T) {
	f := newIdentityFixture()
	session, err := f.service.SignUp(context.Background(), validSignUp(), testClient)
	require.NoError(t, err)
	userID := session.User.ID

	change := func(current, next, confirm string) error {
		return f.service.ChangePassword(context.Background(), userID, &models.ChangePasswordRequest{
			CurrentPassword: current,
			NewPassword:     next,
			ConfirmPassword: confirm,
		}, testClient)
	}

	t.Run("Rejections", func(t *testing.T) {
		tests := []struct {
			name                   string
			current, next, confirm string
			field                  string
		}{
			{"weak new password", "Str0ng!Pass", "password1", "password1", "new_password"},
			{"confirmation mismatch", "Str0ng!Pass", "N3w!Secret", "N3w!Secrex", "confirm_password"},
			{"same as current", "Str0ng!Pass", "Str0ng!Pass", "Str0ng!Pass", "new_password"},
			{"wrong current password", "Wr0ng!Pass", "N3w!Secret", "N3w!Secret", "current_password"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				err := change(tt.current, tt.next, tt.confirm)
				appErr := apperror.From(err)
				require.NotNil(t, appErr)
				assert.Equal(t, apperror.KindValidationFailed, appErr.Kind)
				assert.Contains(t, appErr.Details["fields"], tt.field)
			})
		}

		// nothing changed: the old password still signs in and the session is live
		_, err := f.service.SignIn(context.Background(), &models.SignInRequest{
			Email: "asha@example.com", Password: "Str0ng!Pass",
		}, testClient)
		require.NoError(t, err)
		_, err = f.tokens.Get(context.Background(), session.RefreshToken)
		require.NoError(t, err)
		assert.NotContains(t, f.audit.events(), models.AuthEventPasswordChange)
	})

	t.Run("Success", func(t *testing.T) {
		require.NoError(t, change("Str0ng!Pass", "N3w!Secret", "N3w!Secret"))

		_, err := f.service.Refresh(context.Background(), session.RefreshToken, testClient)
		assert.ErrorIs(t, err, apperror.ErrAuthRequired)

		_, err = f.service.SignIn(context.Background(), &models.SignInRequest{
			Email: "asha@example.com", Password: "Str0ng!Pass",
		}, testClient)
		assert.ErrorIs(t, err, apperror.ErrAuthRequired)

		_, err = f.service.SignIn(context.Background(), &models.SignInRequest{
			Email: "asha@example.com", Password: "N3w!Secret",
		}, testClient)
		require.NoError(t, err)

		var entry *models.AuthAuditEntry
		for _, e := range f.audit.entries {
			if e.EventType == models.AuthEventPasswordChange {
				entry = e
			}
		}
		require.NotNil(t, entry)
		assert.Equal(t, userID, *entry.UserID)
		assert.Equal(t, int64(2), entry.Details["sessions_revoked"])
	})

	t.Run("Unknown User", func(t *testing.T) {
		err := f.service.ChangePassword(context.Background(), uuid.New(), &models.ChangePasswordRequest{
			CurrentPassword: "Str0ng!Pass", NewPassword: "N3w!Secret", ConfirmPassword: "N3w!Secret",
		}, testClient)
		assert.ErrorIs(t, err, apperror.ErrNotFound)
	})
}

func TestUpdateProfile(t *testing.T) {
	f := newIdentityFixture()
	session, err := f.service.SignUp(context.Background(), validSignUp(), testClient)
	require.NoError(t, err)

	profile, err := f.service.UpdateProfile(context.Background(), session.User.ID, &models.UpdateProfileRequest{
		FullName: "  Asha R ",
		Phone:    "9123456789",
		Address:  "Dispur",
	})
	require.NoError(t, err)
	assert.Equal(t, "Asha R", profile.FullName)

	_, err = f.service.UpdateProfile(context.Background(), session.User.ID, &models.UpdateProfileRequest{})
	assert.ErrorIs(t, err, apperror.ErrValidationFailed)

	_, err = f.service.GetProfile(context.Background(), uuid.New())
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestAuditService_Disabled(t *testing.T) {
	store := &fakeAuthAuditor{}
	audit := NewAuditService(store, false, quietLogger())

	audit.LogLogin(context.Background(), uuid.New(), testClient)
	assert.Empty(t, store.events())
}

func TestCronService_CleanupJob(t *testing.T) {
	tokens := newFakeTokenStore()
	svc := NewCronService(tokens, quietLogger())

	svc.cleanupRefreshTokensJob()
	assert.Equal(t, 1, tokens.cleaned)

	tokens.err = errors.New("connection refused")
	svc.cleanupRefreshTokensJob()
	assert.Equal(t, 1, tokens.cleaned)

	require.NoError(t, svc.Start())
	svc.Stop()
}
