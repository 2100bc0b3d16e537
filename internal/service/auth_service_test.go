package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/dom/puckquery/internal/domain"
	"github.com/dom/puckquery/internal/repository"
	"github.com/dom/puckquery/internal/repository/postgres"
	"github.com/dom/puckquery/internal/service"
	"github.com/dom/puckquery/internal/testutil"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthService(t *testing.T) (*service.AuthService, *repository.Repositories, *testutil.TestDB) {
	t.Helper()
	testDB := testutil.NewTestDB(t)
	repos := postgres.NewRepositories(testDB.DB)
	log, _ := test.NewNullLogger()
	return service.NewAuthService(repos.User, repos.Session, testutil.TestConfig(), log), repos, testDB
}

func TestAuthService_Register(t *testing.T) {
	authService, _, _ := newAuthService(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		input    service.RegisterInput
		wantErr  error
		wantRole domain.Role
	}{
		{
			name:     "first account becomes admin",
			input:    service.RegisterInput{DisplayName: "coach", Password: "password123"},
			wantRole: domain.RoleAdmin,
		},
		{
			name:     "later accounts get the default role",
			input:    service.RegisterInput{DisplayName: "  scout  ", Password: "password123"},
			wantRole: domain.RoleViewer,
		},
		{
			name:    "duplicate display name",
			input:   service.RegisterInput{DisplayName: "coach", Password: "password123"},
			wantErr: service.ErrDisplayNameExists,
		},
		{
			name:    "short password",
			input:   service.RegisterInput{DisplayName: "analyst", Password: "short"},
			wantErr: service.ErrInvalidInput,
		},
		{
			name:    "blank display name",
			input:   service.RegisterInput{DisplayName: "   ", Password: "password123"},
			wantErr: service.ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := authService.Register(ctx, tt.input)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantRole, result.User.Role)
			assert.NotContains(t, result.User.DisplayName, " ")

			principal, err := authService.Authenticate(ctx, result.AccessToken)
			require.NoError(t, err)
			assert.Equal(t, result.User.ID, principal.UserID)
			assert.Equal(t, tt.wantRole, principal.Role)
		})
	}
}

func TestAuthService_Login(t *testing.T) {
	authService, _, testDB := newAuthService(t)
	ctx := context.Background()
	user, password := testutil.NewUserBuilder().WithDisplayName("goalie").Build(t, testDB.DB)

	tests := []struct {
		name    string
		input   service.LoginInput
		wantErr error
	}{
		{name: "valid credentials", input: service.LoginInput{DisplayName: "goalie", Password: password}},
		{name: "wrong password", input: service.LoginInput{DisplayName: "goalie", Password: "wrongpassword"}, wantErr: service.ErrInvalidCredentials},
		{name: "unknown account", input: service.LoginInput{DisplayName: "nobody", Password: password}, wantErr: service.ErrInvalidCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := authService.Login(ctx, tt.input)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, user.ID, result.User.ID)
			assert.NotNil(t, result.User.LastLoginAt)
		})
	}

	t.Run("login prunes expired sessions", func(t *testing.T) {
		stale := &domain.UserSession{
			ID:               uuid.New(),
			UserID:           user.ID,
			RefreshTokenHash: "x",
			ExpiresAt:        time.Now().Add(-time.Hour),
			CreatedAt:        time.Now().Add(-48 * time.Hour),
		}
		require.NoError(t, testDB.DB.Create(stale).Error)

		_, err := authService.Login(ctx, service.LoginInput{DisplayName: "goalie", Password: password})
		require.NoError(t, err)

		var count int64
		testDB.DB.Model(&domain.UserSession{}).Where("id = ?", stale.ID).Count(&count)
		assert.Zero(t, count)
	})
}

func TestAuthService_Authenticate(t *testing.T) {
	authService, repos, testDB := newAuthService(t)
	ctx := context.Background()
	user, password := testutil.NewUserBuilder().Build(t, testDB.DB)

	result, err := authService.Login(ctx, service.LoginInput{DisplayName: user.DisplayName, Password: password})
	require.NoError(t, err)

	sign := func(secret string, claims service.Claims) string {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
		require.NoError(t, err)
		return token
	}
	valid, err := authService.Authenticate(ctx, result.AccessToken)
	require.NoError(t, err)

	claims := func(mutate func(*service.Claims)) service.Claims {
		c := service.Claims{
			Role:      domain.RoleAdmin,
			SessionID: valid.SessionID.String(),
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    "puckquery",
				Subject:   user.ID.String(),
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}
		mutate(&c)
		return c
	}
	secret := testutil.TestConfig().JWTSecret

	tests := []struct {
		name  string
		token string
	}{
		{name: "garbage", token: "not.a.jwt"},
		{name: "wrong secret", token: sign("other-secret", claims(func(*service.Claims) {}))},
		{name: "expired", token: sign(secret, claims(func(c *service.Claims) {
			c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
		}))},
		{name: "wrong issuer", token: sign(secret, claims(func(c *service.Claims) { c.Issuer = "elsewhere" }))},
		{name: "unknown session", token: sign(secret, claims(func(c *service.Claims) { c.SessionID = uuid.NewString() }))},
		{name: "session of another user", token: sign(secret, claims(func(c *service.Claims) { c.Subject = uuid.NewString() }))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := authService.Authenticate(ctx, tt.token)
			assert.ErrorIs(t, err, service.ErrInvalidToken)
		})
	}

	t.Run("closed session", func(t *testing.T) {
		require.NoError(t, repos.Session.Delete(ctx, valid.SessionID))
		_, err := authService.Authenticate(ctx, result.AccessToken)
		assert.ErrorIs(t, err, service.ErrInvalidToken)
	})
}

func TestAuthService_Refresh(t *testing.T) {
	authService, repos, testDB := newAuthService(t)
	ctx := context.Background()
	user, password := testutil.NewUserBuilder().Build(t, testDB.DB)

	first, err := authService.Login(ctx, service.LoginInput{DisplayName: user.DisplayName, Password: password})
	require.NoError(t, err)

	second, err := authService.Refresh(ctx, first.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	principal, err := authService.Authenticate(ctx, second.AccessToken)
	require.NoError(t, err)
	session, err := repos.Session.GetByID(ctx, principal.SessionID)
	require.NoError(t, err)
	assert.NotNil(t, session.RefreshedAt)

	tests := []struct {
		name  string
		token string
	}{
		{name: "reused token", token: first.RefreshToken},
		{name: "no separator", token: "abc"},
		{name: "bad session id", token: "abc.def"},
		{name: "unknown session", token: uuid.NewString() + ".secret"},
		{name: "wrong secret", token: principal.SessionID.String() + ".secret"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := authService.Refresh(ctx, tt.token)
			assert.ErrorIs(t, err, service.ErrInvalidToken)
		})
	}

	t.Run("expired session is removed", func(t *testing.T) {
		require.NoError(t, testDB.DB.Model(&domain.UserSession{}).
			Where("id = ?", principal.SessionID).
			Update("expires_at", time.Now().Add(-time.Minute)).Error)

		_, err := authService.Refresh(ctx, second.RefreshToken)
		assert.ErrorIs(t, err, service.ErrInvalidToken)

		_, err = repos.Session.GetByID(ctx, principal.SessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})
}

func TestAuthService_SetRole(t *testing.T) {
	authService, _, testDB := newAuthService(t)
	ctx := context.Background()
	admin, _ := testutil.NewUserBuilder().WithRole(domain.RoleAdmin).Build(t, testDB.DB)
	target, password := testutil.NewUserBuilder().WithRole(domain.RoleViewer).Build(t, testDB.DB)
	actor := &service.Principal{UserID: admin.ID, Role: domain.RoleAdmin}

	session, err := authService.Login(ctx, service.LoginInput{DisplayName: target.DisplayName, Password: password})
	require.NoError(t, err)

	tests := []struct {
		name    string
		userID  uuid.UUID
		role    domain.Role
		wantErr error
	}{
		{name: "unknown role", userID: target.ID, role: "owner", wantErr: service.ErrInvalidRole},
		{name: "own role", userID: admin.ID, role: domain.RoleViewer, wantErr: service.ErrOwnRole},
		{name: "unknown user", userID: uuid.New(), role: domain.RoleAnalyst, wantErr: domain.ErrUserNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := authService.SetRole(ctx, actor, tt.userID, tt.role)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	t.Run("promote closes sessions", func(t *testing.T) {
		user, err := authService.SetRole(ctx, actor, target.ID, domain.RoleAnalyst)
		require.NoError(t, err)
		assert.Equal(t, domain.RoleAnalyst, user.Role)

		_, err = authService.Authenticate(ctx, session.AccessToken)
		assert.ErrorIs(t, err, service.ErrInvalidToken)

		stored, err := authService.GetUserByID(ctx, target.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.RoleAnalyst, stored.Role)
	})
}

func TestAuthService_Logout(t *testing.T) {
	authService, _, testDB := newAuthService(t)
	ctx := context.Background()
	user, password := testutil.NewUserBuilder().Build(t, testDB.DB)

	login := func() *service.AuthResult {
		result, err := authService.Login(ctx, service.LoginInput{DisplayName: user.DisplayName, Password: password})
		require.NoError(t, err)
		return result
	}
	laptop, phone := login(), login()

	principal, err := authService.Authenticate(ctx, laptop.AccessToken)
	require.NoError(t, err)
	require.NoError(t, authService.Logout(ctx, principal))

	_, err = authService.Authenticate(ctx, laptop.AccessToken)
	assert.ErrorIs(t, err, service.ErrInvalidToken)
	_, err = authService.Authenticate(ctx, phone.AccessToken)
	assert.NoError(t, err)
}

func TestRole_Allows(t *testing.T) {
	tests := []struct {
		name     string
		role     domain.Role
		required domain.Role
		want     bool
	}{
		{name: "viewer as viewer", role: domain.RoleViewer, required: domain.RoleViewer, want: true},
		{name: "viewer as analyst", role: domain.RoleViewer, required: domain.RoleAnalyst, want: false},
		{name: "analyst as analyst", role: domain.RoleAnalyst, required: domain.RoleAnalyst, want: true},
		{name: "analyst as admin", role: domain.RoleAnalyst, required: domain.RoleAdmin, want: false},
		{name: "admin as analyst", role: domain.RoleAdmin, required: domain.RoleAnalyst, want: true},
		{name: "unknown role", role: "owner", required: domain.RoleViewer, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.role.Allows(tt.required))
		})
	}
}
