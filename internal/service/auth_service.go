package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dom/puckquery/internal/config"
	"github.com/dom/puckquery/internal/domain"
	"github.com/dom/puckquery/internal/repository"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// Auth errors
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrDisplayNameExists  = errors.New("display name already exists")
	ErrInvalidInput       = errors.New("display name and password are required")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrInvalidRole        = errors.New("unknown role")
	ErrOwnRole            = errors.New("accounts cannot change their own role")
)

const (
	minPasswordLength = 8
	tokenIssuer       = "puckquery"
)

// Principal is the caller behind a verified access token.
type Principal struct {
	UserID    uuid.UUID
	Name      string
	Role      domain.Role
	SessionID uuid.UUID
}

// Can reports whether the caller holds at least role.
func (p *Principal) Can(role domain.Role) bool {
	return p != nil && p.Role.Allows(role)
}

// Claims is the access token payload.
type Claims struct {
	Name      string      `json:"name"`
	Role      domain.Role `json:"role"`
	SessionID string      `json:"sid"`
	jwt.RegisteredClaims
}

type AuthService struct {
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	cfg         *config.Config
	log         logrus.FieldLogger
	now         func() time.Time
}

func NewAuthService(userRepo repository.UserRepository, sessionRepo repository.SessionRepository, cfg *config.Config, log logrus.FieldLogger) *AuthService {
	return &AuthService{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		cfg:         cfg,
		log:         log,
		now:         time.Now,
	}
}

type RegisterInput struct {
	DisplayName string
	Password    string
}

type LoginInput struct {
	DisplayName string
	Password    string
}

// AuthResult carries a fresh token pair. The refresh token is
// "<session id>.<secret>" and is only ever returned here.
type AuthResult struct {
	User         *domain.User
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// Register creates an account. The first account becomes admin so a new
// deployment can hand out roles; later ones get the configured default.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	input.DisplayName = strings.TrimSpace(input.DisplayName)
	if input.DisplayName == "" || len(input.Password) < minPasswordLength {
		return nil, ErrInvalidInput
	}

	_, err := s.userRepo.GetByDisplayName(ctx, input.DisplayName)
	if err == nil {
		return nil, ErrDisplayNameExists
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}

	count, err := s.userRepo.Count(ctx)
	if err != nil {
		return nil, err
	}
	role := s.cfg.DefaultRole
	if count == 0 {
		role = domain.RoleAdmin
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := s.now()
	user := &domain.User{
		ID:           uuid.New(),
		PasswordHash: string(hash),
		DisplayName:  input.DisplayName,
		Role:         role,
		LastLoginAt:  &now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"user_id": user.ID, "role": role}).Info("account registered")
	return s.openSession(ctx, user)
}

// Login checks the password and opens a new session. Other sessions of the
// account stay valid.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	user, err := s.userRepo.GetByDisplayName(ctx, strings.TrimSpace(input.DisplayName))
	if errors.Is(err, domain.ErrUserNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	now := s.now()
	user.LastLoginAt = &now
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}

	if n, err := s.sessionRepo.DeleteExpired(ctx, now); err != nil {
		s.log.WithError(err).Warn("failed to prune expired sessions")
	} else if n > 0 {
		s.log.WithField("count", n).Debug("pruned expired sessions")
	}

	return s.openSession(ctx, user)
}

// Refresh exchanges a refresh token for a new token pair. The old refresh
// token stops working.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	sessionID, secret, ok := splitRefreshToken(refreshToken)
	if !ok {
		return nil, ErrInvalidToken
	}

	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}

	now := s.now()
	if session.Expired(now) {
		_ = s.sessionRepo.Delete(ctx, session.ID)
		return nil, ErrInvalidToken
	}
	if bcrypt.CompareHashAndPassword([]byte(session.RefreshTokenHash), []byte(secret)) != nil {
		return nil, ErrInvalidToken
	}

	user, err := s.userRepo.GetByID(ctx, session.UserID)
	if errors.Is(err, domain.ErrUserNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}

	newSecret, hash, err := newRefreshSecret()
	if err != nil {
		return nil, err
	}
	session.RefreshTokenHash = hash
	session.ExpiresAt = now.Add(s.refreshTTL())
	session.RefreshedAt = &now
	if err := s.sessionRepo.Update(ctx, session); err != nil {
		return nil, err
	}

	return s.result(user, session, newSecret)
}

// Authenticate verifies an access token and that its session is still open.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (*Principal, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(accessToken, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.JWTSecret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, ErrInvalidToken
	}
	sessionID, err := uuid.Parse(claims.SessionID)
	if err != nil {
		return nil, ErrInvalidToken
	}

	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}
	if session.UserID != userID || session.Expired(s.now()) {
		return nil, ErrInvalidToken
	}

	return &Principal{
		UserID:    userID,
		Name:      claims.Name,
		Role:      claims.Role,
		SessionID: sessionID,
	}, nil
}

func (s *AuthService) GetUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

func (s *AuthService) ListUsers(ctx context.Context) ([]*domain.User, error) {
	return s.userRepo.List(ctx)
}

// SetRole changes another account's role and closes its sessions so the
// new role applies from its next login.
func (s *AuthService) SetRole(ctx context.Context, actor *Principal, userID uuid.UUID, role domain.Role) (*domain.User, error) {
	if !role.Valid() {
		return nil, ErrInvalidRole
	}
	if actor != nil && actor.UserID == userID {
		return nil, ErrOwnRole
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Role == role {
		return user, nil
	}

	previous := user.Role
	user.Role = role
	user.UpdatedAt = s.now()
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	if err := s.sessionRepo.DeleteByUserID(ctx, userID); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"user_id": userID,
		"from":    previous,
		"to":      role,
	}).Info("account role changed")
	return user, nil
}

// Logout closes the caller's current session only.
func (s *AuthService) Logout(ctx context.Context, principal *Principal) error {
	return s.sessionRepo.Delete(ctx, principal.SessionID)
}

func (s *AuthService) openSession(ctx context.Context, user *domain.User) (*AuthResult, error) {
	secret, hash, err := newRefreshSecret()
	if err != nil {
		return nil, err
	}

	now := s.now()
	session := &domain.UserSession{
		ID:               uuid.New(),
		UserID:           user.ID,
		RefreshTokenHash: hash,
		ExpiresAt:        now.Add(s.refreshTTL()),
		CreatedAt:        now,
	}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, err
	}

	return s.result(user, session, secret)
}

func (s *AuthService) result(user *domain.User, session *domain.UserSession, secret string) (*AuthResult, error) {
	now := s.now()
	expiresAt := now.Add(time.Duration(s.cfg.JWTExpirationHours) * time.Hour)
	if expiresAt.After(session.ExpiresAt) {
		expiresAt = session.ExpiresAt
	}

	claims := Claims{
		Name:      user.DisplayName,
		Role:      user.Role,
		SessionID: session.ID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return nil, err
	}

	return &AuthResult{
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: session.ID.String() + "." + secret,
		ExpiresAt:    expiresAt,
	}, nil
}

func (s *AuthService) refreshTTL() time.Duration {
	return time.Duration(s.cfg.RefreshTokenHours) * time.Hour
}

func newRefreshSecret() (secret, hash string, err error) {
	secret = uuid.NewString()
	h, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", "", err
	}
	return secret, string(h), nil
}

func splitRefreshToken(token string) (uuid.UUID, string, bool) {
	id, secret, ok := strings.Cut(token, ".")
	if !ok || secret == "" {
		return uuid.Nil, "", false
	}
	sessionID, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, "", false
	}
	return sessionID, secret, true
}
