package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/primechat/prime-chatbot-go/internal/domain"
	"github.com/primechat/prime-chatbot-go/internal/port"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// AuthService handles dashboard accounts: registration, login and the
// access tokens the JWT middleware validates.
type AuthService struct {
	users     port.UserStore
	jwtSecret []byte
	accessTTL time.Duration
	logger    *zap.Logger

	// restartBot is invoked after a super admin changes their bot
	// credentials, so the approval bot picks up the new token. Nil in
	// tests and in deployments without the bot.
	restartBot func(ctx context.Context) error
}

func NewAuthService(users port.UserStore, jwtSecret string, accessTTL time.Duration, logger *zap.Logger) *AuthService {
	return &AuthService{
		users:     users,
		jwtSecret: []byte(jwtSecret),
		accessTTL: accessTTL,
		logger:    logger,
	}
}

// SetBotRestarter wires the approval bot's restart hook.
func (s *AuthService) SetBotRestarter(fn func(ctx context.Context) error) {
	s.restartBot = fn
}

// RegisterRequest is the POST /auth/register payload.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

// LoginRequest is the POST /auth/login payload.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the signed access token.
type LoginResponse struct {
	AccessToken string       `json:"accessToken"`
	ExpiresIn   int          `json:"expiresIn"`
	User        *domain.User `json:"user"`
}

// Register creates a dashboard account. Role defaults to ADMIN; only
// the two known roles are accepted.
func (s *AuthService) Register(ctx context.Context, req *RegisterRequest) (*domain.User, error) {
	ctx, span := tracer.Start(ctx, "AuthService.Register")
	defer span.End()

	email := strings.TrimSpace(strings.ToLower(req.Email))
	if email == "" {
		return nil, &domain.ErrValidation{Field: "email", Message: "email is required"}
	}
	if len(req.Password) < 8 {
		return nil, &domain.ErrValidation{Field: "password", Message: "password must be at least 8 characters"}
	}

	role := req.Role
	if role == "" {
		role = domain.RoleAdmin
	}
	if role != domain.RoleAdmin && role != domain.RoleSuperAdmin {
		return nil, &domain.ErrValidation{Field: "role", Message: "unknown role"}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user registered", zap.String("user_id", user.ID))
	return user, nil
}

// Login verifies credentials and signs an access token. Unknown email
// and wrong password are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	ctx, span := tracer.Start(ctx, "AuthService.Login")
	defer span.End()

	email := strings.TrimSpace(strings.ToLower(req.Email))
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, &domain.ErrUnauthorized{Message: "invalid credentials"}
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		s.logger.Warn("login: wrong password", zap.String("user_id", user.ID))
		return nil, &domain.ErrUnauthorized{Message: "invalid credentials"}
	}

	token, err := s.signAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	return &LoginResponse{
		AccessToken: token,
		ExpiresIn:   int(s.accessTTL.Seconds()),
		User:        user,
	}, nil
}

// UpdateTelegramSettings stores the user's approval-bot credentials
// and restarts the bot so the new token takes effect immediately.
func (s *AuthService) UpdateTelegramSettings(ctx context.Context, userID, botToken, chatID string) error {
	if err := s.users.UpdateTelegramSettings(ctx, userID, botToken, chatID); err != nil {
		return err
	}
	if s.restartBot != nil {
		if err := s.restartBot(ctx); err != nil {
			s.logger.Error("failed to restart approval bot", zap.Error(err))
		}
	}
	return nil
}

// JWTClaims are the custom claims carried in access tokens.
type JWTClaims struct {
	Sub  string `json:"sub"`
	Role string `json:"role"`
	Type string `json:"type"`
	jwt.RegisteredClaims
}

// ValidateAccessToken parses and verifies a bearer token. Used by the
// auth middleware.
func (s *AuthService) ValidateAccessToken(tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, &domain.ErrUnauthorized{Message: "invalid or expired token"}
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		return nil, &domain.ErrUnauthorized{Message: "invalid token"}
	}
	if claims.Type != "access" {
		return nil, &domain.ErrUnauthorized{Message: "invalid token type"}
	}
	return claims, nil
}

func (s *AuthService) signAccessToken(user *domain.User) (string, error) {
	now := time.Now()
	claims := JWTClaims{
		Sub:  user.ID,
		Role: user.Role,
		Type: "access",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
			Issuer:    "prime-chatbot",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}
