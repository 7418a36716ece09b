package usecase

import (
	"context"
	"strings"
	"time"

	authdomain "marketplace-backend/internal/auth/domain"
	authdto "marketplace-backend/internal/auth/dto"
	"marketplace-backend/internal/auth/repository"
	"marketplace-backend/pkg/config"
	"marketplace-backend/pkg/logger"

	"github.com/cockroachdb/errors"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RememberTTL is the session lifetime when the user asks to be remembered
const RememberTTL = 30 * 24 * time.Hour

// authUsecase implements AuthUsecase interface
type authUsecase struct {
	userRepo repository.UserRepository
	mirror   repository.UserMirror
	config   *config.Config
	log      *zap.SugaredLogger
}

// NewAuthUsecase creates a new instance of authUsecase. mirror may be nil.
func NewAuthUsecase(userRepo repository.UserRepository, mirror repository.UserMirror, cfg *config.Config) AuthUsecase {
	return &authUsecase{
		userRepo: userRepo,
		mirror:   mirror,
		config:   cfg,
		log:      logger.GetLogger("auth"),
	}
}

func (u *authUsecase) Register(ctx context.Context, req *authdto.RegisterRequest) (*authdomain.User, error) {
	username := strings.TrimSpace(req.Username)
	email := strings.ToLower(strings.TrimSpace(req.Email))

	existing, err := u.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, errors.Wrap(err, "lookup username")
	}
	if existing != nil {
		return nil, authdomain.ErrUsernameTaken
	}

	existing, err = u.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, errors.Wrap(err, "lookup email")
	}
	if existing != nil {
		return nil, authdomain.ErrEmailTaken
	}

	hashedPassword, err := repository.HashPassword(req.Password)
	if err != nil {
		return nil, errors.Wrap(err, "hash password")
	}

	user := &authdomain.User{
		Username:     username,
		Email:        email,
		PasswordHash: hashedPassword,
	}

	if err := u.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, authdomain.ErrUserExists) {
			return nil, err
		}
		u.log.Errorw("Error creating user in database", "username", username, "error", err)
		return nil, errors.Wrap(err, "create user")
	}

	if u.mirror != nil {
		if err := u.mirror.Create(ctx, user); err != nil {
			u.log.Warnw("Error mirroring user to secondary store", "user_id", user.ID, "error", err)
		}
	}

	u.log.Infow("User registered", "user_id", user.ID, "username", user.Username)
	return user, nil
}

func (u *authUsecase) Login(ctx context.Context, req *authdto.LoginRequest) (*authdto.TokenResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	user, err := u.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, errors.Wrap(err, "lookup user")
	}

	if user == nil {
		user, err = u.restoreFromMirror(ctx, email, req.Password)
		if err != nil {
			return nil, err
		}
	}

	if user == nil || !repository.CheckPasswordHash(req.Password, user.PasswordHash) {
		return nil, authdomain.ErrInvalidCredentials
	}

	ttl := u.config.SessionTTL
	if req.Remember {
		ttl = RememberTTL
	}

	return u.generateToken(user, ttl)
}

// restoreFromMirror recreates a user that only the secondary store knows,
// provided the password matches the mirrored hash.
func (u *authUsecase) restoreFromMirror(ctx context.Context, email, password string) (*authdomain.User, error) {
	if u.mirror == nil {
		return nil, nil
	}

	mirrored, err := u.mirror.FindByEmail(ctx, email)
	if err != nil {
		u.log.Warnw("Error reading user from secondary store", "email", email, "error", err)
		return nil, nil
	}
	if mirrored == nil || !repository.CheckPasswordHash(password, mirrored.PasswordHash) {
		return nil, nil
	}

	user := &authdomain.User{
		Username:     mirrored.Username,
		Email:        mirrored.Email,
		PasswordHash: mirrored.PasswordHash,
	}
	if err := u.userRepo.Create(ctx, user); err != nil {
		u.log.Errorw("Error creating user from secondary store data", "email", email, "error", err)
		return nil, authdomain.ErrLoginUnavailable
	}

	u.log.Infow("Created user from secondary store data", "email", email, "user_id", user.ID)
	return user, nil
}

func (u *authUsecase) generateToken(user *authdomain.User, ttl time.Duration) (*authdto.TokenResponse, error) {
	now := time.Now()
	expiresAt := now.Add(ttl)

	claims := jwt.MapClaims{
		"user_id":  user.ID,
		"username": user.Username,
		"jti":      uuid.New().String(),
		"exp":      expiresAt.Unix(),
		"iat":      now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(u.config.SessionSecret))
	if err != nil {
		return nil, errors.Wrap(err, "sign session token")
	}

	return &authdto.TokenResponse{
		AccessToken: signed,
		ExpiresAt:   expiresAt,
		User:        user,
	}, nil
}

func (u *authUsecase) ValidateToken(ctx context.Context, tokenString string) (*authdomain.User, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return []byte(u.config.SessionSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	if err != nil || !token.Valid {
		return nil, authdomain.ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, authdomain.ErrInvalidToken
	}

	rawID, ok := claims["user_id"].(float64)
	if !ok || rawID <= 0 {
		return nil, authdomain.ErrInvalidToken
	}

	user, err := u.userRepo.FindByID(ctx, uint(rawID))
	if err != nil {
		return nil, err
	}

	if user == nil {
		return nil, authdomain.ErrInvalidToken
	}

	return user, nil
}
