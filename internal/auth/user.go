package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	userDatamodel "github.com/frahmantamala/credential-vault/internal/core/datamodel/user"
)

type ServiceAPI interface {
	Authenticate(dto LoginDTO) (AuthTokens, error)
	RefreshTokens(refreshToken string) (AuthTokens, error)
	ValidateAccessToken(tokenString string) (*Claims, error)
	ActorByID(userID int64) (*userDatamodel.User, error)
}

type RepositoryAPI interface {
	GetByPortalLogin(portalLogin string) (*userDatamodel.User, error)
	GetByID(userID int64) (*userDatamodel.User, error)
}

type TokenGeneratorAPI interface {
	GenerateAccessToken(userID int64) (token string, err error)
	GenerateRefreshToken(userID int64) (token string, err error)
	ValidateToken(tokenString string) (*Claims, error)
}

type AuthTokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type Claims struct {
	UserID int64 `json:"user_id"`
	jwt.RegisteredClaims
}

type JWTTokenGenerator struct {
	AccessTokenSecret  []byte
	RefreshTokenSecret []byte
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration
}

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")
	ErrUserInactive       = errors.New("user is inactive")
)

func VerifyPassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

type actorCtxKey string

const contextActorKey actorCtxKey = "actor"

// ActorFromContext returns the authenticated user placed in the request
// context by AuthMiddleware.
func ActorFromContext(ctx context.Context) (*userDatamodel.User, bool) {
	actor, ok := ctx.Value(contextActorKey).(*userDatamodel.User)
	return actor, ok && actor != nil
}

func ContextWithActor(ctx context.Context, actor *userDatamodel.User) context.Context {
	return context.WithValue(ctx, contextActorKey, actor)
}
