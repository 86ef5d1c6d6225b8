package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	"github.com/IlyushaZ/vinyl-store/pkg/model"
)

// Provider turns a bearer token into a Principal.
type Provider interface {
	Authenticate(ctx context.Context, token string) (model.Principal, error)
}

type Claims struct {
	jwt.RegisteredClaims

	UserID   string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// JWT verifies HS256 tokens signed with Secret.
type JWT struct {
	Secret []byte
}

func (j *JWT) Authenticate(_ context.Context, token string) (model.Principal, error) {
	if token == "" {
		return model.Principal{}, model.ErrUnauthenticated
	}

	var claims Claims

	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return j.Secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return model.Principal{}, fmt.Errorf("%w: %v", model.ErrInvalidToken, err)
	}

	id, err := uuid.Parse(claims.UserID)
	if err != nil || id == uuid.Nil {
		return model.Principal{}, model.ErrInvalidToken
	}

	role := model.Role(claims.Role)
	switch role {
	case model.RoleUser, model.RoleAdmin:
	case "":
		role = model.RoleUser
	default:
		return model.Principal{}, model.ErrInvalidToken
	}

	return model.Principal{ID: id, Username: claims.Username, Role: role}, nil
}

// Sign issues a token for p valid for ttl.
func (j *JWT) Sign(p model.Principal, ttl time.Duration) (string, error) {
	if !p.Authenticated() {
		return "", errors.New("can't sign token for anonymous principal")
	}

	if p.Role != model.RoleUser && p.Role != model.RoleAdmin {
		return "", fmt.Errorf("can't sign token for unknown role %q", p.Role)
	}

	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UserID:   p.ID.String(),
		Username: p.Username,
		Role:     string(p.Role),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.Secret)
	if err != nil {
		return "", fmt.Errorf("can't sign token: %w", err)
	}

	return signed, nil
}
