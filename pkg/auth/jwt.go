package auth

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims is the identity the auth provider embeds in access tokens. The
// scheduling core trusts these claims and performs no authentication of its
// own beyond signature validation.
type Claims struct {
	UserID uuid.UUID
	Role   string
	Email  string
}

type TokenValidator interface {
	ValidateToken(token string) (*Claims, error)
}

type jwtValidator struct {
	secret []byte
}

func NewJWTValidator(secret string) TokenValidator {
	return &jwtValidator{secret: []byte(secret)}
}

func (v *jwtValidator) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	sub, err := mapClaims.GetSubject()
	if err != nil {
		return nil, fmt.Errorf("missing subject claim: %w", err)
	}
	userID, err := uuid.Parse(sub)
	if err != nil {
		return nil, fmt.Errorf("subject is not a valid user id: %w", err)
	}

	role, _ := mapClaims["role"].(string)
	if role == "" {
		return nil, fmt.Errorf("missing role claim")
	}
	email, _ := mapClaims["email"].(string)

	return &Claims{UserID: userID, Role: role, Email: email}, nil
}
