package jwttoken

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	pkgerrors "loomworks/pkg/errors"
	"loomworks/pkg/requestcontext"
)

// Claims encodes the caller identity the core trusts: user id and role.
type Claims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Service handles JWT creation and validation.
type Service struct {
	signingKey []byte
	issuer     string
}

func NewService(signingKey string, issuer string) *Service {
	return &Service{
		signingKey: []byte(signingKey),
		issuer:     issuer,
	}
}

// Generate signs an access token for the given identity.
func (s *Service) Generate(ident requestcontext.Identity, expiresIn time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: ident.UserID,
		Role:   string(ident.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    s.issuer,
			ID:        uuid.NewString(),
		},
	})
	return token.SignedString(s.signingKey)
}

// Validate parses and verifies a token, returning the identity it encodes.
func (s *Service) Validate(tokenString string) (requestcontext.Identity, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return requestcontext.Identity{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "token has expired")
		}
		return requestcontext.Identity{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return requestcontext.Identity{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid token claims")
	}

	role := requestcontext.Role(claims.Role)
	if role != requestcontext.RoleAdmin && role != requestcontext.RoleManager {
		return requestcontext.Identity{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "unknown role in token")
	}

	return requestcontext.Identity{UserID: claims.UserID, Role: role}, nil
}
