package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// Claims is the verified identity the core consumes. Token issuance and
// password handling live in the external auth service; this package only
// decodes what that service signed.
type Claims struct {
	UserID int64
	Role   string
}

// TokenVerifier turns a bearer token into verified claims
type TokenVerifier interface {
	Verify(token string) (*Claims, error)
}

type jwtClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// JWTVerifier validates HS256 tokens with the secret shared with the auth
// service. Stateless: no database lookups.
type JWTVerifier struct {
	secret []byte
}

func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret)}
}

func (v *JWTVerifier) Verify(tokenStr string) (*Claims, error) {
	t, err := jwt.ParseWithClaims(tokenStr, &jwtClaims{}, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	c, ok := t.Claims.(*jwtClaims)
	if !ok || !t.Valid {
		return nil, errors.New("invalid token")
	}

	// The auth service writes the user id into the subject claim
	userID, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || userID == 0 {
		return nil, errors.New("token has no usable subject")
	}

	return &Claims{UserID: userID, Role: c.Role}, nil
}

// IssueToken signs a token for the given identity. Only tests and the seed
// tool use this; the real issuer is the auth service.
func IssueToken(secret string, userID int64, role string, ttl time.Duration) (string, error) {
	claims := jwtClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
