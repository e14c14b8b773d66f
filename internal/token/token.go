package token

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/janusgate/backend/internal/config"
)

// ErrInvalidToken is returned for any structural, signature or expiry failure.
var ErrInvalidToken = errors.New("invalid or expired token")

// Claims carries the payload of a signed access token. The token type tag is
// checked explicitly by callers; a refresh secret never reaches this codec as
// a JWT, so "access" is the only value issued here.
type Claims struct {
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

// Codec signs and verifies access tokens and hashes refresh secrets.
// It holds no mutable state and is safe for concurrent use.
type Codec struct {
	secret    []byte
	method    jwt.SigningMethod
	accessTTL time.Duration
	pepper    string
}

func NewCodec(cfg *config.Config) *Codec {
	return &Codec{
		secret:    []byte(cfg.JWTSecret),
		method:    signingMethod(cfg.JWTAlgorithm),
		accessTTL: time.Duration(cfg.AccessTokenTTLMinutes) * time.Minute,
		pepper:    cfg.RefreshTokenPepper,
	}
}

func signingMethod(alg string) jwt.SigningMethod {
	switch alg {
	case "HS384":
		return jwt.SigningMethodHS384
	case "HS512":
		return jwt.SigningMethodHS512
	default:
		return jwt.SigningMethodHS256
	}
}

// HashPassword hashes a plaintext password with bcrypt.
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// VerifyPassword reports whether the plaintext matches the stored bcrypt hash.
func VerifyPassword(password, hashed string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(password)) == nil
}

// NewAccessToken issues a signed, time-boxed access token for the given
// internal user id.
func (c *Codec) NewAccessToken(userID uint) (string, error) {
	now := time.Now()
	claims := Claims{
		TokenType: "access",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.accessTTL)),
		},
	}

	return jwt.NewWithClaims(c.method, claims).SignedString(c.secret)
}

// Decode verifies signature and expiry and returns the claims. The signing
// method is pinned to the configured algorithm; anything else fails.
func (c *Codec) Decode(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(
		tokenString,
		&Claims{},
		func(t *jwt.Token) (interface{}, error) { return c.secret, nil },
		jwt.WithValidMethods([]string{c.method.Alg()}),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, errors.Join(ErrInvalidToken, jwt.ErrTokenExpired)
		}
		return nil, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// AccessTTLSeconds is the lifetime reported to clients alongside a new token.
func (c *Codec) AccessTTLSeconds() int64 {
	return int64(c.accessTTL / time.Second)
}

// HashRefreshSecret hashes a refresh secret with the server-side pepper.
// Deterministic on purpose: refresh rows are looked up by hash equality,
// which bcrypt-style salted hashing would make impossible.
func (c *Codec) HashRefreshSecret(plain string) string {
	sum := sha256.Sum256([]byte(plain + c.pepper))
	return hex.EncodeToString(sum[:])
}

// NewRefreshSecret generates an opaque refresh secret with 32 bytes of
// entropy, URL-safe encoded. Only its hash is ever persisted.
func NewRefreshSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// NewTokenID generates a random identifier for a refresh token row. It is not
// secret-bearing; it exists for indexing and debugging.
func NewTokenID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
