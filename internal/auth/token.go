// Package auth issues and verifies the signed identity tokens shared by all
// services, and resolves them into a request-scoped principal.
package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"

	"microshop/internal/domain"
)

// MinSecretLen is the HS256 key size in bytes.
const MinSecretLen = 32

// Claims is the verified content of a token.
type Claims struct {
	Subject   string
	AccountID int64
	Role      domain.Role
	IssuedAt  time.Time
	ExpiresAt time.Time
}

func (c Claims) Principal() domain.Principal {
	return domain.Principal{Identity: c.Subject, AccountID: c.AccountID, Role: c.Role}
}

type customClaims struct {
	ID   int64  `json:"id"`
	Role string `json:"role"`
}

// Verifier is the read side of the codec, used by the middleware.
type Verifier interface {
	Verify(raw string) (Claims, error)
}

type TokenCodec struct {
	key    []byte
	signer jose.Signer
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenCodec builds a codec over the shared secret. A zero ttl issues
// tokens without expiry.
func NewTokenCodec(secret string, ttl time.Duration) (*TokenCodec, error) {
	if len(secret) < MinSecretLen {
		return nil, fmt.Errorf("token secret must be at least %d bytes", MinSecretLen)
	}
	key := []byte(secret)
	signer, err := jose.NewSigner(
		jose.SigningKey{Algorithm: jose.HS256, Key: key},
		(&jose.SignerOptions{}).WithType("JWT"),
	)
	if err != nil {
		return nil, fmt.Errorf("create signer: %w", err)
	}
	return &TokenCodec{key: key, signer: signer, ttl: ttl, now: time.Now}, nil
}

// Issue signs a token for identity. The role is carried as a claim so that
// verification does not need to consult the identity store.
func (c *TokenCodec) Issue(identity string, accountID int64, role domain.Role) (string, error) {
	if identity == "" {
		return "", fmt.Errorf("%w: empty identity", domain.ErrInvalidInput)
	}
	if !role.Valid() {
		return "", fmt.Errorf("%w: unknown role %q", domain.ErrInvalidInput, role)
	}

	now := c.now()
	std := jwt.Claims{
		Subject:  identity,
		IssuedAt: jwt.NewNumericDate(now),
	}
	if c.ttl > 0 {
		std.Expiry = jwt.NewNumericDate(now.Add(c.ttl))
	}

	raw, err := jwt.Signed(c.signer).
		Claims(std).
		Claims(customClaims{ID: accountID, Role: string(role)}).
		Serialize()
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return raw, nil
}

// Verify checks the signature and claims of raw. Every failure wraps
// domain.ErrInvalidToken.
func (c *TokenCodec) Verify(raw string) (Claims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Claims{}, fmt.Errorf("%w: missing", domain.ErrInvalidToken)
	}

	tok, err := jwt.ParseSigned(raw, []jose.SignatureAlgorithm{jose.HS256})
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}

	var std jwt.Claims
	var custom customClaims
	if err := tok.Claims(c.key, &std, &custom); err != nil {
		return Claims{}, fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}
	if std.Subject == "" {
		return Claims{}, fmt.Errorf("%w: empty subject", domain.ErrInvalidToken)
	}
	if err := std.ValidateWithLeeway(jwt.Expected{Time: c.now()}, jwt.DefaultLeeway); err != nil {
		return Claims{}, fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}
	role := domain.Role(custom.Role)
	if !role.Valid() {
		return Claims{}, fmt.Errorf("%w: unknown role %q", domain.ErrInvalidToken, custom.Role)
	}

	claims := Claims{
		Subject:   std.Subject,
		AccountID: custom.ID,
		Role:      role,
	}
	if std.IssuedAt != nil {
		claims.IssuedAt = std.IssuedAt.Time()
	}
	if std.Expiry != nil {
		claims.ExpiresAt = std.Expiry.Time()
	}
	return claims, nil
}

// BearerToken strips an optional "Bearer " prefix from an Authorization
// header value.
func BearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) >= 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return header
}
