package guestbook

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrNoIdentity      = errors.New("no identity token")
	ErrInvalidIdentity = errors.New("invalid identity token")
)

// Identity é o trio fornecido pelo provedor de identidade; o gateway confia nele.
type Identity struct {
	ID          string
	DisplayName string
	AvatarRef   string
}

// IdentityVerifier valida tokens HS256 emitidos pelo provedor de sessão
// (formato Supabase: sub + user_metadata.full_name/avatar_url).
type IdentityVerifier struct {
	secret []byte
	issuer string
	now    func() time.Time
}

type IdentityOption func(*IdentityVerifier)

func WithIssuer(issuer string) IdentityOption {
	return func(v *IdentityVerifier) { v.issuer = strings.TrimSpace(issuer) }
}

func WithIdentityClock(now func() time.Time) IdentityOption {
	return func(v *IdentityVerifier) { v.now = now }
}

// NewIdentityVerifier devolve nil quando secret é vazio (identidade vem do corpo).
func NewIdentityVerifier(secret string, opts ...IdentityOption) *IdentityVerifier {
	if strings.TrimSpace(secret) == "" {
		return nil
	}
	v := &IdentityVerifier{secret: []byte(secret), now: time.Now}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

type identityClaims struct {
	jwt.RegisteredClaims
	UserMetadata struct {
		FullName  string `json:"full_name"`
		Name      string `json:"name"`
		AvatarURL string `json:"avatar_url"`
	} `json:"user_metadata"`
}

// FromRequest lê o Authorization: Bearer. Sem header devolve ErrNoIdentity.
func (v *IdentityVerifier) FromRequest(r *http.Request) (Identity, error) {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if h == "" {
		return Identity{}, ErrNoIdentity
	}
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return Identity{}, ErrInvalidIdentity
	}
	return v.Verify(strings.TrimSpace(token))
}

func (v *IdentityVerifier) Verify(token string) (Identity, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	var claims identityClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %w", ErrInvalidIdentity, err)
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return Identity{}, fmt.Errorf("%w: missing subject", ErrInvalidIdentity)
	}

	name := claims.UserMetadata.FullName
	if name == "" {
		name = claims.UserMetadata.Name
	}
	return Identity{
		ID:          claims.Subject,
		DisplayName: name,
		AvatarRef:   claims.UserMetadata.AvatarURL,
	}, nil
}
