// Package security also verifies the bearer tokens issued by the
// upstream OIDC exchange. AETIM never logs anyone in itself: it trusts
// the identity provider named by config.AuthConfig.OIDCIssuerURL and
// only checks that a presented token was signed by it, has not expired,
// and carries the configured audience, per shared.Principal's contract.
package security

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/aetim/core/internal/domain/shared"
	"github.com/aetim/core/internal/infrastructure/config"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// OIDCAuthenticator verifies access tokens against the issuer's published
// JSON Web Key Set and turns the verified claims into a shared.Principal.
type OIDCAuthenticator struct {
	cfg    config.AuthConfig
	logger *zap.Logger
	client *http.Client

	mu        sync.RWMutex
	keys      map[string]*rsa.PublicKey
	fetchedAt time.Time
}

// NewOIDCAuthenticator creates an authenticator for the issuer named in cfg.
func NewOIDCAuthenticator(cfg config.AuthConfig, logger *zap.Logger) *OIDCAuthenticator {
	return &OIDCAuthenticator{
		cfg:    cfg,
		logger: logger.Named("oidc"),
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Claims is the subset of an OIDC access token this service reads.
type Claims struct {
	jwt.RegisteredClaims
	Roles any `json:"-"`
}

// Authenticate verifies a raw bearer token string and returns the
// principal it carries.
func (a *OIDCAuthenticator) Authenticate(ctx context.Context, rawToken string) (shared.Principal, error) {
	token, err := jwt.Parse(rawToken, a.keyfunc, jwt.WithAudience(a.cfg.OIDCAudience),
		jwt.WithIssuer(a.cfg.OIDCIssuerURL), jwt.WithLeeway(a.cfg.ClockSkew))
	if err != nil {
		return shared.Principal{}, fmt.Errorf("token verification failed: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return shared.Principal{}, fmt.Errorf("invalid token claims")
	}

	subject, err := claims.GetSubject()
	if err != nil || subject == "" {
		return shared.Principal{}, fmt.Errorf("token missing subject claim")
	}

	return shared.Principal{
		SubjectID: subject,
		Roles:     a.rolesFromClaims(claims),
	}, nil
}

func (a *OIDCAuthenticator) rolesFromClaims(claims jwt.MapClaims) []string {
	raw, ok := claims[a.cfg.RoleClaim]
	if !ok {
		return nil
	}

	switch v := raw.(type) {
	case []interface{}:
		roles := make([]string, 0, len(v))
		for _, r := range v {
			if s, ok := r.(string); ok {
				roles = append(roles, s)
			}
		}
		return roles
	case string:
		return strings.Fields(v)
	default:
		return nil
	}
}

func (a *OIDCAuthenticator) keyfunc(token *jwt.Token) (interface{}, error) {
	kid, _ := token.Header["kid"].(string)
	if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}

	keys, err := a.currentKeys()
	if err != nil {
		return nil, err
	}

	if kid != "" {
		if key, ok := keys[kid]; ok {
			return key, nil
		}
		return nil, fmt.Errorf("no matching key for kid %q", kid)
	}

	for _, key := range keys {
		return key, nil
	}
	return nil, fmt.Errorf("no signing keys available")
}

func (a *OIDCAuthenticator) currentKeys() (map[string]*rsa.PublicKey, error) {
	a.mu.RLock()
	fresh := a.keys != nil && time.Since(a.fetchedAt) < a.cfg.JWKSCacheTTL
	keys := a.keys
	a.mu.RUnlock()
	if fresh {
		return keys, nil
	}

	fetched, err := a.fetchKeys()
	if err != nil {
		if keys != nil {
			a.logger.Warn("jwks refresh failed, serving stale keys", zap.Error(err))
			return keys, nil
		}
		return nil, err
	}

	a.mu.Lock()
	a.keys = fetched
	a.fetchedAt = time.Now()
	a.mu.Unlock()

	return fetched, nil
}

type jwkSet struct {
	Keys []jwk `json:"keys"`
}

type jwk struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	N   string `json:"n"`
	E   string `json:"e"`
}

func (a *OIDCAuthenticator) fetchKeys() (map[string]*rsa.PublicKey, error) {
	jwksURL := strings.TrimRight(a.cfg.OIDCIssuerURL, "/") + "/.well-known/jwks.json"

	resp, err := a.client.Get(jwksURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch jwks: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("jwks endpoint returned status %d", resp.StatusCode)
	}

	var set jwkSet
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return nil, fmt.Errorf("failed to decode jwks: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(set.Keys))
	for _, k := range set.Keys {
		if k.Kty != "RSA" {
			continue
		}
		pub, err := rsaPublicKeyFromJWK(k)
		if err != nil {
			a.logger.Warn("skipping malformed jwks entry", zap.String("kid", k.Kid), zap.Error(err))
			continue
		}
		keys[k.Kid] = pub
	}

	if len(keys) == 0 {
		return nil, fmt.Errorf("jwks response contained no usable RSA keys")
	}

	return keys, nil
}

func rsaPublicKeyFromJWK(k jwk) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, fmt.Errorf("invalid modulus: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, fmt.Errorf("invalid exponent: %w", err)
	}

	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nBytes),
		E: int(new(big.Int).SetBytes(eBytes).Int64()),
	}, nil
}
