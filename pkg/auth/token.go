package auth

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/cartlimits-backend/pkg/config"
)

var jwtSigningMethod = jwt.SigningMethodHS256

// SessionTokenPayload captures the data needed to mint a session token.
type SessionTokenPayload struct {
	UserID    string
	SessionID string
	JTI       string
}

// MintSessionToken issues a session token the way the Shopify admin does for the configured shop.
// Used by local tooling and tests; production tokens come from App Bridge.
func MintSessionToken(cfg config.ShopifyConfig, now time.Time, ttl time.Duration, payload SessionTokenPayload) (string, error) {
	if cfg.APISecret == "" {
		return "", fmt.Errorf("shopify api secret is required")
	}
	if cfg.APIKey == "" {
		return "", fmt.Errorf("shopify api key is required")
	}
	if cfg.ShopDomain == "" {
		return "", fmt.Errorf("shopify shop domain is required")
	}
	if ttl <= 0 {
		ttl = time.Minute
	}

	jti := strings.TrimSpace(payload.JTI)
	if jti == "" {
		jti = uuid.NewString()
	}
	shopURL := "https://" + cfg.ShopDomain

	claims := SessionTokenClaims{
		Dest:      shopURL,
		SessionID: payload.SessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    shopURL + "/admin",
			Subject:   payload.UserID,
			Audience:  jwt.ClaimStrings{cfg.APIKey},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        jti,
		},
	}

	token := jwt.NewWithClaims(jwtSigningMethod, claims)
	signed, err := token.SignedString([]byte(cfg.APISecret))
	if err != nil {
		return "", fmt.Errorf("signing jwt: %w", err)
	}
	return signed, nil
}

// ParseSessionToken validates signature, audience, lifetime and destination shop of a session token.
func ParseSessionToken(cfg config.ShopifyConfig, tokenString string) (*SessionTokenClaims, error) {
	if cfg.APISecret == "" {
		return nil, fmt.Errorf("shopify api secret is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("shopify api key is required")
	}

	claims := &SessionTokenClaims{}
	_, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(token *jwt.Token) (interface{}, error) {
			if token.Method != jwtSigningMethod {
				return nil, fmt.Errorf("unexpected signing method %s", token.Header["alg"])
			}
			return []byte(cfg.APISecret), nil
		},
		jwt.WithValidMethods([]string{jwtSigningMethod.Alg()}),
		jwt.WithAudience(cfg.APIKey),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(5*time.Second),
	)
	if err != nil {
		return nil, err
	}

	host, err := destHost(claims.Dest)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(host, cfg.ShopDomain) {
		return nil, fmt.Errorf("session token issued for %s", host)
	}
	return claims, nil
}

func destHost(dest string) (string, error) {
	if strings.TrimSpace(dest) == "" {
		return "", fmt.Errorf("session token missing dest")
	}
	parsed, err := url.Parse(dest)
	if err != nil {
		return "", fmt.Errorf("parsing dest: %w", err)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("session token dest has no host")
	}
	return strings.ToLower(parsed.Host), nil
}
