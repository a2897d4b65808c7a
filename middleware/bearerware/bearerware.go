// Package bearerware provides a fiber middleware that guards routes
// behind bearer token authentication. The middleware does not decode
// tokens itself. It extracts the raw credential from the request and
// delegates to a configured Authenticate function, which resolves the
// account the token belongs to. This keeps the middleware free of any
// dependency on the packages that define accounts and claims.
package bearerware

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
)

var (
	defaultTokenLookup = "header:" + fiber.HeaderAuthorization

	// ErrMissingOrMalformed is returned by extractors when no credential
	// could be read from the request.
	ErrMissingOrMalformed = errors.New("missing or malformed token")
)

// Authenticator resolves an extracted bearer token into an identity.
// It returns the authenticated identity, the token that matched, and
// an error when the credential does not resolve to a live session.
type Authenticator func(ctx context.Context, token string) (any, string, error)

type Config struct {
	// Filter defines a function to skip the middleware for a request.
	Filter func(*fiber.Ctx) bool

	// SuccessHandler runs after a credential was resolved. Defaults to
	// passing the request along the chain.
	SuccessHandler fiber.Handler

	// ErrorHandler runs when extraction or authentication fail. The
	// default responds 401 with a uniform body regardless of cause.
	ErrorHandler func(*fiber.Ctx, error) error

	// Authenticate is required. It receives the bearer token with the
	// scheme prefix already stripped.
	Authenticate Authenticator

	// ContextKey is the Locals key holding the authenticated identity.
	ContextKey string

	// TokenContextKey is the Locals key holding the raw token string.
	TokenContextKey string

	// TokenLookup configures where credentials are read from, e.g.
	// "header:Authorization,cookie:auth_token".
	TokenLookup string

	// AuthScheme is the expected header scheme prefix.
	AuthScheme string

	// ContextEnricher is an optional function to propagate the identity
	// to the standard Go context carried by the request.
	ContextEnricher func(c context.Context, identity any) context.Context
}

func New(config ...Config) fiber.Handler {
	cfg := GetDefaultConfig(config...)
	extractors := GetExtractors(cfg.TokenLookup, cfg.AuthScheme)

	return func(c *fiber.Ctx) error {
		if cfg.Filter != nil && cfg.Filter(c) {
			return c.Next()
		}

		raw, err := extractRawToken(c, extractors)
		if err != nil {
			return cfg.ErrorHandler(c, err)
		}

		identity, token, err := cfg.Authenticate(c.UserContext(), raw)
		if err != nil {
			return cfg.ErrorHandler(c, err)
		}

		c.Locals(cfg.ContextKey, identity)
		c.Locals(cfg.TokenContextKey, token)

		if cfg.ContextEnricher != nil {
			c.SetUserContext(cfg.ContextEnricher(c.UserContext(), identity))
		}

		return cfg.SuccessHandler(c)
	}
}

func GetDefaultConfig(config ...Config) (cfg Config) {
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.Authenticate == nil {
		panic("bearerware: middleware configuration: Authenticate is required.")
	}

	if cfg.SuccessHandler == nil {
		cfg.SuccessHandler = func(c *fiber.Ctx) error {
			return c.Next()
		}
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "please authenticate",
			})
		}
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = "user"
	}

	if cfg.TokenContextKey == "" {
		cfg.TokenContextKey = "token"
	}

	if cfg.TokenLookup == "" {
		cfg.TokenLookup = defaultTokenLookup
	}

	if cfg.AuthScheme == "" {
		cfg.AuthScheme = "Bearer"
	}

	return cfg
}

func extractRawToken(c *fiber.Ctx, extractors []TokenExtractor) (string, error) {
	var raw string
	var err error

	for _, extractor := range extractors {
		raw, err = extractor(c)
		if raw != "" && err == nil {
			break
		}
	}

	return raw, err
}

type TokenExtractor func(c *fiber.Ctx) (string, error)

func GetExtractors(tokenLookup string, authSchemes ...string) []TokenExtractor {
	extractors := make([]TokenExtractor, 0)

	authScheme := "Bearer"
	if len(authSchemes) > 0 {
		authScheme = authSchemes[0]
	}

	// header:Authorization,cookie:auth_token,query:auth_token
	rootParts := strings.Split(tokenLookup, ",")
	for _, rootPart := range rootParts {
		parts := strings.Split(strings.TrimSpace(rootPart), ":")

		for i, el := range parts {
			parts[i] = strings.TrimSpace(el)
		}

		switch parts[0] {
		case "header":
			extractors = append(extractors, tokenFromHeader(parts[1], authScheme))
		case "query":
			extractors = append(extractors, tokenFromQuery(parts[1]))
		case "cookie":
			extractors = append(extractors, tokenFromCookie(parts[1]))
		}
	}

	return extractors
}

// tokenFromHeader returns a function that extracts the token from the
// request header, stripping the scheme prefix.
func tokenFromHeader(header string, authScheme string) TokenExtractor {
	return func(c *fiber.Ctx) (string, error) {
		a := c.Get(header)
		authScheme = strings.TrimSpace(authScheme)
		l := len(authScheme)
		if l == 0 {
			return "", ErrMissingOrMalformed
		}
		if len(a) > l+1 && strings.EqualFold(a[:l], authScheme) {
			return strings.TrimSpace(a[l:]), nil
		}
		return "", ErrMissingOrMalformed
	}
}

// tokenFromQuery returns a function that extracts the token from the
// query string.
func tokenFromQuery(param string) TokenExtractor {
	return func(c *fiber.Ctx) (string, error) {
		token := c.Query(param)
		if token == "" {
			return "", ErrMissingOrMalformed
		}
		return token, nil
	}
}

// tokenFromCookie returns a function that extracts the token from the
// named cookie.
func tokenFromCookie(name string) TokenExtractor {
	return func(c *fiber.Ctx) (string, error) {
		token := c.Cookies(name)
		if token == "" {
			return "", ErrMissingOrMalformed
		}
		return token, nil
	}
}
