// Package auth decides which chat bridges may open a websocket to the
// dealer. A bridge is trusted to report the identities of its users, so
// only the bridge itself is authenticated.
package auth

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var (
	// ErrInvalidToken means the token was checked and refused.
	ErrInvalidToken = errors.New("auth: invalid token")

	// ErrUnavailable means the token could not be checked.
	ErrUnavailable = errors.New("auth: unavailable")
)

const validateTimeout = 500 * time.Millisecond

// Bridge is an authenticated chat bridge.
type Bridge struct {
	Name string `json:"bridge"`
}

// Validator checks bridge tokens. A nil Bridge with a nil error means
// authentication is disabled.
type Validator interface {
	Validate(ctx context.Context, token string) (*Bridge, error)
}

// TokenFromRequest returns the bearer token from the Authorization header,
// falling back to the token query parameter for clients that cannot set
// headers on a websocket upgrade.
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	return r.URL.Query().Get("token")
}

// StaticValidator accepts a fixed set of shared secrets.
type StaticValidator struct {
	tokens map[string]string
}

// NewStaticValidator accepts each token in tokens, naming the bridge by
// the map value.
func NewStaticValidator(tokens map[string]string) *StaticValidator {
	copied := make(map[string]string, len(tokens))
	for token, name := range tokens {
		if token != "" {
			copied[token] = name
		}
	}
	return &StaticValidator{tokens: copied}
}

func (v *StaticValidator) Validate(ctx context.Context, token string) (*Bridge, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	for known, name := range v.tokens {
		if subtle.ConstantTimeCompare([]byte(known), []byte(token)) == 1 {
			return &Bridge{Name: name}, nil
		}
	}
	return nil, ErrInvalidToken
}

// HTTPValidator asks an external service whether a token is valid.
type HTTPValidator struct {
	url         string
	client      *http.Client
	adminSecret string
}

// NewHTTPValidator creates a validator that posts tokens to url.
func NewHTTPValidator(url string, adminSecret string) *HTTPValidator {
	return &HTTPValidator{
		url:         url,
		adminSecret: adminSecret,
		client:      &http.Client{Timeout: validateTimeout},
	}
}

type validateRequest struct {
	Token string `json:"token"`
}

type validateResponse struct {
	Valid  bool   `json:"valid"`
	Bridge string `json:"bridge,omitempty"`
	Error  string `json:"error,omitempty"`
}

func (v *HTTPValidator) Validate(ctx context.Context, token string) (*Bridge, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}

	ctx, cancel := context.WithTimeout(ctx, validateTimeout)
	defer cancel()

	body, err := json.Marshal(validateRequest{Token: token})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if v.adminSecret != "" {
		req.Header.Set("X-Admin-Secret", v.adminSecret)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, ErrInvalidToken
	default:
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var out validateResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode error: %v", ErrUnavailable, err)
	}
	if !out.Valid {
		return nil, ErrInvalidToken
	}
	return &Bridge{Name: out.Bridge}, nil
}

// NoopValidator lets every connection in.
type NoopValidator struct{}

func (NoopValidator) Validate(ctx context.Context, token string) (*Bridge, error) {
	return nil, nil
}
