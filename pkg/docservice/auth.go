package docservice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
)

// Authenticator exchanges the long-lived public key for a short-lived bearer
// token and caches it. Re-authentication is pull-based: Ensure exchanges only
// when nothing is cached. Concurrent callers that find the cache empty may each
// exchange; the last token stored wins.
type Authenticator struct {
	credential string
	authURL    string
	http       *http.Client
	logger     *slog.Logger
	token      atomic.Pointer[string]
}

// NewAuthenticator creates an Authenticator posting to {baseURL}/auth.
func NewAuthenticator(credential, baseURL string, client *http.Client, logger *slog.Logger) *Authenticator {
	return &Authenticator{
		credential: credential,
		authURL:    strings.TrimSuffix(baseURL, "/") + "/auth",
		http:       client,
		logger:     logger.With("system", "docservice-auth"),
	}
}

// Ensure returns the cached token, authenticating first if none is cached.
func (a *Authenticator) Ensure(ctx context.Context) (string, error) {
	if t := a.token.Load(); t != nil {
		return *t, nil
	}

	token, err := a.exchange(ctx)
	if err != nil {
		return "", err
	}

	a.token.Store(&token)
	return token, nil
}

// Invalidate drops the cached token so the next Ensure re-authenticates.
func (a *Authenticator) Invalidate() {
	if a.token.Swap(nil) != nil {
		a.logger.Info("bearer token invalidated")
	}
}

// Token returns the cached token, or "" when none is cached.
func (a *Authenticator) Token() string {
	if t := a.token.Load(); t != nil {
		return *t
	}
	return ""
}

type authRequest struct {
	PublicKey string `json:"public_key"`
}

type authResponse struct {
	Token string `json:"token"`
}

func (a *Authenticator) exchange(ctx context.Context) (string, error) {
	if a.credential == "" {
		return "", fmt.Errorf("%w: public key not configured", ErrAuth)
	}

	body, err := json.Marshal(authRequest{PublicKey: a.credential})
	if err != nil {
		return "", fmt.Errorf("%w: encode request: %w", ErrAuth, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.authURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: build request: %w", ErrAuth, err)
	}
	req.Header.Set("Content-Type", "application/json")

	a.logger.Info("authenticating")

	resp, err := a.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrAuth, err)
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		return "", fmt.Errorf("%w: %w", ErrAuth, statusError("auth", resp))
	}

	var out authResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: decode response: %w", ErrAuth, err)
	}
	if out.Token == "" {
		return "", fmt.Errorf("%w: response missing token", ErrAuth)
	}

	a.logger.Info("authenticated")
	return out.Token, nil
}

func isSuccess(code int) bool {
	return code >= 200 && code < 300
}

func statusError(op string, resp *http.Response) *StatusError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &StatusError{
		Op:         op,
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(body)),
	}
}
