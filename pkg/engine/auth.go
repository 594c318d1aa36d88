package engine

import (
	"context"
	"log/slog"

	"golang.org/x/sync/singleflight"
)

// Authenticator exchanges the configured credentials for a bearer token.
// Concurrent callers share a single in-flight login.
type Authenticator struct {
	client *Client
	creds  Credentials
	tokens *TokenStore
	group  singleflight.Group
}

// NewAuthenticator creates an authenticator that stores tokens in tokens.
func NewAuthenticator(client *Client, creds Credentials, tokens *TokenStore) *Authenticator {
	return &Authenticator{client: client, creds: creds, tokens: tokens}
}

// Authenticate logs in and replaces the stored token. It does not retry.
func (a *Authenticator) Authenticate(ctx context.Context) (string, error) {
	// The login is shared by every waiting caller, so it must not inherit
	// one caller's cancellation; the client timeout still bounds it.
	loginCtx := context.WithoutCancel(ctx)
	v, err, shared := a.group.Do("login", func() (any, error) {
		token, err := a.client.Login(loginCtx, a.creds)
		if err != nil {
			slog.Error("engine authentication failed", "user", a.creds.Username, "error", err)
			return "", wrapErr(KindAuthentication, "login", "", err)
		}
		a.tokens.Set(token)
		slog.Info("engine authentication succeeded", "user", a.creds.Username)
		return token, nil
	})
	if err != nil {
		return "", err
	}
	if shared {
		slog.Debug("joined in-flight engine login")
	}
	return v.(string), nil
}

// Do calls fn with the stored token. When the engine rejects the token, Do
// retries fn once with a fresh one: the token another caller already stored,
// or a new login. The stored token stays in place until it is replaced.
func (a *Authenticator) Do(ctx context.Context, fn func(token string) error) error {
	token, _ := a.tokens.Get()
	err := fn(token)
	if err == nil || !unauthorized(err) {
		return err
	}

	slog.Warn("engine rejected token, re-authenticating", "error", err)
	fresh, ok := a.tokens.Get()
	if !ok || fresh == token {
		if fresh, err = a.Authenticate(ctx); err != nil {
			return err
		}
	}
	return fn(fresh)
}
