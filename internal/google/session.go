package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"golang.org/x/oauth2"
)

// Session owns the OAuth tokens of one account. It hands out access tokens,
// refreshes them when they expire and writes every new token back to disk so
// the next run starts with it.
type Session struct {
	ctx    context.Context
	logger *slog.Logger
	config *oauth2.Config
	path   string

	mu    sync.Mutex
	token *oauth2.Token
}

// NewSession loads the stored token for accountName.
func NewSession(ctx context.Context, logger *slog.Logger, clientID, clientSecret, accountName string) (*Session, error) {
	config, err := getOAuthConfig(clientID, clientSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to get OAuth config: %w", err)
	}
	return loadSession(ctx, logger, config, TokenFile(accountName))
}

func loadSession(ctx context.Context, logger *slog.Logger, config *oauth2.Config, path string) (*Session, error) {
	token, err := tokenFromFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("no token file %s: %w", path, ErrNotAuthenticated)
		}
		return nil, fmt.Errorf("could not load token %s: %w", path, err)
	}
	if token.AccessToken == "" && token.RefreshToken == "" {
		return nil, fmt.Errorf("token file %s holds no credentials: %w", path, ErrNotAuthenticated)
	}

	return &Session{
		ctx:    ctx,
		logger: logger,
		config: config,
		path:   path,
		token:  token,
	}, nil
}

// Token implements oauth2.TokenSource.
func (s *Session) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token.Valid() {
		return s.token, nil
	}
	if err := s.refreshLocked(s.ctx); err != nil {
		return nil, err
	}
	return s.token, nil
}

// Refresh exchanges the refresh token for a new access token even if the
// current one has not expired yet. It is used after the API answers 401.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshLocked(ctx)
}

func (s *Session) refreshLocked(ctx context.Context) error {
	if s.token.RefreshToken == "" {
		return fmt.Errorf("access token expired and no refresh token available: %w", ErrNotAuthenticated)
	}

	s.logger.Debug("Refreshing Google access token.", "file", s.path)
	fresh, err := s.config.TokenSource(ctx, &oauth2.Token{RefreshToken: s.token.RefreshToken}).Token()
	if err != nil {
		return fmt.Errorf("failed to refresh access token, please log in again: %w", err)
	}
	if fresh.RefreshToken == "" {
		fresh.RefreshToken = s.token.RefreshToken
	}
	s.token = fresh

	if err := SaveToken(s.path, fresh); err != nil {
		// The in-memory token still works for this run.
		s.logger.Warn("Failed to persist refreshed token", "file", s.path, "error", err)
	}
	return nil
}

// HTTPClient returns a client that authorises every request with the session's
// current token. Tokens are not cached by the transport, so a Refresh is picked
// up by the next request.
func (s *Session) HTTPClient() *http.Client {
	return &http.Client{
		Transport: &oauth2.Transport{
			Source: s,
			Base:   http.DefaultTransport,
		},
	}
}
