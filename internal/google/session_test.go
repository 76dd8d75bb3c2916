package google

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func tokenServer(t *testing.T) (*httptest.Server, *int) {
	t.Helper()
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		require.NoError(t, r.ParseForm())
		require.Equal(t, "refresh_token", r.Form.Get("grant_type"))
		require.Equal(t, "stored-refresh", r.Form.Get("refresh_token"))
		writeJSON(w, http.StatusOK, `{"access_token":"fresh-access","token_type":"Bearer","expires_in":3600}`)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func testConfig(tokenURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     "id",
		ClientSecret: "secret",
		Endpoint:     oauth2.Endpoint{TokenURL: tokenURL, AuthStyle: oauth2.AuthStyleInParams},
	}
}

func TestLoadSessionWithoutTokenFile(t *testing.T) {
	_, err := loadSession(context.Background(), discardLogger(), testConfig(""), filepath.Join(t.TempDir(), "token-none.json"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotAuthenticated))
}

func TestSessionReturnsValidTokenWithoutRefreshing(t *testing.T) {
	srv, hits := tokenServer(t)
	path := filepath.Join(t.TempDir(), "token-me.json")
	require.NoError(t, SaveToken(path, &oauth2.Token{
		AccessToken:  "stored-access",
		RefreshToken: "stored-refresh",
		Expiry:       time.Now().Add(time.Hour),
	}))

	s, err := loadSession(context.Background(), discardLogger(), testConfig(srv.URL), path)
	require.NoError(t, err)

	tok, err := s.Token()
	require.NoError(t, err)
	assert.Equal(t, "stored-access", tok.AccessToken)
	assert.Equal(t, 0, *hits)
}

func TestSessionRefreshesExpiredTokenAndPersists(t *testing.T) {
	srv, hits := tokenServer(t)
	path := filepath.Join(t.TempDir(), "token-me.json")
	require.NoError(t, SaveToken(path, &oauth2.Token{
		AccessToken:  "stale",
		RefreshToken: "stored-refresh",
		Expiry:       time.Now().Add(-time.Hour),
	}))

	s, err := loadSession(context.Background(), discardLogger(), testConfig(srv.URL), path)
	require.NoError(t, err)

	tok, err := s.Token()
	require.NoError(t, err)
	assert.Equal(t, "fresh-access", tok.AccessToken)
	assert.Equal(t, 1, *hits)

	saved, err := tokenFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "fresh-access", saved.AccessToken)
	assert.Equal(t, "stored-refresh", saved.RefreshToken)
}

func TestSessionForcedRefresh(t *testing.T) {
	srv, hits := tokenServer(t)
	path := filepath.Join(t.TempDir(), "token-me.json")
	require.NoError(t, SaveToken(path, &oauth2.Token{
		AccessToken:  "revoked",
		RefreshToken: "stored-refresh",
		Expiry:       time.Now().Add(time.Hour),
	}))

	s, err := loadSession(context.Background(), discardLogger(), testConfig(srv.URL), path)
	require.NoError(t, err)
	require.NoError(t, s.Refresh(context.Background()))
	assert.Equal(t, 1, *hits)

	tok, err := s.Token()
	require.NoError(t, err)
	assert.Equal(t, "fresh-access", tok.AccessToken)
}

func TestSessionRefreshWithoutRefreshToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token-me.json")
	require.NoError(t, SaveToken(path, &oauth2.Token{AccessToken: "only-access", Expiry: time.Now().Add(-time.Minute)}))

	s, err := loadSession(context.Background(), discardLogger(), testConfig("http://127.0.0.1:0"), path)
	require.NoError(t, err)

	_, err = s.Token()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotAuthenticated))
}

func TestGetTokenAccounts(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, SaveToken(filepath.Join(dir, TokenFile("work")), &oauth2.Token{AccessToken: "a"}))
	require.NoError(t, SaveToken(filepath.Join(dir, TokenFile("personal")), &oauth2.Token{AccessToken: "b"}))
	require.NoError(t, SaveToken(filepath.Join(dir, "credentials.json"), &oauth2.Token{}))

	accounts, err := GetTokenAccounts(dir)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"work", "personal"}, accounts)
}
