package auth

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func tokenServer(t *testing.T, access string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"` + access + `","token_type":"Bearer","refresh_token":"r1","expires_in":3600}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(tokenURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     "id",
		ClientSecret: "secret",
		Endpoint:     oauth2.Endpoint{AuthURL: "https://example.invalid/auth", TokenURL: tokenURL},
		Scopes:       []string{"scope"},
	}
}

func TestSaveLoadToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creds", "token.json")
	tok := &oauth2.Token{AccessToken: "a", RefreshToken: "r", Expiry: time.Now().Add(time.Hour).Round(time.Second)}
	require.NoError(t, SaveToken(path, tok))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	got, err := LoadToken(path)
	require.NoError(t, err)
	assert.Equal(t, "a", got.AccessToken)
	assert.Equal(t, "r", got.RefreshToken)
	assert.True(t, tok.Expiry.Equal(got.Expiry))
}

func TestLoadTokenMissing(t *testing.T) {
	_, err := LoadToken(filepath.Join(t.TempDir(), "nope.json"))
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"installed":{"client_id":"cid","client_secret":"cs","auth_uri":"https://a","token_uri":"https://t","redirect_uris":["http://localhost"]}}`), 0o600))

	cfg, err := LoadConfig(path, "scope-a")
	require.NoError(t, err)
	assert.Equal(t, "cid", cfg.ClientID)
	assert.Equal(t, []string{"scope-a"}, cfg.Scopes)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestTokenSourcePersistsRefresh(t *testing.T) {
	srv := tokenServer(t, "fresh")
	path := filepath.Join(t.TempDir(), "token.json")
	require.NoError(t, SaveToken(path, &oauth2.Token{AccessToken: "stale", RefreshToken: "r0", Expiry: time.Now().Add(-time.Hour)}))

	client, err := HTTPClient(context.Background(), testConfig(srv.URL), path, time.Minute)
	require.NoError(t, err)
	require.NotNil(t, client)

	saved, err := LoadToken(path)
	require.NoError(t, err)
	assert.Equal(t, "fresh", saved.AccessToken)
}

func TestHTTPClientTimesOutStalledBody(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer valid", r.Header.Get("Authorization"))
		w.Write([]byte("partial"))
		w.(http.Flusher).Flush()
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	path := filepath.Join(t.TempDir(), "token.json")
	require.NoError(t, SaveToken(path, &oauth2.Token{AccessToken: "valid", TokenType: "Bearer", Expiry: time.Now().Add(time.Hour)}))

	client, err := HTTPClient(context.Background(), testConfig("http://127.0.0.1:1"), path, 200*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 200*time.Millisecond, client.Timeout)

	done := make(chan error, 1)
	go func() {
		resp, err := client.Get(srv.URL + "/media=d")
		if err != nil {
			done <- err
			return
		}
		defer resp.Body.Close()
		_, err = io.ReadAll(resp.Body)
		done <- err
	}()

	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("stalled download was not cut off")
	}
}

func TestAuthorizeExchangesCode(t *testing.T) {
	srv := tokenServer(t, "granted")
	path := filepath.Join(t.TempDir(), "token.json")
	var out strings.Builder

	tok, err := Authorize(context.Background(), testConfig(srv.URL), path, strings.NewReader("the-code\n"), &out)
	require.NoError(t, err)
	assert.Equal(t, "granted", tok.AccessToken)
	assert.Contains(t, out.String(), "access_type=offline")

	saved, err := LoadToken(path)
	require.NoError(t, err)
	assert.Equal(t, "granted", saved.AccessToken)
}

func TestAuthorizeEmptyCode(t *testing.T) {
	_, err := Authorize(context.Background(), testConfig("http://127.0.0.1:1"), filepath.Join(t.TempDir(), "t.json"), strings.NewReader("\n"), &strings.Builder{})
	assert.Error(t, err)
}
