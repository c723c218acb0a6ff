package steam

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/farmkit/steam/config"
	"github.com/farmkit/steam/steamid"
)

const testSteamID = uint64(76561197960287930)

// rewriteTransport sends every request, whatever host it names, to the
// test server.
type rewriteTransport struct {
	target *url.URL
}

func (rt rewriteTransport) RoundTrip(request *http.Request) (*http.Response, error) {
	request.URL.Scheme = rt.target.Scheme
	request.URL.Host = rt.target.Host
	return http.DefaultTransport.RoundTrip(request)
}

type testCollaborators struct {
	refreshCalls int
	refreshOK    bool
	loginCalls   int
	loginOK      bool
	onLogin      func()
}

func newTestHandler(t *testing.T, server *httptest.Server) (*WebHandler, *testCollaborators) {
	t.Helper()

	collaborators := &testCollaborators{refreshOK: true, loginOK: true}

	handler, err := NewWebHandler(Options{
		Config: config.Config{
			ConnectionTimeout:     4,
			InventoryLimiterDelay: 0,
			UserAgent:             "test-agent",
		},
		Logger: zerolog.Nop(),
		RefreshSession: func(ctx context.Context) bool {
			collaborators.refreshCalls++
			return collaborators.refreshOK
		},
		Login: func(ctx context.Context, accountID steamid.SteamID, universe steamid.Universe, webAPIUserNonce string) bool {
			collaborators.loginCalls++
			if collaborators.onLogin != nil {
				collaborators.onLogin()
			}
			return collaborators.loginOK
		},
	})
	require.NoError(t, err)

	if server != nil {
		target, err := url.Parse(server.URL)
		require.NoError(t, err)
		handler.Transport().HttpClient().Transport = rewriteTransport{target: target}
	}

	return handler, collaborators
}

// markLoggedIn installs an established, recently-checked session.
func markLoggedIn(handler *WebHandler) {
	handler.session.setSteamID(testSteamID)
}

// backdateSessionCheck forces the next operation to probe the session.
func backdateSessionCheck(handler *WebHandler) {
	handler.session.mu.Lock()
	handler.session.lastRefreshCheck = time.Now().Add(-time.Hour)
	handler.session.mu.Unlock()
}

func setCookie(t *testing.T, handler *WebHandler, baseURL, name, value string) {
	t.Helper()

	jarURL, err := url.Parse(baseURL)
	require.NoError(t, err)
	handler.Transport().CookieJar().SetCookies(jarURL, []*http.Cookie{{Name: name, Value: value}})
}

// loginToken fabricates the JWT-shaped secure login cookie value for a
// subject; the signature is never verified locally.
func loginToken(subject string) string {
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))
	payload := base64.RawURLEncoding.EncodeToString([]byte(fmt.Sprintf(`{"sub":%q}`, subject)))
	return fmt.Sprintf("%d||%s.%s.signature", testSteamID, header, payload)
}
