package steam

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/farmkit/steam/steamid"
)

// Init establishes the web session after the network login handshake. The
// webAPIUserNonce is single-use; parentalPin is "0" when the account has no
// parental lock.
func (h *WebHandler) Init(ctx context.Context, accountID steamid.SteamID, universe steamid.Universe, webAPIUserNonce string, parentalPin string) bool {
	if !accountID.IsValid() || universe == steamid.UniverseInvalid || webAPIUserNonce == "" || parentalPin == "" {
		h.logNullError("accountID || universe || webAPIUserNonce || parentalPin")
		return false
	}

	if !h.login(ctx, accountID, universe, webAPIUserNonce) {
		h.logger.Warn().Msg("network login handshake failed")
		return false
	}

	if !h.validateLoginToken(accountID) {
		return false
	}

	if parentalPin != "0" {
		if !h.unlockParentalAccount(ctx, parentalPin) {
			return false
		}
	}

	h.session.setSteamID(accountID.ToUint64())
	h.logger.Info().Str("steam_id", accountID.String()).Msg("web session established")
	return true
}

// validateLoginToken checks that the secure login cookie the collaborator
// installed actually belongs to the account we logged in as.
func (h *WebHandler) validateLoginToken(accountID steamid.SteamID) bool {
	secureToken := h.transport.CookieValue(SteamCommunityURL, "steamLoginSecure")
	if secureToken == "" {
		h.logNullError("steamLoginSecure")
		return false
	}

	decoded, err := url.QueryUnescape(secureToken)
	if err != nil {
		h.logNullError("steamLoginSecure")
		return false
	}

	parts := strings.SplitN(decoded, "||", 2)
	if len(parts) != 2 {
		h.logNullError("steamLoginSecure")
		return false
	}

	token, _, err := jwt.NewParser().ParseUnverified(parts[1], jwt.MapClaims{})
	if err != nil {
		h.logger.Warn().Err(err).Msg("secure login token is not a valid JWT")
		return false
	}

	subject, err := token.Claims.GetSubject()
	if err != nil || subject != accountID.String() {
		h.logger.Warn().Str("subject", subject).Msg("secure login token subject mismatch")
		return false
	}

	return true
}

// OnDisconnected clears all session state; the next operation starts the
// login poll-wait from scratch.
func (h *WebHandler) OnDisconnected() {
	h.session.reset()
	h.transport.SetWebApiKey("")
}

// refreshSessionIfNeeded guarantees a usable session before any web action.
// While no account is logged in it waits, bounded by the connection
// timeout, for an external login to populate the session. An established
// session is considered fresh for a quarter of the connection timeout; past
// that, one prober at a time issues a lightweight authenticated HEAD and
// either restamps the session or delegates to the re-login sequence.
func (h *WebHandler) refreshSessionIfNeeded(ctx context.Context) bool {
	if h.session.SteamID() == 0 {
		if !h.waitForLogin(ctx) {
			return false
		}
	}

	minTTL := time.Duration(h.conf.ConnectionTimeout/4) * time.Second
	if time.Since(h.session.lastChecked()) < minTTL {
		return true
	}

	h.sessionMu.Lock()
	defer h.sessionMu.Unlock()

	// Another caller may have refreshed while we waited for the lock.
	if time.Since(h.session.lastChecked()) < minTTL {
		return true
	}

	if h.isLoggedIn(ctx) {
		h.session.stampChecked()
		return true
	}

	h.logger.Info().Msg("session is stale, refreshing")
	return h.refreshSession(ctx)
}

func (h *WebHandler) waitForLogin(ctx context.Context) bool {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for i := 0; i < h.conf.ConnectionTimeout; i++ {
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
		}

		if h.session.SteamID() != 0 {
			return true
		}
	}

	return h.session.SteamID() != 0
}

// isLoggedIn probes a low-traffic authenticated page. /my/videos is used
// instead of /my/profile because the latter dismisses profile notifications
// as a side effect. A transport failure counts as still logged in; only a
// resolved redirect to the login page is treated as a stale session.
func (h *WebHandler) isLoggedIn(ctx context.Context) bool {
	finalURL, err := h.transport.HeadFinalURL(ctx, SteamCommunityURL+"/my/videos")
	if err != nil {
		h.logger.Warn().Err(err).Msg("session probe failed")
		return true
	}

	return !strings.HasPrefix(finalURL.Path, "/login")
}

func (h *WebHandler) unlockParentalAccount(ctx context.Context, parentalPin string) bool {
	if parentalPin == "" {
		h.logNullError("parentalPin")
		return false
	}

	h.logger.Info().Msg("unlocking parental account")

	data := url.Values{"pin": {parentalPin}}
	if err := h.transport.Post(ctx, SteamCommunityURL+"/parental/ajaxunlock", data, SteamCommunityURL); err != nil {
		h.logger.Warn().Err(err).Msg("community parental unlock failed")
		return false
	}
	if err := h.transport.Post(ctx, SteamStoreURL+"/parental/ajaxunlock", data, SteamStoreURL); err != nil {
		h.logger.Warn().Err(err).Msg("store parental unlock failed")
		return false
	}

	return true
}

// sessionID fetches the community session cookie required by form posts.
func (h *WebHandler) sessionID() (string, bool) {
	sessionID := h.transport.CookieValue(SteamCommunityURL, "sessionid")
	if sessionID == "" {
		h.logNullError("sessionid")
		return "", false
	}
	return sessionID, true
}
