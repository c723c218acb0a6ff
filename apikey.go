package steam

import (
	"context"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"
)

type apiKeyState uint8

const (
	apiKeyError apiKeyState = iota
	apiKeyTimeout
	apiKeyRegistered
	apiKeyNotRegisteredYet
	apiKeyAccessDenied
)

const webApiKeyLength = 32

// GetApiKey returns the account's Steam Web API key, registering one when
// the account does not have one yet. Accounts barred from the dev page
// (limited accounts) resolve to ErrApiKeyUnavailable; both outcomes are
// cached for the lifetime of the session.
func (h *WebHandler) GetApiKey(ctx context.Context) (string, error) {
	if key, ok := h.session.cachedApiKey(); ok {
		if key == "" {
			return "", ErrApiKeyUnavailable
		}
		return key, nil
	}

	h.apiKeyMu.Lock()
	defer h.apiKeyMu.Unlock()

	if key, ok := h.session.cachedApiKey(); ok {
		if key == "" {
			return "", ErrApiKeyUnavailable
		}
		return key, nil
	}

	state, key, err := h.getApiKeyState(ctx)
	if err != nil {
		return "", err
	}

	switch state {
	case apiKeyAccessDenied:
		// Permanent for this session; remember the denial so we stop
		// hammering the dev page.
		h.session.cacheApiKey("")
		h.transport.SetWebApiKey("")
		return "", ErrApiKeyUnavailable
	case apiKeyNotRegisteredYet:
		if err := h.registerApiKey(ctx); err != nil {
			return "", err
		}

		state, key, err = h.getApiKeyState(ctx)
		if err != nil {
			return "", err
		}
		if state != apiKeyRegistered {
			return "", eris.New("api key registration did not take effect")
		}
	case apiKeyRegistered:
	default:
		return "", eris.New("could not determine api key state")
	}

	if len(key) != webApiKeyLength || !isHex(key) {
		return "", eris.Errorf("malformed api key %q", key)
	}

	h.session.cacheApiKey(key)
	h.transport.SetWebApiKey(key)
	return key, nil
}

// HasValidApiKey reports whether an API key is available, fetching and
// registering one if needed. Transient failures surface as errors so the
// caller can distinguish "denied" from "unknown".
func (h *WebHandler) HasValidApiKey(ctx context.Context) (bool, error) {
	_, err := h.GetApiKey(ctx)
	if err != nil {
		if eris.Is(err, ErrApiKeyUnavailable) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (h *WebHandler) getApiKeyState(ctx context.Context) (apiKeyState, string, error) {
	if !h.refreshSessionIfNeeded(ctx) {
		return apiKeyError, "", ErrSessionUnavailable
	}

	doc, err := h.transport.GetHTML(ctx, SteamCommunityURL+"/dev/apikey?l=english")
	if err != nil {
		return apiKeyTimeout, "", eris.Wrap(err, "fetching api key page")
	}

	title := doc.Find("div#mainContents h2").First()
	if title.Length() == 0 {
		return apiKeyError, "", eris.Wrap(ErrMalformedResponse, "api key page has no title")
	}
	if strings.Contains(title.Text(), "Access Denied") {
		return apiKeyAccessDenied, "", nil
	}

	body := doc.Find("div#bodyContents_ex p").First()
	if body.Length() == 0 {
		return apiKeyError, "", eris.Wrap(ErrMalformedResponse, "api key page has no body")
	}

	text := strings.TrimSpace(body.Text())
	if strings.Contains(text, "Registering for a Steam Web API Key") {
		return apiKeyNotRegisteredYet, "", nil
	}

	const prefix = "Key: "
	index := strings.Index(text, prefix)
	if index < 0 || len(text) < index+len(prefix)+webApiKeyLength {
		return apiKeyError, "", eris.Wrapf(ErrMalformedResponse, "unexpected api key page body %q", text)
	}

	return apiKeyRegistered, text[index+len(prefix) : index+len(prefix)+webApiKeyLength], nil
}

func (h *WebHandler) registerApiKey(ctx context.Context) error {
	if !h.refreshSessionIfNeeded(ctx) {
		return ErrSessionUnavailable
	}

	sessionID, ok := h.sessionID()
	if !ok {
		return ErrSessionUnavailable
	}

	data := url.Values{
		"domain":       {"localhost"},
		"agreeToTerms": {"agreed"},
		"sessionid":    {sessionID},
		"Submit":       {"Register"},
	}

	if err := h.transport.Post(ctx, SteamCommunityURL+"/dev/registerkey", data, SteamCommunityURL+"/dev/apikey"); err != nil {
		return eris.Wrap(err, "registering api key")
	}

	return nil
}

func isHex(s string) bool {
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'f':
		case r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}
