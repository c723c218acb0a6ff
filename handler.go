// Package steam implements the authenticated web-session and trading client
// for a single Steam account. Most of what it talks to is not a stable API:
// undocumented HTML pages and semi-stable JSON endpoints reachable only
// through a logged-in browser-like session.
package steam

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/farmkit/steam/api"
	"github.com/farmkit/steam/config"
	"github.com/farmkit/steam/steamid"
	"github.com/farmkit/steam/webapi"
)

const (
	SteamCommunityURL = "https://steamcommunity.com"
	SteamStoreURL     = "https://store.steampowered.com"
)

// RefreshSessionFunc is the external re-login sequence, invoked when the
// probe detects a stale session. It is expected to call Init on success.
type RefreshSessionFunc func(ctx context.Context) bool

// LoginFunc performs the network login handshake for the given identity and
// one-time nonce, populating the transport's session cookies on success.
type LoginFunc func(ctx context.Context, steamID steamid.SteamID, universe steamid.Universe, webAPIUserNonce string) bool

// session is the explicit mutable state of one authenticated account; all
// of it resets together on disconnect.
type session struct {
	mu sync.Mutex

	steamID          uint64
	lastRefreshCheck time.Time

	// apiKey is three-valued: nil means never resolved, empty means the
	// account was permanently denied a key, anything else is the key.
	apiKey *string

	// publicInventory is tri-state for the same reason.
	publicInventory *bool
}

func (s *session) SteamID() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.steamID
}

func (s *session) setSteamID(steamID uint64) {
	s.mu.Lock()
	s.steamID = steamID
	s.lastRefreshCheck = time.Now()
	s.mu.Unlock()
}

func (s *session) lastChecked() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRefreshCheck
}

func (s *session) stampChecked() {
	s.mu.Lock()
	s.lastRefreshCheck = time.Now()
	s.mu.Unlock()
}

func (s *session) cachedApiKey() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.apiKey == nil {
		return "", false
	}
	return *s.apiKey, true
}

func (s *session) cacheApiKey(key string) {
	s.mu.Lock()
	s.apiKey = &key
	s.mu.Unlock()
}

func (s *session) cachedPublicInventory() (bool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.publicInventory == nil {
		return false, false
	}
	return *s.publicInventory, true
}

func (s *session) cachePublicInventory(public bool) {
	s.mu.Lock()
	s.publicInventory = &public
	s.mu.Unlock()
}

func (s *session) reset() {
	s.mu.Lock()
	s.steamID = 0
	s.lastRefreshCheck = time.Time{}
	s.apiKey = nil
	s.publicInventory = nil
	s.mu.Unlock()
}

// WebHandler owns the session lifecycle and every web operation performed
// on behalf of one account.
type WebHandler struct {
	conf      config.Config
	logger    zerolog.Logger
	transport *api.HttpTransport
	webAPI    *webapi.Client

	refreshSession RefreshSessionFunc
	login          LoginFunc

	session session

	// sessionMu collapses concurrent refresh attempts into one probe.
	sessionMu sync.Mutex
	// apiKeyMu serializes the key acquisition state machine.
	apiKeyMu sync.Mutex
	// publicInventoryMu guards the privacy lookup.
	publicInventoryMu sync.Mutex
	// inventorySem throttles inventory access; it is held for the whole
	// paginated fetch plus the configured cooldown.
	inventorySem *semaphore.Weighted
}

type Options struct {
	Config         config.Config
	Logger         zerolog.Logger
	Transport      *api.HttpTransport
	RefreshSession RefreshSessionFunc
	Login          LoginFunc
}

func NewWebHandler(options Options) (*WebHandler, error) {
	if options.RefreshSession == nil {
		return nil, eris.New("steam: RefreshSession collaborator is required")
	}
	if options.Login == nil {
		return nil, eris.New("steam: Login collaborator is required")
	}

	if options.Config.ConnectionTimeout <= 0 {
		options.Config = config.Default()
	}

	transport := options.Transport
	if transport == nil {
		transport = api.NewTransport(api.HttpTransportOptions{
			UserAgent: options.Config.UserAgent,
			Logger:    options.Logger,
		})
	}

	return &WebHandler{
		conf:           options.Config,
		logger:         options.Logger,
		transport:      transport,
		webAPI:         webapi.NewClient(transport),
		refreshSession: options.RefreshSession,
		login:          options.Login,
		inventorySem:   semaphore.NewWeighted(1),
	}, nil
}

// Transport exposes the underlying transport, mainly so that the login
// collaborator can install cookies on the shared jar.
func (h *WebHandler) Transport() *api.HttpTransport {
	return h.transport
}

// SteamID reports the logged-in account, 0 when unauthenticated.
func (h *WebHandler) SteamID() uint64 {
	return h.session.SteamID()
}

// logNullError records an input or parse shape violation; the operation
// returns its sentinel instead of propagating.
func (h *WebHandler) logNullError(name string) {
	h.logger.Warn().Str("field", name).Msg("required value was null or malformed")
}
