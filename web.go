package steam

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"

	"github.com/farmkit/steam/api"
	"github.com/farmkit/steam/steamid"
	"github.com/farmkit/steam/steamlang"
)

// pageCacheTTL bounds how long rarely-changing community pages (badges,
// game cards) may be served from the local response cache.
const pageCacheTTL = time.Minute

// BrowseURL fetches an arbitrary page with the account's session attached.
func (h *WebHandler) BrowseURL(ctx context.Context, requestURL string) (*goquery.Document, error) {
	if requestURL == "" {
		return nil, eris.Wrap(ErrInvalidArgument, "requestURL")
	}

	if !h.refreshSessionIfNeeded(ctx) {
		return nil, ErrSessionUnavailable
	}

	return h.transport.GetHTML(ctx, requestURL)
}

// PostURL submits a form to an arbitrary page with the account's session
// attached and returns the rendered result.
func (h *WebHandler) PostURL(ctx context.Context, requestURL string, data url.Values) (*goquery.Document, error) {
	if requestURL == "" {
		return nil, eris.Wrap(ErrInvalidArgument, "requestURL")
	}

	if !h.refreshSessionIfNeeded(ctx) {
		return nil, ErrSessionUnavailable
	}

	return h.transport.PostHTML(ctx, requestURL, data, requestURL)
}

// GetDiscoveryQueuePage fetches the store's discovery queue page.
func (h *WebHandler) GetDiscoveryQueuePage(ctx context.Context) (*goquery.Document, error) {
	return h.BrowseURL(ctx, SteamStoreURL+"/explore/?l=english")
}

// GetBadgePage fetches one page of the account's badges.
func (h *WebHandler) GetBadgePage(ctx context.Context, page uint8) (*goquery.Document, error) {
	if page == 0 {
		return nil, eris.Wrap(ErrInvalidArgument, "page")
	}

	return h.BrowseURL(api.ContextWithCacheTTL(ctx, pageCacheTTL),
		fmt.Sprintf("%s/my/badges?l=english&p=%d", SteamCommunityURL, page))
}

// GetGameCardsPage fetches the trading card progress page for one game.
func (h *WebHandler) GetGameCardsPage(ctx context.Context, realAppID uint32) (*goquery.Document, error) {
	if realAppID == 0 {
		return nil, eris.Wrap(ErrInvalidArgument, "realAppID")
	}

	return h.BrowseURL(api.ContextWithCacheTTL(ctx, pageCacheTTL),
		fmt.Sprintf("%s/my/gamecards/%d?l=english", SteamCommunityURL, realAppID))
}

type discoveryQueueResponse struct {
	Queue []uint32 `json:"queue"`
}

// GenerateNewDiscoveryQueue requests a fresh store discovery queue and
// returns the app IDs in it.
func (h *WebHandler) GenerateNewDiscoveryQueue(ctx context.Context) ([]uint32, error) {
	if !h.refreshSessionIfNeeded(ctx) {
		return nil, ErrSessionUnavailable
	}

	sessionID, ok := h.storeSessionID()
	if !ok {
		return nil, ErrSessionUnavailable
	}

	data := url.Values{
		"sessionid": {sessionID},
		"queuetype": {"0"},
	}

	var response discoveryQueueResponse
	if err := h.transport.PostJSON(ctx, SteamStoreURL+"/explore/generatenewdiscoveryqueue", data, SteamStoreURL+"/explore/", &response); err != nil {
		return nil, eris.Wrap(err, "generating discovery queue")
	}

	if len(response.Queue) == 0 {
		return nil, eris.Wrap(ErrMalformedResponse, "empty discovery queue")
	}

	return response.Queue, nil
}

// GetFamilySharingSteamIDs lists the accounts the logged-in user shares
// their library with. An account that never configured family sharing has
// no device table at all; that is a normal empty result.
func (h *WebHandler) GetFamilySharingSteamIDs(ctx context.Context) ([]steamid.SteamID, error) {
	if !h.refreshSessionIfNeeded(ctx) {
		return nil, ErrSessionUnavailable
	}

	doc, err := h.transport.GetHTML(ctx, SteamStoreURL+"/account/managedevices")
	if err != nil {
		return nil, eris.Wrap(err, "fetching family sharing page")
	}

	tables := doc.Find("table.accountTable")
	if tables.Length() == 0 {
		return nil, nil
	}

	var (
		ids      []steamid.SteamID
		parseErr error
	)

	tables.Last().Find("a[data-miniprofile]").EachWithBreak(func(_ int, link *goquery.Selection) bool {
		accountText, _ := link.Attr("data-miniprofile")

		var accountID uint32
		if _, err := fmt.Sscanf(accountText, "%d", &accountID); err != nil || accountID == 0 {
			parseErr = eris.Wrapf(ErrMalformedResponse, "miniprofile id %q", accountText)
			return false
		}

		ids = append(ids, steamid.FromAccountID(accountID))
		return true
	})

	if parseErr != nil {
		return nil, parseErr
	}
	return ids, nil
}

type gamesListXML struct {
	Games struct {
		Game []struct {
			AppID uint32 `xml:"appID"`
			Name  string `xml:"name"`
		} `xml:"game"`
	} `xml:"games"`
}

// GetMyOwnedGames scrapes the logged-in account's games list; unlike
// GetOwnedGames it needs no API key.
func (h *WebHandler) GetMyOwnedGames(ctx context.Context) (map[uint32]string, error) {
	if !h.refreshSessionIfNeeded(ctx) {
		return nil, ErrSessionUnavailable
	}

	var list gamesListXML
	if err := h.transport.GetXML(ctx, SteamCommunityURL+"/my/games/?xml=1", &list); err != nil {
		return nil, eris.Wrap(err, "fetching owned games")
	}

	if len(list.Games.Game) == 0 {
		return nil, eris.Wrap(ErrMalformedResponse, "games list is empty")
	}

	games := make(map[uint32]string, len(list.Games.Game))
	for _, game := range list.Games.Game {
		if game.AppID == 0 {
			return nil, eris.Wrap(ErrMalformedResponse, "game without appID")
		}
		games[game.AppID] = game.Name
	}

	return games, nil
}

// GetOwnedGames fetches any account's owned games through the web API.
func (h *WebHandler) GetOwnedGames(ctx context.Context, accountID steamid.SteamID) (map[uint32]string, error) {
	if !accountID.IsValidIndividual() {
		return nil, eris.Wrap(ErrInvalidArgument, "accountID")
	}

	if _, err := h.GetApiKey(ctx); err != nil {
		return nil, err
	}

	return h.webAPI.GetOwnedGames(ctx, accountID)
}

// GetServerTime returns Steam's wall clock as a unix timestamp.
func (h *WebHandler) GetServerTime(ctx context.Context) (int64, error) {
	return h.webAPI.QueryTime(ctx)
}

// SteamAwardsVote casts a Steam Awards vote for the given app.
func (h *WebHandler) SteamAwardsVote(ctx context.Context, voteID, appID uint32) error {
	if voteID == 0 || appID == 0 {
		return eris.Wrap(ErrInvalidArgument, "voteID || appID")
	}

	if !h.refreshSessionIfNeeded(ctx) {
		return ErrSessionUnavailable
	}

	sessionID, ok := h.storeSessionID()
	if !ok {
		return ErrSessionUnavailable
	}

	data := url.Values{
		"sessionid": {sessionID},
		"voteid":    {formatUint(uint64(voteID))},
		"appid":     {formatUint(uint64(appID))},
	}

	if err := h.transport.Post(ctx, SteamStoreURL+"/salevote", data, SteamStoreURL); err != nil {
		return eris.Wrap(err, "casting vote")
	}
	return nil
}

type walletRedeemResponse struct {
	Result steamlang.EResult               `json:"success"`
	Detail steamlang.EPurchaseResultDetail `json:"detail"`
}

// RedeemWalletKey funds the account wallet with a Steam gift card code. The
// returned pair mirrors Steam's own verdict; only an OK result means money
// arrived.
func (h *WebHandler) RedeemWalletKey(ctx context.Context, key string) (steamlang.EResult, steamlang.EPurchaseResultDetail, error) {
	if key == "" {
		return steamlang.InvalidResult, steamlang.PurchaseDetailNoDetail, eris.Wrap(ErrInvalidArgument, "key")
	}

	if !h.refreshSessionIfNeeded(ctx) {
		return steamlang.InvalidResult, steamlang.PurchaseDetailNoDetail, ErrSessionUnavailable
	}

	data := url.Values{"wallet_code": {key}}

	var response walletRedeemResponse
	if err := h.transport.PostJSON(ctx, SteamStoreURL+"/account/validatewalletcode", data, SteamStoreURL+"/account/redeemwalletcode", &response); err != nil {
		return steamlang.InvalidResult, steamlang.PurchaseDetailNoDetail, eris.Wrap(err, "redeeming wallet code")
	}

	return response.Result, response.Detail, nil
}

// JoinGroup joins the given Steam community group.
func (h *WebHandler) JoinGroup(ctx context.Context, groupID uint64) error {
	if groupID == 0 {
		return eris.Wrap(ErrInvalidArgument, "groupID")
	}

	if !h.refreshSessionIfNeeded(ctx) {
		return ErrSessionUnavailable
	}

	sessionID, ok := h.sessionID()
	if !ok {
		return ErrSessionUnavailable
	}

	groupURL := fmt.Sprintf("%s/gid/%d", SteamCommunityURL, groupID)
	data := url.Values{
		"sessionID": {sessionID},
		"action":    {"join"},
	}

	if err := h.transport.Post(ctx, groupURL, data, groupURL); err != nil {
		return eris.Wrapf(err, "joining group %d", groupID)
	}
	return nil
}

// AddFreeLicense claims a free-on-demand package. The store replies 200
// either way, so success is read off the rendered page.
func (h *WebHandler) AddFreeLicense(ctx context.Context, subID uint32) error {
	if subID == 0 {
		return eris.Wrap(ErrInvalidArgument, "subID")
	}

	if !h.refreshSessionIfNeeded(ctx) {
		return ErrSessionUnavailable
	}

	sessionID, ok := h.storeSessionID()
	if !ok {
		return ErrSessionUnavailable
	}

	data := url.Values{
		"sessionid": {sessionID},
		"subid":     {formatUint(uint64(subID))},
		"action":    {"add_to_cart"},
	}

	doc, err := h.transport.PostHTML(ctx, SteamStoreURL+"/checkout/addfreelicense", data, SteamStoreURL)
	if err != nil {
		return eris.Wrapf(err, "claiming package %d", subID)
	}

	if doc.Find("div.add_free_content_success_area").Length() == 0 {
		return eris.Wrapf(ErrMalformedResponse, "package %d was not granted", subID)
	}
	return nil
}

// HasPublicInventory reports whether the account's inventory is visible to
// everyone. The answer is cached until the session resets.
func (h *WebHandler) HasPublicInventory(ctx context.Context) (bool, error) {
	if public, ok := h.session.cachedPublicInventory(); ok {
		return public, nil
	}

	h.publicInventoryMu.Lock()
	defer h.publicInventoryMu.Unlock()

	if public, ok := h.session.cachedPublicInventory(); ok {
		return public, nil
	}

	public, err := h.isInventoryPublic(ctx)
	if err != nil {
		return false, err
	}

	h.session.cachePublicInventory(public)
	return public, nil
}

func (h *WebHandler) isInventoryPublic(ctx context.Context) (bool, error) {
	if !h.refreshSessionIfNeeded(ctx) {
		return false, ErrSessionUnavailable
	}

	doc, err := h.transport.GetHTML(ctx, SteamCommunityURL+"/my/edit/settings?l=english")
	if err != nil {
		return false, eris.Wrap(err, "fetching privacy settings")
	}

	setting := doc.Find("input#inventoryPrivacySetting_public").First()
	if setting.Length() == 0 {
		return false, eris.Wrap(ErrMalformedResponse, "privacy settings page has no inventory setting")
	}

	_, checked := setting.Attr("checked")
	return checked, nil
}

// storeSessionID reads the store-scoped session cookie used by store form
// posts; it is set independently of the community one.
func (h *WebHandler) storeSessionID() (string, bool) {
	sessionID := h.transport.CookieValue(SteamStoreURL, "sessionid")
	if sessionID == "" {
		h.logNullError("store sessionid")
		return "", false
	}
	return sessionID, true
}
