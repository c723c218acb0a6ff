package steam

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strconv"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"

	"github.com/farmkit/steam/econ"
	"github.com/farmkit/steam/steamid"
	"github.com/farmkit/steam/webapi"
)

type classKey struct {
	appID   uint32
	classID uint64
}

// GetActiveTradeOffers returns all pending offers received by the account,
// fully classified from the accompanying descriptions.
func (h *WebHandler) GetActiveTradeOffers(ctx context.Context) ([]*econ.TradeOffer, error) {
	if _, err := h.GetApiKey(ctx); err != nil {
		return nil, err
	}

	response, err := h.webAPI.GetActiveTradeOffers(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "fetching trade offers")
	}

	classes := make(map[classKey]econ.ClassDescription, len(response.Response.Descriptions))
	for _, desc := range response.Response.Descriptions {
		realAppID := econ.AppIDFromMarketHashName(desc.MarketHashName)
		if realAppID == 0 {
			realAppID = desc.AppID
		}

		classes[classKey{desc.AppID, desc.ClassID}] = econ.ClassDescription{
			RealAppID: realAppID,
			Type:      econ.ParseItemType(desc.Type),
		}
	}

	var offers []*econ.TradeOffer
	for _, received := range response.Response.Received {
		if received.State != econ.StateActive {
			continue
		}

		offer, err := econ.NewTradeOffer(received.TradeOfferID, received.OtherAccountID, received.State)
		if err != nil {
			return nil, eris.Wrapf(err, "offer %d", received.TradeOfferID)
		}

		offer.ItemsToGive, err = buildOfferItems(received.ItemsToGive, classes)
		if err != nil {
			return nil, eris.Wrapf(err, "offer %d give side", received.TradeOfferID)
		}
		offer.ItemsToReceive, err = buildOfferItems(received.ItemsToReceive, classes)
		if err != nil {
			return nil, eris.Wrapf(err, "offer %d receive side", received.TradeOfferID)
		}

		offers = append(offers, offer)
	}

	return offers, nil
}

func buildOfferItems(assets []*webapi.OfferedAsset, classes map[classKey]econ.ClassDescription) ([]*econ.Item, error) {
	items := make([]*econ.Item, 0, len(assets))
	for _, asset := range assets {
		class := classes[classKey{asset.AppID, asset.ClassID}]

		item, err := econ.NewItem(asset.AppID, asset.ContextID, asset.ClassID, asset.Amount, class.RealAppID, class.Type)
		if err != nil {
			return nil, eris.Wrapf(err, "asset %d", asset.AssetID)
		}
		item.AssetID = asset.AssetID
		items = append(items, item)
	}
	return items, nil
}

// AcceptTradeOffer accepts a received offer through the community site. A
// mobile confirmation may still be required afterwards.
func (h *WebHandler) AcceptTradeOffer(ctx context.Context, tradeID uint64) error {
	if tradeID == 0 {
		return eris.Wrap(ErrInvalidArgument, "tradeID")
	}

	if !h.refreshSessionIfNeeded(ctx) {
		return ErrSessionUnavailable
	}

	sessionID, ok := h.sessionID()
	if !ok {
		return ErrSessionUnavailable
	}

	referer := fmt.Sprintf("%s/tradeoffer/%d", SteamCommunityURL, tradeID)
	data := url.Values{
		"sessionid":    {sessionID},
		"serverid":     {"1"},
		"tradeofferid": {formatUint(tradeID)},
	}

	if err := h.transport.Post(ctx, referer+"/accept", data, referer); err != nil {
		return eris.Wrapf(err, "accepting trade offer %d", tradeID)
	}
	return nil
}

// DeclineTradeOffer rejects a received offer.
func (h *WebHandler) DeclineTradeOffer(ctx context.Context, tradeID uint64) error {
	if tradeID == 0 {
		return eris.Wrap(ErrInvalidArgument, "tradeID")
	}
	if _, err := h.GetApiKey(ctx); err != nil {
		return err
	}
	return h.webAPI.DeclineTradeOffer(ctx, tradeID)
}

// CancelTradeOffer withdraws an offer we previously sent.
func (h *WebHandler) CancelTradeOffer(ctx context.Context, tradeID uint64) error {
	if tradeID == 0 {
		return eris.Wrap(ErrInvalidArgument, "tradeID")
	}
	if _, err := h.GetApiKey(ctx); err != nil {
		return err
	}
	return h.webAPI.CancelTradeOffer(ctx, tradeID)
}

// SendTradeOffer gifts items to the partner, splitting them into as many
// offers as Steam allows. It returns how many items were actually sent;
// anything beyond the per-account offer cap is silently left behind and the
// caller decides whether to retry with the remainder. Offers go out
// sequentially and the first failure aborts the rest without undoing
// already-sent offers.
func (h *WebHandler) SendTradeOffer(ctx context.Context, partner steamid.SteamID, tradeToken, message string, items []*econ.Item) (int, error) {
	if !partner.IsValidIndividual() || len(items) == 0 {
		return 0, eris.Wrap(ErrInvalidArgument, "partner || items")
	}

	requests, packed := econ.PackTradeOffers(items)

	if !h.refreshSessionIfNeeded(ctx) {
		return 0, ErrSessionUnavailable
	}

	sessionID, ok := h.sessionID()
	if !ok {
		return 0, ErrSessionUnavailable
	}

	referer := fmt.Sprintf("%s/tradeoffer/new/?partner=%d", SteamCommunityURL, partner.AccountID())
	if tradeToken != "" {
		referer += "&token=" + url.QueryEscape(tradeToken)
	}

	createParams := ""
	if tradeToken != "" {
		encoded, err := json.Marshal(map[string]string{"trade_offer_access_token": tradeToken})
		if err != nil {
			return 0, eris.Wrap(err, "encoding trade token")
		}
		createParams = string(encoded)
	}

	for i, request := range requests {
		payload, err := json.Marshal(request)
		if err != nil {
			return 0, eris.Wrap(err, "encoding trade offer")
		}

		data := url.Values{
			"sessionid":                 {sessionID},
			"serverid":                  {"1"},
			"partner":                   {formatUint(partner.ToUint64())},
			"tradeoffermessage":         {message},
			"json_tradeoffer":           {string(payload)},
			"trade_offer_create_params": {createParams},
		}

		if err := h.transport.Post(ctx, SteamCommunityURL+"/tradeoffer/new/send", data, referer); err != nil {
			return 0, eris.Wrapf(err, "sending trade offer %d/%d", i+1, len(requests))
		}
	}

	return packed, nil
}

var escrowDaysPattern = regexp.MustCompile(`g_daysTheirEscrow\s*=\s*(\d+);`)

// GetTradeHoldDuration scrapes the escrow hold, in days, the counterparty
// of the given offer would incur.
func (h *WebHandler) GetTradeHoldDuration(ctx context.Context, tradeID uint64) (uint32, error) {
	if tradeID == 0 {
		return 0, eris.Wrap(ErrInvalidArgument, "tradeID")
	}

	if !h.refreshSessionIfNeeded(ctx) {
		return 0, ErrSessionUnavailable
	}

	doc, err := h.transport.GetHTML(ctx, fmt.Sprintf("%s/tradeoffer/%d?l=english", SteamCommunityURL, tradeID))
	if err != nil {
		return 0, eris.Wrapf(err, "fetching trade offer %d page", tradeID)
	}

	var days int64 = -1
	doc.Find("div.pagecontent script").EachWithBreak(func(_ int, script *goquery.Selection) bool {
		match := escrowDaysPattern.FindStringSubmatch(script.Text())
		if match == nil {
			return true
		}

		parsed, err := strconv.ParseInt(match[1], 10, 32)
		if err != nil {
			return true
		}
		days = parsed
		return false
	})

	if days < 0 {
		return 0, eris.Wrap(ErrMalformedResponse, "escrow script not found")
	}

	return uint32(days), nil
}
