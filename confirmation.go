package steam

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"

	"github.com/farmkit/steam/steamid"
)

// ConfirmationType classifies what a pending mobile confirmation is for.
type ConfirmationType uint8

const (
	ConfirmationUnknown ConfirmationType = iota
	ConfirmationTrade
	ConfirmationMarket
	ConfirmationOther
)

// Confirmation is one pending entry on the mobile confirmations page.
type Confirmation struct {
	ID  uint64
	Key uint64
}

// ConfirmationDetails is the parsed detail view of a single confirmation.
// Trade confirmations additionally carry the counterparty and the offer
// they confirm.
type ConfirmationDetails struct {
	Type         ConfirmationType
	TradeOfferID uint64
	OtherSteamID steamid.SteamID
}

type confirmationDetailsResponse struct {
	Success bool   `json:"success"`
	HTML    string `json:"html"`
}

type confirmationOpResponse struct {
	Success bool `json:"success"`
}

// confirmationQuery builds the signed query every mobileconf endpoint
// requires. The key is the identity-secret HMAC over (time, tag).
func (h *WebHandler) confirmationQuery(deviceID string, confirmationKey []byte, t uint64, tag string) (url.Values, error) {
	steamID := h.session.SteamID()
	if steamID == 0 {
		return nil, ErrSessionUnavailable
	}
	if deviceID == "" || len(confirmationKey) == 0 || t == 0 || tag == "" {
		return nil, eris.Wrap(ErrInvalidArgument, "deviceID || confirmationKey || time || tag")
	}

	return url.Values{
		"p":   {deviceID},
		"a":   {formatUint(steamID)},
		"k":   {base64.StdEncoding.EncodeToString(confirmationKey)},
		"t":   {formatUint(t)},
		"m":   {"android"},
		"tag": {tag},
	}, nil
}

// GetConfirmations lists the pending mobile confirmations. confirmationKey
// must be signed with tag "conf" for the same t.
func (h *WebHandler) GetConfirmations(ctx context.Context, deviceID string, confirmationKey []byte, t uint64) ([]*Confirmation, error) {
	query, err := h.confirmationQuery(deviceID, confirmationKey, t, "conf")
	if err != nil {
		return nil, err
	}

	if !h.refreshSessionIfNeeded(ctx) {
		return nil, ErrSessionUnavailable
	}

	doc, err := h.transport.GetHTML(ctx, SteamCommunityURL+"/mobileconf/conf?"+query.Encode())
	if err != nil {
		return nil, eris.Wrap(err, "fetching confirmations page")
	}

	return parseConfirmations(doc)
}

func parseConfirmations(doc *goquery.Document) ([]*Confirmation, error) {
	var (
		confirmations []*Confirmation
		parseErr      error
	)

	doc.Find("div[data-confid]").EachWithBreak(func(_ int, entry *goquery.Selection) bool {
		idText, ok := entry.Attr("data-confid")
		if !ok {
			parseErr = eris.Wrap(ErrMalformedResponse, "confirmation entry without id")
			return false
		}
		keyText, ok := entry.Attr("data-key")
		if !ok {
			parseErr = eris.Wrap(ErrMalformedResponse, "confirmation entry without key")
			return false
		}

		id, err := strconv.ParseUint(idText, 10, 64)
		if err != nil {
			parseErr = eris.Wrapf(ErrMalformedResponse, "confirmation id %q", idText)
			return false
		}
		key, err := strconv.ParseUint(keyText, 10, 64)
		if err != nil {
			parseErr = eris.Wrapf(ErrMalformedResponse, "confirmation key %q", keyText)
			return false
		}

		confirmations = append(confirmations, &Confirmation{ID: id, Key: key})
		return true
	})

	if parseErr != nil {
		return nil, parseErr
	}
	return confirmations, nil
}

// GetConfirmationDetails fetches and classifies one confirmation.
// confirmationKey must be signed with tag "details".
func (h *WebHandler) GetConfirmationDetails(ctx context.Context, deviceID string, confirmationKey []byte, t uint64, confirmation *Confirmation) (*ConfirmationDetails, error) {
	if confirmation == nil || confirmation.ID == 0 {
		return nil, eris.Wrap(ErrInvalidArgument, "confirmation")
	}

	query, err := h.confirmationQuery(deviceID, confirmationKey, t, "details")
	if err != nil {
		return nil, err
	}

	if !h.refreshSessionIfNeeded(ctx) {
		return nil, ErrSessionUnavailable
	}

	requestURL := fmt.Sprintf("%s/mobileconf/details/%d?%s", SteamCommunityURL, confirmation.ID, query.Encode())

	var response confirmationDetailsResponse
	if err := h.transport.GetJSON(ctx, requestURL, &response); err != nil {
		return nil, eris.Wrap(err, "fetching confirmation details")
	}
	if !response.Success || response.HTML == "" {
		return nil, eris.Wrap(ErrMalformedResponse, "confirmation details reported failure")
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(response.HTML))
	if err != nil {
		return nil, eris.Wrap(err, "parsing confirmation details")
	}

	return parseConfirmationDetails(doc)
}

func parseConfirmationDetails(doc *goquery.Document) (*ConfirmationDetails, error) {
	details := &ConfirmationDetails{Type: ConfirmationOther}

	switch {
	case doc.Find("div.mobileconf_listing_prices").Length() > 0:
		details.Type = ConfirmationMarket
		return details, nil
	case doc.Find("div.mobileconf_trade_area").Length() > 0:
		details.Type = ConfirmationTrade
	default:
		return details, nil
	}

	accountText, ok := doc.Find("a[data-miniprofile]").First().Attr("data-miniprofile")
	if !ok {
		return nil, eris.Wrap(ErrMalformedResponse, "trade confirmation without counterparty")
	}
	accountID, err := strconv.ParseUint(accountText, 10, 32)
	if err != nil {
		return nil, eris.Wrapf(ErrMalformedResponse, "counterparty account id %q", accountText)
	}
	details.OtherSteamID = steamid.FromAccountID(uint32(accountID))

	offerNode, ok := doc.Find("div.tradeoffer").First().Attr("id")
	if !ok {
		return nil, eris.Wrap(ErrMalformedResponse, "trade confirmation without offer")
	}
	_, idText, found := strings.Cut(offerNode, "_")
	if !found {
		return nil, eris.Wrapf(ErrMalformedResponse, "trade offer node id %q", offerNode)
	}
	details.TradeOfferID, err = strconv.ParseUint(idText, 10, 64)
	if err != nil {
		return nil, eris.Wrapf(ErrMalformedResponse, "trade offer id %q", idText)
	}

	return details, nil
}

// HandleConfirmation accepts or cancels one confirmation. confirmationKey
// must be signed with the matching "allow" or "cancel" tag.
func (h *WebHandler) HandleConfirmation(ctx context.Context, deviceID string, confirmationKey []byte, t uint64, confirmation *Confirmation, accept bool) (bool, error) {
	if confirmation == nil || confirmation.ID == 0 {
		return false, eris.Wrap(ErrInvalidArgument, "confirmation")
	}

	op := "cancel"
	if accept {
		op = "allow"
	}

	query, err := h.confirmationQuery(deviceID, confirmationKey, t, op)
	if err != nil {
		return false, err
	}
	query.Set("op", op)
	query.Set("cid", formatUint(confirmation.ID))
	query.Set("ck", formatUint(confirmation.Key))

	if !h.refreshSessionIfNeeded(ctx) {
		return false, ErrSessionUnavailable
	}

	var response confirmationOpResponse
	if err := h.transport.GetJSON(ctx, SteamCommunityURL+"/mobileconf/ajaxop?"+query.Encode(), &response); err != nil {
		return false, eris.Wrap(err, "handling confirmation")
	}

	return response.Success, nil
}

// HandleConfirmations accepts or cancels a batch in one request.
func (h *WebHandler) HandleConfirmations(ctx context.Context, deviceID string, confirmationKey []byte, t uint64, confirmations []*Confirmation, accept bool) (bool, error) {
	if len(confirmations) == 0 {
		return false, eris.Wrap(ErrInvalidArgument, "confirmations")
	}

	op := "cancel"
	if accept {
		op = "allow"
	}

	data, err := h.confirmationQuery(deviceID, confirmationKey, t, op)
	if err != nil {
		return false, err
	}
	data.Set("op", op)
	for _, confirmation := range confirmations {
		if confirmation == nil || confirmation.ID == 0 {
			return false, eris.Wrap(ErrInvalidArgument, "confirmation")
		}
		data.Add("cid[]", formatUint(confirmation.ID))
		data.Add("ck[]", formatUint(confirmation.Key))
	}

	if !h.refreshSessionIfNeeded(ctx) {
		return false, ErrSessionUnavailable
	}

	var response confirmationOpResponse
	if err := h.transport.PostJSON(ctx, SteamCommunityURL+"/mobileconf/multiajaxop", data, SteamCommunityURL+"/mobileconf/conf", &response); err != nil {
		return false, eris.Wrap(err, "handling confirmations")
	}

	return response.Success, nil
}
