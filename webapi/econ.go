package webapi

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"

	"github.com/farmkit/steam/econ"
)

// OfferedAsset is the wire shape of one asset inside a trade offer payload.
type OfferedAsset struct {
	AppID      uint32 `json:"appid"`
	ContextID  uint64 `json:"contextid,string"`
	AssetID    uint64 `json:"assetid,string"`
	ClassID    uint64 `json:"classid,string"`
	InstanceID uint64 `json:"instanceid,string"`
	Amount     uint32 `json:"amount,string"`
}

// OfferDescription carries the class-level metadata used to classify assets.
type OfferDescription struct {
	AppID          uint32 `json:"appid"`
	ClassID        uint64 `json:"classid,string"`
	Type           string `json:"type"`
	MarketHashName string `json:"market_hash_name"`
}

type ReceivedOffer struct {
	TradeOfferID   uint64               `json:"tradeofferid,string"`
	OtherAccountID uint32               `json:"accountid_other"`
	State          econ.TradeOfferState `json:"trade_offer_state"`
	ItemsToGive    []*OfferedAsset      `json:"items_to_give"`
	ItemsToReceive []*OfferedAsset      `json:"items_to_receive"`
}

type TradeOffersResponse struct {
	Response struct {
		Received     []*ReceivedOffer    `json:"trade_offers_received"`
		Descriptions []*OfferDescription `json:"descriptions"`
	} `json:"response"`
}

type getTradeOffersRequest struct{}

func (getTradeOffersRequest) Retryable() bool      { return true }
func (getTradeOffersRequest) RequiresApiKey() bool { return true }
func (getTradeOffersRequest) Method() string       { return http.MethodGet }

func (getTradeOffersRequest) Url() string {
	return fmt.Sprintf("%s/%s/GetTradeOffers/v1/", BaseURL, econService)
}

func (getTradeOffersRequest) Values() (url.Values, error) {
	return url.Values{
		"active_only":            {"1"},
		"get_received_offers":    {"1"},
		"get_descriptions":       {"1"},
		"time_historical_cutoff": {strconv.FormatUint(math.MaxUint32, 10)},
	}, nil
}

func (getTradeOffersRequest) Headers() (http.Header, error) { return nil, nil }

// GetActiveTradeOffers fetches received offers plus their descriptions.
func (c *Client) GetActiveTradeOffers(ctx context.Context) (*TradeOffersResponse, error) {
	var response TradeOffersResponse
	if err := c.Transport.Send(ctx, getTradeOffersRequest{}, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

type offerActionRequest struct {
	verb string
	id   uint64
}

func (offerActionRequest) Retryable() bool      { return true }
func (offerActionRequest) RequiresApiKey() bool { return true }
func (offerActionRequest) Method() string       { return http.MethodPost }

func (r offerActionRequest) Url() string {
	return fmt.Sprintf("%s/%s/%sTradeOffer/v1/", BaseURL, econService, r.verb)
}

func (r offerActionRequest) Values() (url.Values, error) {
	return url.Values{
		"tradeofferid": {strconv.FormatUint(r.id, 10)},
	}, nil
}

func (offerActionRequest) Headers() (http.Header, error) { return nil, nil }

// DeclineTradeOffer rejects an offer we received.
func (c *Client) DeclineTradeOffer(ctx context.Context, id uint64) error {
	return c.Transport.Send(ctx, offerActionRequest{verb: "Decline", id: id}, nil)
}

// CancelTradeOffer withdraws an offer we sent.
func (c *Client) CancelTradeOffer(ctx context.Context, id uint64) error {
	return c.Transport.Send(ctx, offerActionRequest{verb: "Cancel", id: id}, nil)
}
