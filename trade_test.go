package steam

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farmkit/steam/econ"
	"github.com/farmkit/steam/steamid"
)

func tradeTestItems(t *testing.T, count int) []*econ.Item {
	t.Helper()

	items := make([]*econ.Item, 0, count)
	for i := 0; i < count; i++ {
		item, err := econ.NewItem(econ.SteamAppID, econ.SteamCommunityContextID, uint64(i+1), 1, 440, econ.TradingCard)
		require.NoError(t, err)
		item.AssetID = uint64(1000 + i)
		items = append(items, item)
	}
	return items
}

func TestAcceptTradeOffer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/tradeoffer/4242/accept", r.URL.Path)
		require.NoError(t, r.ParseForm())

		assert.Equal(t, "test-session", r.PostForm.Get("sessionid"))
		assert.Equal(t, "1", r.PostForm.Get("serverid"))
		assert.Equal(t, "4242", r.PostForm.Get("tradeofferid"))
		assert.Contains(t, r.Referer(), "/tradeoffer/4242")
	}))
	defer server.Close()

	handler, _ := newTestHandler(t, server)
	markLoggedIn(handler)
	setCookie(t, handler, SteamCommunityURL, "sessionid", "test-session")

	require.NoError(t, handler.AcceptTradeOffer(context.Background(), 4242))
}

func TestAcceptTradeOfferRejectsZeroID(t *testing.T) {
	handler, _ := newTestHandler(t, nil)
	markLoggedIn(handler)

	require.ErrorIs(t, handler.AcceptTradeOffer(context.Background(), 0), ErrInvalidArgument)
}

func TestSendTradeOfferBatches(t *testing.T) {
	var payloads []econ.TradeOfferRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/tradeoffer/new/send", r.URL.Path)
		require.NoError(t, r.ParseForm())

		assert.Equal(t, "test-session", r.PostForm.Get("sessionid"))
		assert.Equal(t, "1", r.PostForm.Get("serverid"))
		assert.Equal(t, "76561197960287930", r.PostForm.Get("partner"))
		assert.Equal(t, "enjoy", r.PostForm.Get("tradeoffermessage"))
		assert.JSONEq(t, `{"trade_offer_access_token":"token123"}`, r.PostForm.Get("trade_offer_create_params"))

		var payload econ.TradeOfferRequest
		require.NoError(t, json.Unmarshal([]byte(r.PostForm.Get("json_tradeoffer")), &payload))
		payloads = append(payloads, payload)
	}))
	defer server.Close()

	handler, _ := newTestHandler(t, server)
	markLoggedIn(handler)
	setCookie(t, handler, SteamCommunityURL, "sessionid", "test-session")

	partner := steamid.FromAccountID(22202)
	items := tradeTestItems(t, econ.MaxItemsPerTrade+1)

	packed, err := handler.SendTradeOffer(context.Background(), partner, "token123", "enjoy", items)
	require.NoError(t, err)
	assert.Equal(t, len(items), packed)

	require.Len(t, payloads, 2)
	assert.Len(t, payloads[0].Me.Assets, econ.MaxItemsPerTrade)
	assert.Len(t, payloads[1].Me.Assets, 1)
	assert.Empty(t, payloads[0].Them.Assets)
	assert.True(t, payloads[0].NewVersion)
}

func TestSendTradeOfferAbortsOnFailure(t *testing.T) {
	var posts int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		posts++
		if posts > 1 {
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
	defer server.Close()

	handler, _ := newTestHandler(t, server)
	markLoggedIn(handler)
	setCookie(t, handler, SteamCommunityURL, "sessionid", "test-session")

	partner := steamid.FromAccountID(22202)
	items := tradeTestItems(t, econ.MaxItemsPerTrade+1)

	_, err := handler.SendTradeOffer(context.Background(), partner, "", "", items)
	require.Error(t, err)
}

func TestSendTradeOfferRejectsBadArguments(t *testing.T) {
	handler, _ := newTestHandler(t, nil)
	markLoggedIn(handler)

	_, err := handler.SendTradeOffer(context.Background(), steamid.SteamID{}, "", "", tradeTestItems(t, 1))
	require.ErrorIs(t, err, ErrInvalidArgument)

	_, err = handler.SendTradeOffer(context.Background(), steamid.FromAccountID(22202), "", "", nil)
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestGetActiveTradeOffers(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/dev/apikey":
			fmt.Fprint(w, apiKeyPage("Steam Web API Key", "Key: "+testApiKey))
		case "/IEconService/GetTradeOffers/v1/":
			query := r.URL.Query()
			assert.Equal(t, testApiKey, query.Get("key"))
			assert.Equal(t, "1", query.Get("active_only"))
			assert.Equal(t, "1", query.Get("get_received_offers"))
			assert.Equal(t, "1", query.Get("get_descriptions"))

			fmt.Fprint(w, `{"response": {
				"trade_offers_received": [
					{
						"tradeofferid": "4242",
						"accountid_other": 22202,
						"trade_offer_state": 2,
						"items_to_give": [
							{"appid": 753, "contextid": "6", "assetid": "1000", "classid": "100", "instanceid": "0", "amount": "1"}
						],
						"items_to_receive": [
							{"appid": 753, "contextid": "6", "assetid": "2000", "classid": "200", "instanceid": "0", "amount": "2"}
						]
					},
					{
						"tradeofferid": "4243",
						"accountid_other": 22203,
						"trade_offer_state": 3,
						"items_to_give": [],
						"items_to_receive": []
					}
				],
				"descriptions": [
					{"appid": 753, "classid": "100", "type": "Trading Card", "market_hash_name": "440-Card"},
					{"appid": 753, "classid": "200", "type": "Foil Trading Card", "market_hash_name": "440-Foil"}
				]
			}}`)
		default:
			t.Errorf("unexpected request to %s", r.URL.Path)
		}
	}))
	defer server.Close()

	handler, _ := newTestHandler(t, server)
	markLoggedIn(handler)

	offers, err := handler.GetActiveTradeOffers(context.Background())
	require.NoError(t, err)
	require.Len(t, offers, 1)

	offer := offers[0]
	assert.Equal(t, uint64(4242), offer.ID)
	assert.Equal(t, econ.StateActive, offer.State)

	require.Len(t, offer.ItemsToGive, 1)
	assert.Equal(t, uint32(440), offer.ItemsToGive[0].RealAppID)
	assert.Equal(t, econ.TradingCard, offer.ItemsToGive[0].Type)

	require.Len(t, offer.ItemsToReceive, 1)
	assert.Equal(t, econ.FoilTradingCard, offer.ItemsToReceive[0].Type)
	assert.Equal(t, uint32(2), offer.ItemsToReceive[0].Amount)
}

func TestDeclineTradeOfferUsesWebAPI(t *testing.T) {
	var declined bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/dev/apikey":
			fmt.Fprint(w, apiKeyPage("Steam Web API Key", "Key: "+testApiKey))
		case "/IEconService/DeclineTradeOffer/v1/":
			require.Equal(t, http.MethodPost, r.Method)
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "4242", r.PostForm.Get("tradeofferid"))
			assert.Equal(t, testApiKey, r.PostForm.Get("key"))
			declined = true
		default:
			t.Errorf("unexpected request to %s", r.URL.Path)
		}
	}))
	defer server.Close()

	handler, _ := newTestHandler(t, server)
	markLoggedIn(handler)

	require.NoError(t, handler.DeclineTradeOffer(context.Background(), 4242))
	assert.True(t, declined)
}

func TestGetTradeHoldDuration(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/tradeoffer/4242", r.URL.Path)
		fmt.Fprint(w, `<html><body><div class="pagecontent">
			<script>var g_rgAppContextData = {};</script>
			<script>
				var g_daysMyEscrow = 0;
				var g_daysTheirEscrow = 15;
			</script>
		</div></body></html>`)
	}))
	defer server.Close()

	handler, _ := newTestHandler(t, server)
	markLoggedIn(handler)

	days, err := handler.GetTradeHoldDuration(context.Background(), 4242)
	require.NoError(t, err)
	assert.Equal(t, uint32(15), days)
}

func TestGetTradeHoldDurationMissingScript(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><div class="pagecontent"></div></body></html>`)
	}))
	defer server.Close()

	handler, _ := newTestHandler(t, server)
	markLoggedIn(handler)

	_, err := handler.GetTradeHoldDuration(context.Background(), 4242)
	require.ErrorIs(t, err, ErrMalformedResponse)
}
