package steam

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func documentFromHTML(t *testing.T, html string) *goquery.Document {
	t.Helper()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestParseConfirmations(t *testing.T) {
	doc := documentFromHTML(t, `<html><body><div id="mobileconf_list">
		<div class="mobileconf_list_entry" data-confid="101" data-key="9001"></div>
		<div class="mobileconf_list_entry" data-confid="102" data-key="9002"></div>
	</div></body></html>`)

	confirmations, err := parseConfirmations(doc)
	require.NoError(t, err)
	require.Len(t, confirmations, 2)
	assert.Equal(t, &Confirmation{ID: 101, Key: 9001}, confirmations[0])
	assert.Equal(t, &Confirmation{ID: 102, Key: 9002}, confirmations[1])
}

func TestParseConfirmationsEmpty(t *testing.T) {
	doc := documentFromHTML(t, `<html><body><div id="mobileconf_empty">Nothing to confirm</div></body></html>`)

	confirmations, err := parseConfirmations(doc)
	require.NoError(t, err)
	assert.Empty(t, confirmations)
}

func TestParseConfirmationsMalformedEntry(t *testing.T) {
	doc := documentFromHTML(t, `<html><body>
		<div data-confid="not-a-number" data-key="1"></div>
	</body></html>`)

	_, err := parseConfirmations(doc)
	require.ErrorIs(t, err, ErrMalformedResponse)
}

func TestParseConfirmationDetails(t *testing.T) {
	tests := []struct {
		name string
		html string
		want ConfirmationDetails
	}{
		{
			name: "market listing",
			html: `<div class="mobileconf_listing_prices">$1.50</div>`,
			want: ConfirmationDetails{Type: ConfirmationMarket},
		},
		{
			name: "unrecognized",
			html: `<div class="mobileconf_header">Change email</div>`,
			want: ConfirmationDetails{Type: ConfirmationOther},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			details, err := parseConfirmationDetails(documentFromHTML(t, tc.html))
			require.NoError(t, err)
			assert.Equal(t, tc.want, *details)
		})
	}
}

func TestParseConfirmationDetailsTrade(t *testing.T) {
	details, err := parseConfirmationDetails(documentFromHTML(t, `
		<div class="mobileconf_trade_area">
			<a data-miniprofile="22203" href="#">partner</a>
			<div class="tradeoffer" id="tradeoffer_4242"></div>
		</div>`))
	require.NoError(t, err)

	assert.Equal(t, ConfirmationTrade, details.Type)
	assert.Equal(t, uint64(4242), details.TradeOfferID)
	assert.Equal(t, uint32(22203), details.OtherSteamID.AccountID())
	assert.True(t, details.OtherSteamID.IsValidIndividual())
}

func TestParseConfirmationDetailsTradeWithoutOffer(t *testing.T) {
	_, err := parseConfirmationDetails(documentFromHTML(t, `<div class="mobileconf_trade_area"></div>`))
	require.ErrorIs(t, err, ErrMalformedResponse)
}

func TestGetConfirmationsSignsQuery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/mobileconf/conf", r.URL.Path)

		query := r.URL.Query()
		assert.Equal(t, "android:device", query.Get("p"))
		assert.Equal(t, "76561197960287930", query.Get("a"))
		assert.Equal(t, "a2V5", query.Get("k"))
		assert.Equal(t, "1700000000", query.Get("t"))
		assert.Equal(t, "android", query.Get("m"))
		assert.Equal(t, "conf", query.Get("tag"))

		fmt.Fprint(w, `<html><body><div data-confid="7" data-key="8"></div></body></html>`)
	}))
	defer server.Close()

	handler, _ := newTestHandler(t, server)
	markLoggedIn(handler)

	confirmations, err := handler.GetConfirmations(context.Background(), "android:device", []byte("key"), 1700000000)
	require.NoError(t, err)
	require.Len(t, confirmations, 1)
	assert.Equal(t, &Confirmation{ID: 7, Key: 8}, confirmations[0])
}

func TestGetConfirmationDetailsFetchesAndClassifies(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/mobileconf/details/7", r.URL.Path)
		assert.Equal(t, "details", r.URL.Query().Get("tag"))

		response := map[string]any{
			"success": true,
			"html":    `<div class="mobileconf_listing_prices">$0.10</div>`,
		}
		require.NoError(t, json.NewEncoder(w).Encode(response))
	}))
	defer server.Close()

	handler, _ := newTestHandler(t, server)
	markLoggedIn(handler)

	details, err := handler.GetConfirmationDetails(context.Background(), "android:device", []byte("key"), 1700000000, &Confirmation{ID: 7, Key: 8})
	require.NoError(t, err)
	assert.Equal(t, ConfirmationMarket, details.Type)
}

func TestHandleConfirmationSingle(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/mobileconf/ajaxop", r.URL.Path)
		require.Equal(t, http.MethodGet, r.Method)

		query := r.URL.Query()
		assert.Equal(t, "allow", query.Get("op"))
		assert.Equal(t, "allow", query.Get("tag"))
		assert.Equal(t, "7", query.Get("cid"))
		assert.Equal(t, "8", query.Get("ck"))

		fmt.Fprint(w, `{"success": true}`)
	}))
	defer server.Close()

	handler, _ := newTestHandler(t, server)
	markLoggedIn(handler)

	ok, err := handler.HandleConfirmation(context.Background(), "android:device", []byte("key"), 1700000000, &Confirmation{ID: 7, Key: 8}, true)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestHandleConfirmationsBatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/mobileconf/multiajaxop", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, r.ParseForm())

		assert.Equal(t, "cancel", r.PostForm.Get("op"))
		assert.Equal(t, []string{"7", "9"}, r.PostForm["cid[]"])
		assert.Equal(t, []string{"8", "10"}, r.PostForm["ck[]"])

		fmt.Fprint(w, `{"success": true}`)
	}))
	defer server.Close()

	handler, _ := newTestHandler(t, server)
	markLoggedIn(handler)

	ok, err := handler.HandleConfirmations(context.Background(), "android:device", []byte("key"), 1700000000,
		[]*Confirmation{{ID: 7, Key: 8}, {ID: 9, Key: 10}}, false)
	require.NoError(t, err)
	assert.True(t, ok)
}
