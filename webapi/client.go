// Package webapi names the fixed set of keyed Steam Web API operations the
// handler invokes: trade offer listing and rejection, owned games, and
// two-factor server time.
package webapi

import (
	"github.com/farmkit/steam/api"
)

const BaseURL = "https://api.steampowered.com"

const (
	econService      = "IEconService"
	playerService    = "IPlayerService"
	twoFactorService = "ITwoFactorService"
)

type Client struct {
	Transport api.Transport
}

func NewClient(transport api.Transport) *Client {
	return &Client{Transport: transport}
}
