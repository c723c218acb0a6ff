package webapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/farmkit/steam/steamid"
)

type ownedGamesRequest struct {
	steamID steamid.SteamID
}

func (ownedGamesRequest) Retryable() bool      { return true }
func (ownedGamesRequest) RequiresApiKey() bool { return true }
func (ownedGamesRequest) Method() string       { return http.MethodGet }

func (ownedGamesRequest) Url() string {
	return fmt.Sprintf("%s/%s/GetOwnedGames/v1/", BaseURL, playerService)
}

func (r ownedGamesRequest) Values() (url.Values, error) {
	return url.Values{
		"steamid":         {r.steamID.String()},
		"include_appinfo": {"1"},
	}, nil
}

func (ownedGamesRequest) Headers() (http.Header, error) { return nil, nil }

type ownedGamesResponse struct {
	Response struct {
		Games []struct {
			AppID uint32 `json:"appid"`
			Name  string `json:"name"`
		} `json:"games"`
	} `json:"response"`
}

// GetOwnedGames returns appID -> name for every game the account owns.
func (c *Client) GetOwnedGames(ctx context.Context, steamID steamid.SteamID) (map[uint32]string, error) {
	var response ownedGamesResponse
	if err := c.Transport.Send(ctx, ownedGamesRequest{steamID: steamID}, &response); err != nil {
		return nil, err
	}

	result := make(map[uint32]string, len(response.Response.Games))
	for _, game := range response.Response.Games {
		if game.AppID == 0 {
			return nil, fmt.Errorf("owned games response carried a zero appID (%q)", game.Name)
		}
		result[game.AppID] = game.Name
	}

	return result, nil
}
