package webapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

type queryTimeRequest struct{}

func (queryTimeRequest) Retryable() bool      { return true }
func (queryTimeRequest) RequiresApiKey() bool { return false }
func (queryTimeRequest) Method() string       { return http.MethodPost }

func (queryTimeRequest) Url() string {
	return fmt.Sprintf("%s/%s/QueryTime/v1/", BaseURL, twoFactorService)
}

func (queryTimeRequest) Values() (url.Values, error) {
	return url.Values{"steamid": {"0"}}, nil
}

func (queryTimeRequest) Headers() (http.Header, error) { return nil, nil }

type queryTimeResponse struct {
	Response struct {
		ServerTime int64 `json:"server_time,string"`
	} `json:"response"`
}

// QueryTime returns the server's unix time, used to align confirmation
// signatures with Steam's clock.
func (c *Client) QueryTime(ctx context.Context) (int64, error) {
	var response queryTimeResponse
	if err := c.Transport.Send(ctx, queryTimeRequest{}, &response); err != nil {
		return 0, err
	}
	return response.Response.ServerTime, nil
}
