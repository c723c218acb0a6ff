package api

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"

	"github.com/farmkit/steam/steamlang"
)

// The browser-like half of the transport: authenticated page fetches that
// decode into HTML documents, JSON objects or XML documents, plus HEAD
// probes and form posts. All of them ride the bounded-retry client.

func (t *HttpTransport) GetHTML(ctx context.Context, requestUrl string) (*goquery.Document, error) {
	httpResponse, err := t.browse(ctx, http.MethodGet, requestUrl, nil, "")
	if err != nil {
		return nil, err
	}
	defer t.closeBody(httpResponse.Body)

	document, err := goquery.NewDocumentFromReader(httpResponse.Body)
	if err != nil {
		return nil, eris.Wrapf(err, "couldn't parse %s as HTML", requestUrl)
	}

	return document, nil
}

func (t *HttpTransport) GetJSON(ctx context.Context, requestUrl string, response any) error {
	httpResponse, err := t.browse(ctx, http.MethodGet, requestUrl, nil, "")
	if err != nil {
		return err
	}
	defer t.closeBody(httpResponse.Body)

	return decodeJSONBody(httpResponse, response)
}

func (t *HttpTransport) GetXML(ctx context.Context, requestUrl string, response any) error {
	httpResponse, err := t.browse(ctx, http.MethodGet, requestUrl, nil, "")
	if err != nil {
		return err
	}
	defer t.closeBody(httpResponse.Body)

	if err = xml.NewDecoder(httpResponse.Body).Decode(response); err != nil {
		return eris.Wrapf(err, "couldn't parse %s as XML", requestUrl)
	}

	return nil
}

// Post submits a form and reports nothing beyond success.
func (t *HttpTransport) Post(ctx context.Context, requestUrl string, data url.Values, referer string) error {
	httpResponse, err := t.browse(ctx, http.MethodPost, requestUrl, data, referer)
	if err != nil {
		return err
	}
	t.closeBody(httpResponse.Body)

	return nil
}

func (t *HttpTransport) PostHTML(ctx context.Context, requestUrl string, data url.Values, referer string) (*goquery.Document, error) {
	httpResponse, err := t.browse(ctx, http.MethodPost, requestUrl, data, referer)
	if err != nil {
		return nil, err
	}
	defer t.closeBody(httpResponse.Body)

	document, err := goquery.NewDocumentFromReader(httpResponse.Body)
	if err != nil {
		return nil, eris.Wrapf(err, "couldn't parse %s as HTML", requestUrl)
	}

	return document, nil
}

func (t *HttpTransport) PostJSON(ctx context.Context, requestUrl string, data url.Values, referer string, response any) error {
	httpResponse, err := t.browse(ctx, http.MethodPost, requestUrl, data, referer)
	if err != nil {
		return err
	}
	defer t.closeBody(httpResponse.Body)

	return decodeJSONBody(httpResponse, response)
}

func (t *HttpTransport) Head(ctx context.Context, requestUrl string) error {
	httpResponse, err := t.browse(ctx, http.MethodHead, requestUrl, nil, "")
	if err != nil {
		return err
	}
	t.closeBody(httpResponse.Body)

	return nil
}

// HeadFinalURL issues a HEAD request and reports the URL the redirect chain
// resolved to, which is how a login redirect is detected.
func (t *HttpTransport) HeadFinalURL(ctx context.Context, requestUrl string) (*url.URL, error) {
	httpResponse, err := t.browse(ctx, http.MethodHead, requestUrl, nil, "")
	if err != nil {
		return nil, err
	}
	t.closeBody(httpResponse.Body)

	return httpResponse.Request.URL, nil
}

// CookieValue looks up a cookie by name in the jar for the given base URL.
// Returns an empty string when absent.
func (t *HttpTransport) CookieValue(baseUrl, name string) string {
	parsedUrl, err := url.Parse(baseUrl)
	if err != nil {
		return ""
	}

	for _, cookie := range t.client.Jar.Cookies(parsedUrl) {
		if strings.EqualFold(cookie.Name, name) {
			return cookie.Value
		}
	}

	return ""
}

func (t *HttpTransport) browse(ctx context.Context, method, requestUrl string, data url.Values, referer string) (*http.Response, error) {
	var body io.Reader
	if data != nil {
		body = strings.NewReader(data.Encode())
	}

	httpRequest, err := http.NewRequestWithContext(ctx, method, requestUrl, body)
	if err != nil {
		return nil, err
	}

	httpRequest.Header.Set("User-Agent", t.userAgent)
	if method == http.MethodPost {
		httpRequest.Header.Set("Content-Type", FormContentType)
	}
	if referer != "" {
		httpRequest.Header.Set("Referer", referer)
	}

	httpResponse, err := t.retryClient.StandardClient().Do(httpRequest)
	if err != nil {
		return nil, eris.Wrapf(err, "request to %s failed after %d retries", requestUrl, MaxRetries)
	}

	if err = steamlang.EnsureSuccessResponse(httpResponse); err != nil {
		t.closeBody(httpResponse.Body)
		return nil, err
	}

	return httpResponse, nil
}

func decodeJSONBody(httpResponse *http.Response, response any) error {
	responseBody, err := io.ReadAll(httpResponse.Body)
	if err != nil {
		return eris.Wrap(err, "couldn't read response body")
	}

	if err = json.Unmarshal(responseBody, response); err != nil {
		return eris.Wrap(err, "couldn't unmarshal response body")
	}

	return nil
}
