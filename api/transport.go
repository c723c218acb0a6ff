// Package api provides the browser-like HTTP transport every web operation
// goes through: bounded retries, a shared cookie jar, and result decoding
// into HTML documents, JSON objects or XML documents.
package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	"github.com/farmkit/steam/steamlang"
)

// MaxRetries bounds every request issued through the transport.
const MaxRetries = 5

const (
	JsonContentType = "application/json"
	FormContentType = "application/x-www-form-urlencoded"
)

// Request is one named remote operation against the keyed web API.
type Request interface {
	Retryable() bool
	RequiresApiKey() bool
	Method() string
	Url() string
	Values() (url.Values, error)
	Headers() (http.Header, error)
}

type Transport interface {
	CookieJar() http.CookieJar
	Send(ctx context.Context, request Request, response any) error
	HttpClient() *http.Client
}

type HttpTransport struct {
	mu        sync.RWMutex
	webApiKey string

	userAgent   string
	client      *http.Client
	retryClient *retryablehttp.Client
	logger      zerolog.Logger
}

type HttpTransportOptions struct {
	WebApiKey     string
	UserAgent     string
	ResponseCache CacheAdaptor
	Logger        zerolog.Logger
}

func NewTransport(options HttpTransportOptions) *HttpTransport {
	jar, err := cookiejar.New(nil)
	if err != nil {
		// cookiejar.New never fails with a nil PublicSuffixList.
		panic(err)
	}

	httpClient := &http.Client{
		Transport: newCachingTransport(cleanhttp.DefaultPooledTransport(), options.ResponseCache),
		Jar:       jar,
	}

	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient = httpClient
	retryClient.RetryMax = MaxRetries
	retryClient.Logger = leveledLogger{options.Logger}

	return &HttpTransport{
		webApiKey:   options.WebApiKey,
		userAgent:   options.UserAgent,
		client:      httpClient,
		retryClient: retryClient,
		logger:      options.Logger,
	}
}

func (t *HttpTransport) CookieJar() http.CookieJar {
	return t.client.Jar
}

func (t *HttpTransport) HttpClient() *http.Client {
	return t.client
}

// SetWebApiKey installs the account's key once acquisition resolves it.
func (t *HttpTransport) SetWebApiKey(key string) {
	t.mu.Lock()
	t.webApiKey = key
	t.mu.Unlock()
}

func (t *HttpTransport) WebApiKey() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.webApiKey
}

// Send issues a named web API operation and decodes its JSON response.
func (t *HttpTransport) Send(ctx context.Context, request Request, response any) error {
	requestValues, err := request.Values()
	if err != nil {
		return err
	}

	if request.RequiresApiKey() {
		key := t.WebApiKey()
		if key == "" {
			return eris.New("request requires a web api key but none is available")
		}
		if requestValues == nil {
			requestValues = make(url.Values)
		}
		requestValues.Set("key", key)
	}

	httpMethod := request.Method()
	requestUrl := request.Url()

	var httpBody io.Reader
	if requestValues != nil {
		if httpMethod == http.MethodGet {
			if !strings.Contains(requestUrl, "?") {
				requestUrl += "?"
			}
			requestUrl += requestValues.Encode()
		} else {
			httpBody = strings.NewReader(requestValues.Encode())
		}
	}

	httpRequest, err := http.NewRequestWithContext(ctx, httpMethod, requestUrl, httpBody)
	if err != nil {
		return err
	}

	httpRequest.Header.Set("Accept", JsonContentType)
	httpRequest.Header.Set("User-Agent", t.userAgent)
	if httpMethod == http.MethodPost {
		httpRequest.Header.Set("Content-Type", FormContentType)
	}

	headers, err := request.Headers()
	if err != nil {
		return err
	}
	for headerKey, headerValues := range headers {
		for _, headerValue := range headerValues {
			httpRequest.Header.Add(headerKey, headerValue)
		}
	}

	httpResponse, err := t.do(httpRequest, request.Retryable())
	if err != nil {
		return eris.Wrapf(err, "request to %s failed", request.Url())
	}
	defer t.closeBody(httpResponse.Body)

	if err = steamlang.EnsureSuccessResponse(httpResponse); err != nil {
		return err
	}
	if err = steamlang.EnsureEResultResponse(httpResponse); err != nil {
		return err
	}

	if response == nil {
		return nil
	}

	responseBody, err := io.ReadAll(httpResponse.Body)
	if err != nil {
		return eris.Wrap(err, "couldn't read response body")
	}

	if err = json.Unmarshal(responseBody, response); err != nil {
		return eris.Wrap(err, "couldn't unmarshal response body")
	}

	return nil
}

func (t *HttpTransport) do(httpRequest *http.Request, retryable bool) (*http.Response, error) {
	if !retryable {
		return t.client.Do(httpRequest)
	}
	return t.retryClient.StandardClient().Do(httpRequest)
}

func (t *HttpTransport) closeBody(body io.ReadCloser) {
	if err := body.Close(); err != nil {
		t.logger.Warn().Err(err).Msg("error closing response body")
	}
}

// leveledLogger bridges retryablehttp's internal logging onto zerolog.
type leveledLogger struct {
	logger zerolog.Logger
}

func (l leveledLogger) Error(msg string, keysAndValues ...any) {
	l.logger.Error().Fields(keysAndValues).Msg(msg)
}

func (l leveledLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Info().Fields(keysAndValues).Msg(msg)
}

func (l leveledLogger) Debug(msg string, keysAndValues ...any) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l leveledLogger) Warn(msg string, keysAndValues ...any) {
	l.logger.Warn().Fields(keysAndValues).Msg(msg)
}
