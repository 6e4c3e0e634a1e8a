package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/go-querystring/query"
	"github.com/hashicorp/go-cleanhttp"
)

var (
	ErrBitlyUnauthorized = errors.New("unauthorized access to bitly's API")
	ErrBitlyRateLimited  = errors.New("rate limit exceeded while using bitly's API")
)

// BitlyError is any status code from bitly's API other than 200, 401 and 403.
type BitlyError struct {
	Code int
}

func (e *BitlyError) Error() string {
	return fmt.Sprintf("error code: %d received from bitly's API", e.Code)
}

type URLShortener interface {
	GenerateShortURL(ctx context.Context, longURL string) (string, error)
}

// BitlyShortener shortens URLs through bitly's v3 API. It makes one attempt
// per call; failures are returned to the caller, never retried.
type BitlyShortener struct {
	Login      string
	APIKey     string
	Endpoint   string
	HTTPClient *http.Client
}

func NewBitlyShortener(endpoint, login, apiKey string, timeout time.Duration) *BitlyShortener {
	client := cleanhttp.DefaultPooledClient()
	client.Timeout = timeout
	return &BitlyShortener{
		Login:      strings.TrimSpace(login),
		APIKey:     strings.TrimSpace(apiKey),
		Endpoint:   endpoint,
		HTTPClient: client,
	}
}

type bitlyShortenParams struct {
	Format  string `url:"format"`
	LongURL string `url:"longUrl"`
	Login   string `url:"login"`
	APIKey  string `url:"apiKey"`
}

type bitlyShortenResponse struct {
	StatusCode int    `json:"status_code"`
	StatusTxt  string `json:"status_txt"`
	// bitly sends an empty array here on some errors
	Data json.RawMessage `json:"data"`
}

// GenerateShortURL returns a short URL for longURL. Without configured
// credentials it returns "" and makes no request.
func (b *BitlyShortener) GenerateShortURL(ctx context.Context, longURL string) (string, error) {
	if b == nil || b.Login == "" || b.APIKey == "" {
		shortenerRequests.WithLabelValues("unconfigured").Inc()
		return "", nil
	}

	vals, err := query.Values(bitlyShortenParams{
		Format:  "json",
		LongURL: longURL,
		Login:   b.Login,
		APIKey:  b.APIKey,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.Endpoint, bytes.NewBufferString(vals.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	client := b.HTTPClient
	if client == nil {
		client = cleanhttp.DefaultPooledClient()
		client.Timeout = 10 * time.Second
	}

	resp, err := client.Do(req)
	if err != nil {
		shortenerRequests.WithLabelValues("transport_error").Inc()
		return "", fmt.Errorf("bitly request: %w", err)
	}
	defer resp.Body.Close()

	var out bitlyShortenResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		shortenerRequests.WithLabelValues("bad_response").Inc()
		return "", fmt.Errorf("bitly response (http %d): %w", resp.StatusCode, err)
	}

	switch out.StatusCode {
	case http.StatusOK:
		shortenerRequests.WithLabelValues("ok").Inc()
		return shortURLFromData(out.Data), nil
	case http.StatusUnauthorized:
		shortenerRequests.WithLabelValues("unauthorized").Inc()
		return "", ErrBitlyUnauthorized
	case http.StatusForbidden:
		shortenerRequests.WithLabelValues("rate_limited").Inc()
		return "", ErrBitlyRateLimited
	default:
		shortenerRequests.WithLabelValues("error").Inc()
		slog.Warn("bitly returned an error", "status_code", out.StatusCode, "status_txt", out.StatusTxt)
		return "", &BitlyError{Code: out.StatusCode}
	}
}

func shortURLFromData(raw json.RawMessage) string {
	var data struct {
		URL string `json:"url"`
	}
	if len(raw) == 0 || json.Unmarshal(raw, &data) != nil {
		return ""
	}
	return data.URL
}
