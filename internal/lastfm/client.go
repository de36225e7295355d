// Package lastfm talks to a last.fm compatible scrobbling API and resolves the
// track a user is currently listening to.
package lastfm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const (
	// BaseURL is the public last.fm API root.
	BaseURL = "https://ws.audioscrobbler.com/2.0/"

	// DefaultTimeout bounds a single API request.
	DefaultTimeout = 30 * time.Second

	userAgent = "disclfmpresence"
)

// ErrLastFM matches every error reported by the API itself.
var ErrLastFM = errors.New("last.fm error")

// APIError is an error object returned by the API.
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error %d: %s", e.Code, e.Message)
}

// Is makes errors.Is(err, ErrLastFM) true for API errors.
func (e *APIError) Is(target error) bool {
	return target == ErrLastFM
}

// DecodeError is a response whose body could not be decoded.
type DecodeError struct {
	StatusCode int
	Err        error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("couldn't decode JSON in %d response: %v", e.StatusCode, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// StatusError is a non-2xx response that decoded without an API error.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d without an API error", e.StatusCode)
}

// Client is a minimal read-only API client.
type Client struct {
	apiRoot    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a client for the API at apiRoot.
func NewClient(apiRoot, apiKey string) *Client {
	return NewClientCustom(apiRoot, apiKey, &http.Client{Timeout: DefaultTimeout})
}

// NewClientCustom creates a client using the given HTTP client.
func NewClientCustom(apiRoot, apiKey string, httpClient *http.Client) *Client {
	if apiRoot == "" {
		apiRoot = BaseURL
	}
	return &Client{
		apiRoot:    apiRoot,
		apiKey:     apiKey,
		httpClient: httpClient,
	}
}

// Call performs a GET request for method with the given extra params.
// It returns *APIError when the API reports an error, *DecodeError when the
// body is not a valid response and *StatusError for a non-2xx status without
// an API error. Any other error is a transport failure.
func (c *Client) Call(ctx context.Context, method string, params url.Values) (Response, error) {
	query := url.Values{}
	for k, v := range params {
		query[k] = v
	}
	query.Set("method", method)
	query.Set("api_key", c.apiKey)
	query.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiRoot, nil)
	if err != nil {
		return Response{}, fmt.Errorf("build request: %w", err)
	}
	req.URL.RawQuery = query.Encode()
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("get: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, fmt.Errorf("read body: %w", err)
	}

	var r Response
	if err := json.Unmarshal(body, &r); err != nil {
		return Response{}, &DecodeError{StatusCode: resp.StatusCode, Err: err}
	}
	code, err := r.ErrorCode()
	if err != nil {
		return Response{}, &DecodeError{StatusCode: resp.StatusCode, Err: err}
	}
	if code != 0 {
		msg := r.Message
		if msg == "" {
			msg = "No message."
		}
		return Response{}, &APIError{Code: code, Message: msg}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Response{}, &StatusError{StatusCode: resp.StatusCode}
	}
	return r, nil
}

// UserGetRecentTracks returns the most recent tracks scrobbled by user.
func (c *Client) UserGetRecentTracks(ctx context.Context, user string, limit int) (RecentTracks, error) {
	params := url.Values{}
	params.Set("user", user)
	params.Set("limit", strconv.Itoa(limit))
	resp, err := c.Call(ctx, "user.getRecentTracks", params)
	if err != nil {
		return RecentTracks{}, fmt.Errorf("making recent tracks GET: %w", err)
	}
	if resp.RecentTracks == nil {
		return RecentTracks{}, nil
	}
	return *resp.RecentTracks, nil
}
