// Package postal resolves Japanese postal codes into prefecture and city
// names through a zipcloud-compatible lookup service.
package postal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

const (
	// DefaultEndpoint is the public zipcloud search API.
	DefaultEndpoint = "https://zipcloud.ibsnet.co.jp/api/search"
	// DefaultTimeout bounds every lookup request.
	DefaultTimeout = 5 * time.Second

	maxBodyBytes = 1 << 20
)

var zipcodePattern = regexp.MustCompile(`^\d{7}$`)

// IsZipcode reports whether value is exactly seven ASCII digits.
func IsZipcode(value string) bool {
	return zipcodePattern.MatchString(value)
}

// Address is the part of a lookup answer the form uses.
type Address struct {
	Zipcode    string `json:"zipcode"`
	Prefecture string `json:"prefecture"`
	City       string `json:"city"`
}

// Lookuper resolves a zipcode into an address.
type Lookuper interface {
	Lookup(ctx context.Context, zipcode string) (Address, error)
}

// LookuperFunc adapts a function into a Lookuper.
type LookuperFunc func(ctx context.Context, zipcode string) (Address, error)

// Lookup calls f.
func (f LookuperFunc) Lookup(ctx context.Context, zipcode string) (Address, error) {
	return f(ctx, zipcode)
}

// Client talks to the lookup service over HTTP.
type Client struct {
	endpoint string
	http     *http.Client
	timeout  time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithEndpoint overrides the search endpoint.
func WithEndpoint(endpoint string) Option {
	return func(c *Client) {
		if endpoint = strings.TrimSpace(endpoint); endpoint != "" {
			c.endpoint = endpoint
		}
	}
}

// WithHTTPClient swaps the underlying HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.http = client
		}
	}
}

// WithTimeout sets the per-request timeout. Non-positive values keep the
// default.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// NewClient builds a lookup client.
func NewClient(options ...Option) *Client {
	c := &Client{
		endpoint: DefaultEndpoint,
		http:     http.DefaultClient,
		timeout:  DefaultTimeout,
	}
	for _, opt := range options {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

type searchResponse struct {
	Status  int            `json:"status"`
	Message string         `json:"message"`
	Results []searchResult `json:"results"`
}

type searchResult struct {
	Zipcode  string `json:"zipcode"`
	Address1 string `json:"address1"`
	Address2 string `json:"address2"`
	Address3 string `json:"address3"`
}

// Lookup queries the service for zipcode. It returns ErrNotFound when the
// service has no match and a *LookupError for any other failure.
func (c *Client) Lookup(ctx context.Context, zipcode string) (Address, error) {
	if !IsZipcode(zipcode) {
		return Address{}, &LookupError{Zipcode: zipcode, Err: fmt.Errorf("invalid zipcode %q", zipcode)}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	target, err := c.searchURL(zipcode)
	if err != nil {
		return Address{}, &LookupError{Zipcode: zipcode, Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return Address{}, &LookupError{Zipcode: zipcode, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Address{}, &LookupError{Zipcode: zipcode, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return Address{}, &LookupError{Zipcode: zipcode, StatusCode: resp.StatusCode}
	}

	var payload searchResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&payload); err != nil {
		return Address{}, &LookupError{Zipcode: zipcode, Err: fmt.Errorf("decode response: %w", err)}
	}
	if payload.Status != http.StatusOK || len(payload.Results) == 0 {
		return Address{}, ErrNotFound
	}

	first := payload.Results[0]
	return Address{
		Zipcode:    zipcode,
		Prefecture: first.Address1,
		City:       first.Address2 + first.Address3,
	}, nil
}

func (c *Client) searchURL(zipcode string) (string, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return "", fmt.Errorf("parse endpoint: %w", err)
	}
	q := u.Query()
	q.Set("zipcode", zipcode)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
