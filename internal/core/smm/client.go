// Package smm talks to the upstream SMM panel the orders are resold through.
// The API is the de-facto panel standard: form-encoded POST with the key in
// the body, JSON responses.
package smm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ErrTransient marks timeouts and transport-level trouble where the provider
// may or may not have seen the request. Callers must not assume either way.
var ErrTransient = errors.New("transient provider failure")

// Rejection is a definitive provider "no": the order was not placed, and
// retrying the same call will not help. Raw keeps the payload for diagnostics.
type Rejection struct {
	Message string
	Raw     []byte
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("provider rejected order: %s", r.Message)
}

type Client struct {
	apiURL string
	apiKey string
	client *http.Client
}

func NewClient(apiURL, apiKey string) *Client {
	return &Client{
		apiURL: apiURL,
		apiKey: apiKey,
		client: &http.Client{Timeout: 20 * time.Second},
	}
}

type addOrderResponse struct {
	Order json.Number `json:"order"`
	Error string      `json:"error"`
}

// AddOrder places an order upstream and returns the provider's order id.
func (c *Client) AddOrder(ctx context.Context, serviceKey, link string, quantity int) (string, error) {
	body, err := c.post(ctx, url.Values{
		"action":   {"add"},
		"service":  {serviceKey},
		"link":     {link},
		"quantity": {strconv.Itoa(quantity)},
	})
	if err != nil {
		return "", err
	}

	var parsed addOrderResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("%w: malformed response", ErrTransient)
	}
	if parsed.Error != "" {
		return "", &Rejection{Message: parsed.Error, Raw: body}
	}
	if parsed.Order == "" {
		return "", fmt.Errorf("%w: response missing order id", ErrTransient)
	}
	return parsed.Order.String(), nil
}

type statusResponse struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

// OrderStatus fetches the upstream status of a previously placed order.
func (c *Client) OrderStatus(ctx context.Context, providerOrderID string) (string, error) {
	body, err := c.post(ctx, url.Values{
		"action": {"status"},
		"order":  {providerOrderID},
	})
	if err != nil {
		return "", err
	}

	var parsed statusResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("%w: malformed response", ErrTransient)
	}
	if parsed.Error != "" {
		return "", &Rejection{Message: parsed.Error, Raw: body}
	}
	return strings.ToLower(parsed.Status), nil
}

func (c *Client) post(ctx context.Context, form url.Values) ([]byte, error) {
	form.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build provider request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransient, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %v", ErrTransient, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: provider returned %d", ErrTransient, resp.StatusCode)
	}
	return body, nil
}
