package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Outcome is the normalized verification result every provider's status
// vocabulary is mapped onto.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomePending Outcome = "pending"
	OutcomeFailed  Outcome = "failed"
)

// ErrTransient marks network timeouts and non-2xx provider responses. It is
// distinct from a provider-confirmed failure so callers retry only this class.
var ErrTransient = errors.New("transient gateway failure")

// Verification is the normalized result of a provider status lookup.
// CustomerEmail is the payer the provider saw; empty when the provider does
// not report one.
type Verification struct {
	Outcome       Outcome
	Amount        decimal.Decimal
	Currency      string
	ProviderRef   string
	CustomerEmail string
	Raw           json.RawMessage
}

// Gateway verifies a payment reference against one provider. Implementations
// are read-only: all durable mutation happens in the ledger.
type Gateway interface {
	Name() string
	Verify(ctx context.Context, reference string) (*Verification, error)
}

// Registry resolves a provider slug from the URL to its gateway.
type Registry struct {
	gateways map[string]Gateway
}

func NewRegistry(gws ...Gateway) *Registry {
	r := &Registry{gateways: make(map[string]Gateway, len(gws))}
	for _, gw := range gws {
		r.gateways[gw.Name()] = gw
	}
	return r
}

func (r *Registry) Get(name string) (Gateway, bool) {
	gw, ok := r.gateways[strings.ToLower(name)]
	return gw, ok
}

const verifyTimeout = 15 * time.Second

func newClient() *http.Client {
	return &http.Client{Timeout: verifyTimeout}
}

// send executes the request and returns the body for 2xx responses. Anything
// else (transport error, timeout, non-2xx status) is wrapped as ErrTransient.
func send(client *http.Client, req *http.Request) ([]byte, error) {
	resp, err := client.Do(req)
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

// mapStatus resolves a provider status string through its vocabulary table.
// Unmapped statuses resolve to pending, never to success.
func mapStatus(table map[string]Outcome, raw string) Outcome {
	if outcome, ok := table[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return outcome
	}
	return OutcomePending
}
