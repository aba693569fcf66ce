package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/derrickappah/smm-panel-sub007/internal/core/config"
)

var voguepayStatuses = map[string]Outcome{
	"approved": OutcomeSuccess,
	"failed":   OutcomeFailed,
	"declined": OutcomeFailed,
	"expired":  OutcomeFailed,
	"pending":  OutcomePending,
}

// Voguepay is the odd one out: form-encoded transport with the merchant
// credential in the request body instead of a bearer header.
type Voguepay struct {
	baseURL    string
	merchantID string
	client     *http.Client
}

func NewVoguepay(cfg config.GatewayConfig) *Voguepay {
	return &Voguepay{
		baseURL:    cfg.BaseURL,
		merchantID: cfg.MerchantID,
		client:     newClient(),
	}
}

func (v *Voguepay) Name() string { return "voguepay" }

type voguepayResponse struct {
	Status        string          `json:"status"`
	TransactionID string          `json:"transaction_id"`
	Total         decimal.Decimal `json:"total"`
	Currency      string          `json:"cur"`
	Email         string          `json:"email"`
}

func (v *Voguepay) Verify(ctx context.Context, reference string) (*Verification, error) {
	form := url.Values{}
	form.Set("v_merchant_id", v.merchantID)
	form.Set("v_transaction_id", reference)
	form.Set("type", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.baseURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("voguepay: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	body, err := send(v.client, req)
	if err != nil {
		return nil, fmt.Errorf("voguepay: %w", err)
	}

	var parsed voguepayResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("voguepay: decode response: %w", err)
	}

	return &Verification{
		Outcome:       mapStatus(voguepayStatuses, parsed.Status),
		Amount:        parsed.Total,
		Currency:      parsed.Currency,
		ProviderRef:   parsed.TransactionID,
		CustomerEmail: parsed.Email,
		Raw:           json.RawMessage(body),
	}, nil
}
