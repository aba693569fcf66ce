package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/shopspring/decimal"

	"github.com/derrickappah/smm-panel-sub007/internal/core/config"
)

var korapayStatuses = map[string]Outcome{
	"success":    OutcomeSuccess,
	"failed":     OutcomeFailed,
	"expired":    OutcomeFailed,
	"pending":    OutcomePending,
	"processing": OutcomePending,
}

type Korapay struct {
	baseURL   string
	secretKey string
	client    *http.Client
}

func NewKorapay(cfg config.GatewayConfig) *Korapay {
	return &Korapay{
		baseURL:   cfg.BaseURL,
		secretKey: cfg.SecretKey,
		client:    newClient(),
	}
}

func (k *Korapay) Name() string { return "korapay" }

type korapayChargeResponse struct {
	Status bool `json:"status"`
	Data   struct {
		Status    string          `json:"status"`
		Reference string          `json:"reference"`
		Amount    decimal.Decimal `json:"amount"`
		Currency  string          `json:"currency"`
		Customer  struct {
			Email string `json:"email"`
		} `json:"customer"`
	} `json:"data"`
}

func (k *Korapay) Verify(ctx context.Context, reference string) (*Verification, error) {
	endpoint := fmt.Sprintf("%s/merchant/api/v1/charges/%s", k.baseURL, url.PathEscape(reference))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("korapay: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+k.secretKey)

	body, err := send(k.client, req)
	if err != nil {
		return nil, fmt.Errorf("korapay: %w", err)
	}

	var parsed korapayChargeResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("korapay: decode response: %w", err)
	}

	return &Verification{
		Outcome:       mapStatus(korapayStatuses, parsed.Data.Status),
		Amount:        parsed.Data.Amount,
		Currency:      parsed.Data.Currency,
		ProviderRef:   parsed.Data.Reference,
		CustomerEmail: parsed.Data.Customer.Email,
		Raw:           json.RawMessage(body),
	}, nil
}
