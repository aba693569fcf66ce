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

// Paystack's documented transaction statuses. Amounts come back in kobo.
var paystackStatuses = map[string]Outcome{
	"success":    OutcomeSuccess,
	"failed":     OutcomeFailed,
	"abandoned":  OutcomeFailed,
	"reversed":   OutcomeFailed,
	"pending":    OutcomePending,
	"ongoing":    OutcomePending,
	"queued":     OutcomePending,
	"processing": OutcomePending,
}

type Paystack struct {
	baseURL   string
	secretKey string
	client    *http.Client
}

func NewPaystack(cfg config.GatewayConfig) *Paystack {
	return &Paystack{
		baseURL:   cfg.BaseURL,
		secretKey: cfg.SecretKey,
		client:    newClient(),
	}
}

func (p *Paystack) Name() string { return "paystack" }

type paystackVerifyResponse struct {
	Status bool `json:"status"`
	Data   struct {
		Status    string `json:"status"`
		Reference string `json:"reference"`
		Amount    int64  `json:"amount"`
		Currency  string `json:"currency"`
		Customer  struct {
			Email string `json:"email"`
		} `json:"customer"`
	} `json:"data"`
}

func (p *Paystack) Verify(ctx context.Context, reference string) (*Verification, error) {
	endpoint := fmt.Sprintf("%s/transaction/verify/%s", p.baseURL, url.PathEscape(reference))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("paystack: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.secretKey)

	body, err := send(p.client, req)
	if err != nil {
		return nil, fmt.Errorf("paystack: %w", err)
	}

	var parsed paystackVerifyResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("paystack: decode response: %w", err)
	}

	return &Verification{
		Outcome:       mapStatus(paystackStatuses, parsed.Data.Status),
		Amount:        decimal.NewFromInt(parsed.Data.Amount).Div(decimal.NewFromInt(100)),
		Currency:      parsed.Data.Currency,
		ProviderRef:   parsed.Data.Reference,
		CustomerEmail: parsed.Data.Customer.Email,
		Raw:           json.RawMessage(body),
	}, nil
}
