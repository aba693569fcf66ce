package handler

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/derrickappah/smm-panel-sub007/internal/core/domain"
	"github.com/derrickappah/smm-panel-sub007/internal/core/gateway"
	"github.com/derrickappah/smm-panel-sub007/internal/core/payments"
)

type fakeVerifier struct {
	result        *payments.Result
	verifyErr     error
	webhookCalls  int
	webhookGotRef string
}

func (f *fakeVerifier) VerifyDeposit(_ context.Context, _ string, _ *domain.Account, _ string) (*payments.Result, error) {
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	return f.result, nil
}

func (f *fakeVerifier) HandleWebhook(_ context.Context, _, reference string) error {
	f.webhookCalls++
	f.webhookGotRef = reference
	return nil
}

func newPaymentApp(verifier DepositVerifier) *fiber.App {
	app := fiber.New()
	h := &PaymentHandler{Payments: verifier, PaystackSecret: "sk_test_secret", KorapaySecret: "kp_test_secret"}
	app.Use(injectAccount(testAccount()))
	app.Post("/payments/:provider/verify", h.Verify)
	app.Post("/payments/:provider/webhook", h.Webhook)
	return app
}

func signPaystack(secret string, body []byte) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyDeposit(t *testing.T) {
	verifier := &fakeVerifier{result: &payments.Result{Status: gateway.OutcomeSuccess}}
	app := newPaymentApp(verifier)

	res := postJSON(t, app, "/payments/paystack/verify", VerifyRequest{Reference: "ref_123"})
	require.Equal(t, http.StatusOK, res.StatusCode)
}

func TestVerifyDepositRequiresReference(t *testing.T) {
	app := newPaymentApp(&fakeVerifier{})

	res := postJSON(t, app, "/payments/paystack/verify", VerifyRequest{})
	require.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestVerifyDepositTransientGateway(t *testing.T) {
	app := newPaymentApp(&fakeVerifier{verifyErr: gateway.ErrTransient})

	res := postJSON(t, app, "/payments/paystack/verify", VerifyRequest{Reference: "ref_123"})
	require.Equal(t, http.StatusBadGateway, res.StatusCode)
	assert.Equal(t, "provider_unavailable", decodeError(t, res))
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	verifier := &fakeVerifier{}
	app := newPaymentApp(verifier)

	body := []byte(`{"event":"charge.success","data":{"reference":"ref_123"}}`)
	req := httptest.NewRequest(http.MethodPost, "/payments/paystack/webhook", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-paystack-signature", "forged")

	res, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	assert.Equal(t, 0, verifier.webhookCalls, "a bad signature must not reach the ledger")
}

func TestWebhookAcceptsSignedPayload(t *testing.T) {
	verifier := &fakeVerifier{}
	app := newPaymentApp(verifier)

	body := []byte(`{"event":"charge.success","data":{"reference":"ref_123"}}`)
	req := httptest.NewRequest(http.MethodPost, "/payments/paystack/webhook", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-paystack-signature", signPaystack("sk_test_secret", body))

	res, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, 1, verifier.webhookCalls)
	assert.Equal(t, "ref_123", verifier.webhookGotRef)
}

func TestWebhookUnknownProvider(t *testing.T) {
	app := newPaymentApp(&fakeVerifier{})

	req := httptest.NewRequest(http.MethodPost, "/payments/stripe/webhook", bytes.NewReader([]byte(`{}`)))
	res, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}
