package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/derrickappah/smm-panel-sub007/internal/core/domain"
)

type fakeTxReader struct {
	settled   *domain.Transaction
	settleErr error
	gotTxID   uuid.UUID
	gotStatus domain.TransactionStatus
}

func (f *fakeTxReader) History(_ context.Context, _ uuid.UUID, _ int) ([]domain.Transaction, error) {
	return nil, nil
}

func (f *fakeTxReader) Settle(_ context.Context, txID uuid.UUID, outcome domain.TransactionStatus) (*domain.Transaction, error) {
	f.gotTxID = txID
	f.gotStatus = outcome
	if f.settleErr != nil {
		return nil, f.settleErr
	}
	return f.settled, nil
}

type fakePolicyWriter struct {
	threshold decimal.Decimal
	amount    decimal.Decimal
	calls     int
}

func (f *fakePolicyWriter) SetRewardPolicy(_ context.Context, threshold, amount decimal.Decimal) error {
	f.threshold, f.amount = threshold, amount
	f.calls++
	return nil
}

func newAdminApp(ledger TransactionReader, settings PolicyWriter) *fiber.App {
	app := fiber.New()
	h := &AccountHandler{Ledger: ledger, Settings: settings}
	admin := testAccount()
	admin.Role = domain.RoleAdmin
	app.Use(injectAccount(admin))
	app.Put("/admin/deposits/:id", h.SettleDeposit)
	app.Put("/admin/reward-policy", h.UpdateRewardPolicy)
	return app
}

func putJSON(t *testing.T, app *fiber.App, path string, body any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPut, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	res, err := app.Test(req)
	require.NoError(t, err)
	return res
}

func TestSettleDepositApprove(t *testing.T) {
	txID := uuid.New()
	ledger := &fakeTxReader{settled: &domain.Transaction{ID: txID, Status: domain.TxApproved}}
	app := newAdminApp(ledger, &fakePolicyWriter{})

	res := putJSON(t, app, "/admin/deposits/"+txID.String(), SettleDepositRequest{Action: "approve"})
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, txID, ledger.gotTxID)
	assert.Equal(t, domain.TxApproved, ledger.gotStatus)
}

func TestSettleDepositReject(t *testing.T) {
	txID := uuid.New()
	ledger := &fakeTxReader{settled: &domain.Transaction{ID: txID, Status: domain.TxRejected}}
	app := newAdminApp(ledger, &fakePolicyWriter{})

	res := putJSON(t, app, "/admin/deposits/"+txID.String(), SettleDepositRequest{Action: "reject"})
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, domain.TxRejected, ledger.gotStatus)
}

func TestSettleDepositBadAction(t *testing.T) {
	ledger := &fakeTxReader{}
	app := newAdminApp(ledger, &fakePolicyWriter{})

	res := putJSON(t, app, "/admin/deposits/"+uuid.NewString(), SettleDepositRequest{Action: "maybe"})
	require.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Equal(t, "invalid_action", decodeError(t, res))
	assert.Equal(t, uuid.Nil, ledger.gotTxID)
}

func TestUpdateRewardPolicy(t *testing.T) {
	settings := &fakePolicyWriter{}
	app := newAdminApp(&fakeTxReader{}, settings)

	res := putJSON(t, app, "/admin/reward-policy", RewardPolicyRequest{Threshold: "25.00", Amount: "2.50"})
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, 1, settings.calls)
	assert.True(t, settings.threshold.Equal(decimal.RequireFromString("25.00")))
	assert.True(t, settings.amount.Equal(decimal.RequireFromString("2.50")))
}

func TestUpdateRewardPolicyRejectsNegative(t *testing.T) {
	settings := &fakePolicyWriter{}
	app := newAdminApp(&fakeTxReader{}, settings)

	res := putJSON(t, app, "/admin/reward-policy", RewardPolicyRequest{Threshold: "-5", Amount: "1.00"})
	require.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Equal(t, 0, settings.calls)
}
