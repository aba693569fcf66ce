package payments

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/derrickappah/smm-panel-sub007/internal/core/domain"
	"github.com/derrickappah/smm-panel-sub007/internal/core/gateway"
)

type stubGateway struct {
	name       string
	outcome    gateway.Outcome
	amount     decimal.Decimal
	payerEmail string
	err        error
}

func (s *stubGateway) Name() string { return s.name }

func (s *stubGateway) Verify(context.Context, string) (*gateway.Verification, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &gateway.Verification{
		Outcome:       s.outcome,
		Amount:        s.amount,
		Currency:      "NGN",
		CustomerEmail: s.payerEmail,
	}, nil
}

// memLedger reproduces the storage ledger's idempotency semantics in memory.
type memLedger struct {
	mu      sync.Mutex
	balance decimal.Decimal
	byRef   map[string]*domain.Transaction
	byID    map[uuid.UUID]*domain.Transaction
}

func newMemLedger() *memLedger {
	return &memLedger{
		byRef: make(map[string]*domain.Transaction),
		byID:  make(map[uuid.UUID]*domain.Transaction),
	}
}

func (m *memLedger) RecordDeposit(_ context.Context, accountID uuid.UUID, amount decimal.Decimal, provider, ref string) (*domain.Transaction, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := provider + "|" + ref
	if tx, ok := m.byRef[key]; ok {
		return tx, true, nil
	}
	tx := &domain.Transaction{
		ID:          uuid.New(),
		AccountID:   accountID,
		Type:        domain.TxDeposit,
		Amount:      amount,
		Status:      domain.TxPending,
		Provider:    provider,
		ExternalRef: ref,
	}
	m.byRef[key] = tx
	m.byID[tx.ID] = tx
	return tx, false, nil
}

func (m *memLedger) Settle(_ context.Context, txID uuid.UUID, outcome domain.TransactionStatus) (*domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, ok := m.byID[txID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if tx.Status.Terminal() {
		return tx, nil // idempotent no-op
	}
	tx.Status = outcome
	if outcome == domain.TxApproved {
		m.balance = m.balance.Add(tx.Amount)
	}
	return tx, nil
}

func (m *memLedger) FindByExternalRef(_ context.Context, provider, ref string) (*domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, ok := m.byRef[provider+"|"+ref]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return tx, nil
}

func payerAccount() *domain.Account {
	return &domain.Account{ID: uuid.New(), Email: "payer@example.com"}
}

func TestVerifyDepositCreditsOnce(t *testing.T) {
	gw := &stubGateway{name: "paystack", outcome: gateway.OutcomeSuccess, amount: decimal.RequireFromString("50.00")}
	ledger := newMemLedger()
	svc := NewService(gateway.NewRegistry(gw), ledger)
	account := payerAccount()

	// same reference verified twice: balance 50, not 100
	for i := 0; i < 2; i++ {
		res, err := svc.VerifyDeposit(context.Background(), "paystack", account, "ref-1")
		require.NoError(t, err)
		assert.Equal(t, gateway.OutcomeSuccess, res.Status)
		assert.Equal(t, domain.TxApproved, res.Transaction.Status)
	}
	assert.True(t, ledger.balance.Equal(decimal.RequireFromString("50.00")))
	assert.Len(t, ledger.byRef, 1)
}

func TestVerifyDepositFailedNoBalanceChange(t *testing.T) {
	gw := &stubGateway{name: "korapay", outcome: gateway.OutcomeFailed, amount: decimal.RequireFromString("25.00")}
	ledger := newMemLedger()
	svc := NewService(gateway.NewRegistry(gw), ledger)

	res, err := svc.VerifyDeposit(context.Background(), "korapay", payerAccount(), "ref-9")
	require.NoError(t, err)
	assert.Equal(t, gateway.OutcomeFailed, res.Status)
	assert.Equal(t, domain.TxRejected, res.Transaction.Status)
	assert.True(t, ledger.balance.IsZero())
}

func TestVerifyDepositPendingRecordedUnsettled(t *testing.T) {
	gw := &stubGateway{name: "paystack", outcome: gateway.OutcomePending, amount: decimal.RequireFromString("10.00")}
	ledger := newMemLedger()
	svc := NewService(gateway.NewRegistry(gw), ledger)

	res, err := svc.VerifyDeposit(context.Background(), "paystack", payerAccount(), "ref-p")
	require.NoError(t, err)
	assert.Equal(t, gateway.OutcomePending, res.Status)
	assert.Equal(t, domain.TxPending, res.Transaction.Status)
	assert.True(t, ledger.balance.IsZero())
}

func TestVerifyDepositTransientNoMutation(t *testing.T) {
	gw := &stubGateway{name: "paystack", err: gateway.ErrTransient}
	ledger := newMemLedger()
	svc := NewService(gateway.NewRegistry(gw), ledger)

	_, err := svc.VerifyDeposit(context.Background(), "paystack", payerAccount(), "ref-t")
	assert.True(t, errors.Is(err, gateway.ErrTransient))
	assert.Empty(t, ledger.byRef)
}

func TestVerifyDepositUnknownProvider(t *testing.T) {
	svc := NewService(gateway.NewRegistry(), newMemLedger())

	_, err := svc.VerifyDeposit(context.Background(), "stripe", payerAccount(), "r")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestWebhookSettlesPendingDeposit(t *testing.T) {
	gw := &stubGateway{name: "paystack", outcome: gateway.OutcomePending, amount: decimal.RequireFromString("50.00")}
	ledger := newMemLedger()
	svc := NewService(gateway.NewRegistry(gw), ledger)

	// client verify while the charge is still pending
	_, err := svc.VerifyDeposit(context.Background(), "paystack", payerAccount(), "ref-1")
	require.NoError(t, err)

	// webhook arrives after the charge succeeds; delivered three times
	gw.outcome = gateway.OutcomeSuccess
	for i := 0; i < 3; i++ {
		require.NoError(t, svc.HandleWebhook(context.Background(), "paystack", "ref-1"))
	}
	assert.True(t, ledger.balance.Equal(decimal.RequireFromString("50.00")),
		"repeated webhook delivery credits exactly once")
}

func TestWebhookUnknownReferenceIgnored(t *testing.T) {
	gw := &stubGateway{name: "paystack", outcome: gateway.OutcomeSuccess, amount: decimal.RequireFromString("50.00")}
	ledger := newMemLedger()
	svc := NewService(gateway.NewRegistry(gw), ledger)

	require.NoError(t, svc.HandleWebhook(context.Background(), "paystack", "never-seen"))
	assert.True(t, ledger.balance.IsZero())
}

func TestWebhookNeverTrustsPayloadOutcome(t *testing.T) {
	// provider still reports pending even though a webhook claimed success
	gw := &stubGateway{name: "paystack", outcome: gateway.OutcomePending, amount: decimal.RequireFromString("50.00")}
	ledger := newMemLedger()
	svc := NewService(gateway.NewRegistry(gw), ledger)
	_, err := svc.VerifyDeposit(context.Background(), "paystack", payerAccount(), "ref-1")
	require.NoError(t, err)

	require.NoError(t, svc.HandleWebhook(context.Background(), "paystack", "ref-1"))
	assert.True(t, ledger.balance.IsZero(), "settlement waits for the provider to confirm")
}

func TestVerifyDepositRejectsForeignReference(t *testing.T) {
	gw := &stubGateway{
		name:       "paystack",
		outcome:    gateway.OutcomeSuccess,
		amount:     decimal.RequireFromString("50.00"),
		payerEmail: "victim@example.com",
	}
	ledger := newMemLedger()
	svc := NewService(gateway.NewRegistry(gw), ledger)

	thief := &domain.Account{ID: uuid.New(), Email: "thief@example.com"}
	_, err := svc.VerifyDeposit(context.Background(), "paystack", thief, "ref-leaked")
	assert.True(t, errors.Is(err, domain.ErrForeignReference))
	assert.Empty(t, ledger.byRef, "a mismatched payer must not touch the ledger")
	assert.True(t, ledger.balance.IsZero())

	// the real payer still collects; email match is case-insensitive
	victim := &domain.Account{ID: uuid.New(), Email: "Victim@Example.com"}
	res, err := svc.VerifyDeposit(context.Background(), "paystack", victim, "ref-leaked")
	require.NoError(t, err)
	assert.Equal(t, gateway.OutcomeSuccess, res.Status)
	assert.True(t, ledger.balance.Equal(decimal.RequireFromString("50.00")))
	assert.Equal(t, victim.ID, res.Transaction.AccountID)
}
