package handler

import (
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
	"github.com/derrickappah/smm-panel-sub007/internal/core/reward"
)

type fakeRewardEngine struct {
	status   *reward.Status
	claim    *domain.RewardClaim
	claimErr error
}

func (f *fakeRewardEngine) Check(_ context.Context, _ uuid.UUID) (*reward.Status, error) {
	return f.status, nil
}

func (f *fakeRewardEngine) Claim(_ context.Context, _ uuid.UUID, _, _ string) (*domain.RewardClaim, error) {
	if f.claimErr != nil {
		return nil, f.claimErr
	}
	return f.claim, nil
}

func newRewardApp(engine RewardEngine) *fiber.App {
	app := fiber.New()
	h := &RewardHandler{Engine: engine}
	app.Use(injectAccount(testAccount()))
	app.Post("/rewards/check-eligibility", h.Check)
	app.Post("/rewards/claim", h.Claim)
	return app
}

func TestRewardCheck(t *testing.T) {
	app := newRewardApp(&fakeRewardEngine{status: &reward.Status{
		State:    reward.StateEligible,
		Required: decimal.RequireFromString("15.00"),
		Current:  decimal.RequireFromString("20.00"),
	}})

	req := httptest.NewRequest(http.MethodPost, "/rewards/check-eligibility", nil)
	res, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)

	var body struct {
		Status string `json:"status"`
	}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	assert.Equal(t, "eligible", body.Status)
}

func TestRewardClaim(t *testing.T) {
	app := newRewardApp(&fakeRewardEngine{claim: &domain.RewardClaim{
		ID:           uuid.New(),
		RewardAmount: decimal.RequireFromString("1.00"),
	}})

	res := postJSON(t, app, "/rewards/claim", ClaimRewardRequest{Link: "https://instagram.com/me", RewardType: "followers"})
	require.Equal(t, http.StatusCreated, res.StatusCode)

	var body struct {
		Amount string `json:"amount"`
		Status string `json:"status"`
	}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	assert.Equal(t, "1", body.Amount)
	assert.Equal(t, "credited", body.Status)
}

func TestRewardClaimErrors(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"already claimed", domain.ErrAlreadyClaimed, http.StatusBadRequest, "already_claimed"},
		{"not eligible", domain.ErrNotEligible, http.StatusBadRequest, "not_eligible"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := newRewardApp(&fakeRewardEngine{claimErr: tc.err})
			res := postJSON(t, app, "/rewards/claim", ClaimRewardRequest{Link: "https://instagram.com/me"})
			require.Equal(t, tc.wantStatus, res.StatusCode)
			assert.Equal(t, tc.wantCode, decodeError(t, res))
		})
	}
}

func TestRewardClaimRequiresLink(t *testing.T) {
	app := newRewardApp(&fakeRewardEngine{})
	res := postJSON(t, app, "/rewards/claim", ClaimRewardRequest{})
	require.Equal(t, http.StatusBadRequest, res.StatusCode)
}
