package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookon-app/bookon/internal/api/dto"
	"github.com/bookon-app/bookon/internal/model"
	"github.com/bookon-app/bookon/internal/model/refund"
	"github.com/bookon-app/bookon/internal/model/wallet"
)

type fakeLedger struct {
	balance model.Amount
	credits []wallet.Credit
	refunds []refund.Transaction
	err     error
}

func (f *fakeLedger) WalletBalance(_ context.Context, _ string) (model.Amount, error) {
	return f.balance, f.err
}

func (f *fakeLedger) ListCreditsByParent(_ context.Context, _ string,
) ([]wallet.Credit, error) {
	return f.credits, f.err
}

func (f *fakeLedger) ListRefundsByParent(_ context.Context, _ string,
) ([]refund.Transaction, error) {
	return f.refunds, f.err
}

func TestWalletHandler_GetWallet(t *testing.T) {
	tests := []struct {
		name        string
		ledger      *fakeLedger
		parentID    string
		wantStatus  int
		wantBalance json.Number
	}{
		{
			"positive balance",
			&fakeLedger{balance: model.FromPence(1850)},
			"p-1", http.StatusOK, "18.50",
		},
		{
			"empty wallet",
			&fakeLedger{},
			"p-1", http.StatusOK, "0.00",
		},
		{
			"no auth context",
			&fakeLedger{},
			"", http.StatusUnauthorized, "",
		},
		{
			"storage failure",
			&fakeLedger{err: errors.New("boom")},
			"p-1", http.StatusInternalServerError, "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewWalletHandler(tt.ledger, slog.Default())

			req := httptest.NewRequest(http.MethodGet, "/api/parent/wallet", nil)
			if tt.parentID != "" {
				req = withParent(req, tt.parentID)
			}
			w := httptest.NewRecorder()
			h.GetWallet(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusOK {
				var resp dto.WalletResponse
				require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
				assert.Equal(t, tt.wantBalance, resp.Balance)
			}
		})
	}
}

func TestWalletHandler_GetCredits(t *testing.T) {
	t.Run("no credits", func(t *testing.T) {
		h := NewWalletHandler(&fakeLedger{}, slog.Default())

		req := withParent(
			httptest.NewRequest(http.MethodGet, "/api/parent/wallet/credits", nil), "p-1")
		w := httptest.NewRecorder()
		h.GetCredits(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("active credit", func(t *testing.T) {
		expires := time.Date(2027, 5, 8, 10, 0, 0, 0, time.UTC)
		h := NewWalletHandler(&fakeLedger{credits: []wallet.Credit{{
			ID:        "cr-1",
			ParentID:  "p-1",
			BookingID: "b-1",
			Amount:    model.FromPence(1800),
			ExpiresAt: expires,
			Source:    wallet.SourceCancellation,
			Status:    wallet.StatusActive,
		}}}, slog.Default())

		req := withParent(
			httptest.NewRequest(http.MethodGet, "/api/parent/wallet/credits", nil), "p-1")
		w := httptest.NewRecorder()
		h.GetCredits(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		var resp []dto.CreditResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		require.Len(t, resp, 1)
		assert.Equal(t, json.Number("18.00"), resp[0].Amount)
		assert.Equal(t, "cancellation", resp[0].Source)
		assert.True(t, expires.Equal(resp[0].ExpiresAt))
	})
}

func TestWalletHandler_GetRefunds(t *testing.T) {
	t.Run("no refunds", func(t *testing.T) {
		h := NewWalletHandler(&fakeLedger{}, slog.Default())

		req := withParent(
			httptest.NewRequest(http.MethodGet, "/api/parent/refunds", nil), "p-1")
		w := httptest.NewRecorder()
		h.GetRefunds(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("processed refund", func(t *testing.T) {
		h := NewWalletHandler(&fakeLedger{refunds: []refund.Transaction{{
			ID:        "rf-1",
			BookingID: "b-1",
			Method:    "card",
			Reason:    refund.ReasonCancellation,
			Status:    refund.StatusPending,
			Amount:    model.FromPence(1800),
			Fee:       model.FromPence(200),
		}}}, slog.Default())

		req := withParent(
			httptest.NewRequest(http.MethodGet, "/api/parent/refunds", nil), "p-1")
		w := httptest.NewRecorder()
		h.GetRefunds(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		var resp []dto.RefundResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		require.Len(t, resp, 1)
		assert.Equal(t, json.Number("18.00"), resp[0].Amount)
		assert.Equal(t, json.Number("2.00"), resp[0].Fee)
		assert.Equal(t, "cancellation", resp[0].Reason)
	})
}
