package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/bookon-app/bookon/internal/api/dto"
	"github.com/bookon-app/bookon/internal/model"
	"github.com/bookon-app/bookon/internal/model/refund"
	"github.com/bookon-app/bookon/internal/model/wallet"
)

type ledgerReader interface {
	WalletBalance(ctx context.Context, parentID string) (model.Amount, error)
	ListCreditsByParent(ctx context.Context, parentID string) ([]wallet.Credit, error)
	ListRefundsByParent(ctx context.Context, parentID string) ([]refund.Transaction, error)
}

type WalletHandler struct {
	ledger ledgerReader
	log    *slog.Logger
}

func NewWalletHandler(ledger ledgerReader, log *slog.Logger) *WalletHandler {
	return &WalletHandler{
		ledger: ledger,
		log:    log,
	}
}

func (h *WalletHandler) GetWallet(w http.ResponseWriter, r *http.Request) {
	parentID, ok := parentIDFromContext(r)
	if !ok {
		http.Error(w, "authentication failed", http.StatusUnauthorized)
		return
	}

	balance, err := h.ledger.WalletBalance(r.Context(), parentID)
	if err != nil {
		h.log.LogAttrs(r.Context(),
			slog.LevelError,
			"failed to get wallet balance",
			slog.Any(model.KeyLoggerError, err),
		)
		http.Error(w, "failed to get wallet balance", http.StatusInternalServerError)
		return
	}

	writeJSON(r.Context(), w, h.log, http.StatusOK,
		dto.WalletResponse{Balance: json.Number(balance.String())})
}

func (h *WalletHandler) GetCredits(w http.ResponseWriter, r *http.Request) {
	parentID, ok := parentIDFromContext(r)
	if !ok {
		http.Error(w, "authentication failed", http.StatusUnauthorized)
		return
	}

	credits, err := h.ledger.ListCreditsByParent(r.Context(), parentID)
	if err != nil {
		h.log.LogAttrs(r.Context(),
			slog.LevelError,
			"failed to list credits",
			slog.Any(model.KeyLoggerError, err),
		)
		http.Error(w, "failed to list credits", http.StatusInternalServerError)
		return
	}
	if len(credits) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := make([]dto.CreditResponse, len(credits))
	for i, c := range credits {
		resp[i] = dto.CreditResponse{
			ID:          c.ID,
			BookingID:   c.BookingID,
			Amount:      json.Number(c.Amount.String()),
			ExpiresAt:   c.ExpiresAt,
			Source:      string(c.Source),
			Status:      string(c.Status),
			Description: c.Description,
		}
	}
	writeJSON(r.Context(), w, h.log, http.StatusOK, resp)
}

func (h *WalletHandler) GetRefunds(w http.ResponseWriter, r *http.Request) {
	parentID, ok := parentIDFromContext(r)
	if !ok {
		http.Error(w, "authentication failed", http.StatusUnauthorized)
		return
	}

	refunds, err := h.ledger.ListRefundsByParent(r.Context(), parentID)
	if err != nil {
		h.log.LogAttrs(r.Context(),
			slog.LevelError,
			"failed to list refunds",
			slog.Any(model.KeyLoggerError, err),
		)
		http.Error(w, "failed to list refunds", http.StatusInternalServerError)
		return
	}
	if len(refunds) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := make([]dto.RefundResponse, len(refunds))
	for i, tr := range refunds {
		resp[i] = dto.RefundResponse{
			ID:        tr.ID,
			BookingID: tr.BookingID,
			Amount:    json.Number(tr.Amount.String()),
			Fee:       json.Number(tr.Fee.String()),
			Method:    tr.Method,
			Reason:    string(tr.Reason),
			Status:    string(tr.Status),
			CreatedAt: tr.CreatedAt,
		}
	}
	writeJSON(r.Context(), w, h.log, http.StatusOK, resp)
}
