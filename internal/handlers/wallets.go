package handlers

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"campuscoin/internal/db"
	"campuscoin/internal/middleware"
	"campuscoin/internal/services"
	"campuscoin/internal/validator"
)

const recentLimit = 10

func (h *Handler) MyWallet(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	wallet, err := h.wallets.GetByUser(r.Context(), userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusNotFound, "not_found")
			return
		}
		respondError(w, http.StatusInternalServerError, "unable to load wallet")
		return
	}
	respondJSON(w, http.StatusOK, wallet)
}

func (h *Handler) MyCoinTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	rows, err := h.ledger.ListCoinByUser(r.Context(), userID, parseInt(r.URL.Query().Get("limit"), 50))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load transactions")
		return
	}
	respondJSON(w, http.StatusOK, rows)
}

func (h *Handler) MyMessTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	rows, err := h.ledger.ListMessByUser(r.Context(), userID, parseInt(r.URL.Query().Get("limit"), 50))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load transactions")
		return
	}
	respondJSON(w, http.StatusOK, rows)
}

func (h *Handler) MyRedemptions(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	rows, err := h.redemptions.ListByUser(r.Context(), userID, parseInt(r.URL.Query().Get("limit"), 50))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load redemptions")
		return
	}
	respondJSON(w, http.StatusOK, rows)
}

type redeemRequest struct {
	Coins          int64  `json:"coins"`
	RedemptionType string `json:"redemption_type"`
	Notes          string `json:"notes"`
}

func (h *Handler) Redeem(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req redeemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	redemption, err := h.redemptionService.RequestRedemption(r.Context(), services.RedemptionRequest{
		UserID: userID,
		Coins:  req.Coins,
		Type:   req.RedemptionType,
		Notes:  validator.Sanitize(req.Notes),
	})
	if err != nil {
		h.respondServiceError(w, r, err, "redemption_failed")
		return
	}
	respondJSON(w, http.StatusCreated, redemption)
}

// UserWallet is visible to the wallet owner and to admins.
func (h *Handler) UserWallet(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	targetID := chi.URLParam(r, "id")
	if targetID != callerID {
		isAdmin, err := h.admin.IsAdmin(r.Context(), callerID)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "unable to verify admin")
			return
		}
		if !isAdmin {
			respondError(w, http.StatusForbidden, "forbidden")
			return
		}
	}
	ctx := r.Context()
	wallet, err := h.wallets.GetByUser(ctx, targetID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || db.IsInvalidText(err) {
			respondError(w, http.StatusNotFound, "not_found")
			return
		}
		respondError(w, http.StatusInternalServerError, "unable to load wallet")
		return
	}
	coinTx, err := h.ledger.ListCoinByUser(ctx, targetID, recentLimit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load transactions")
		return
	}
	messTx, err := h.ledger.ListMessByUser(ctx, targetID, recentLimit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load transactions")
		return
	}
	coinSummary, err := h.ledger.CoinSummary(ctx, targetID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load summary")
		return
	}
	messSummary, err := h.ledger.MessSummary(ctx, targetID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load summary")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"wallet":            wallet,
		"coin_transactions": coinTx,
		"mess_transactions": messTx,
		"coin_summary":      coinSummary,
		"mess_summary":      messSummary,
	})
}
