package handlers

import (
	"net/http"
	"strings"

	"campuscoin/internal/models"
)

// AdminListUsers lists users with their balances, optionally filtered by role
// and a username, email or name search.
func (h *Handler) AdminListUsers(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	role := query.Get("role")
	if role != "" && role != models.RoleAdmin && role != models.RoleStudent {
		respondError(w, http.StatusBadRequest, "invalid_role")
		return
	}
	rows, err := h.wallets.ListWithUsers(r.Context(), role, strings.TrimSpace(query.Get("search")), parseInt(query.Get("limit"), 100))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load users")
		return
	}
	respondJSON(w, http.StatusOK, rows)
}
