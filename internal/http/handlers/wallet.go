package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
)

type redeemRequest struct {
	Code string `json:"code"`
}

func (a *App) WalletBalance(w http.ResponseWriter, r *http.Request) {
	accountID, ok := a.accountID(w, r)
	if !ok {
		return
	}
	balance, err := a.Wallet.GetBalance(r.Context(), accountID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"account_id": accountID, "balance": balance})
}

func (a *App) WalletRedeem(w http.ResponseWriter, r *http.Request) {
	accountID, ok := a.accountID(w, r)
	if !ok {
		return
	}
	var req redeemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Code) == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "code required")
		return
	}
	red, err := a.Redeem.Redeem(r.Context(), req.Code, accountID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"code":        red.Code,
		"points":      red.Points,
		"balance":     red.Balance,
		"redeemed_at": red.At,
	})
}
