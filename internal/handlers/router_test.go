package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"campuscoin/internal/auth"
	"campuscoin/internal/store"
)

func serveWithAuth(t *testing.T, routes http.Handler, method, target, userID string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	if userID != "" {
		token, err := auth.GenerateToken("secret", userID, time.Minute)
		if err != nil {
			t.Fatalf("generate token: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	routes.ServeHTTP(rr, req)
	return rr
}

func TestRoutesAccessControl(t *testing.T) {
	routes := newTestHandler(Deps{
		Admin: stubAdminStore{
			isAdminFn: func(_ context.Context, userID string) (bool, error) {
				return userID == "admin-1", nil
			},
		},
		Wallets: stubWalletStore{
			totalsFn: func(context.Context) (store.WalletTotals, error) {
				return store.WalletTotals{}, nil
			},
		},
	}).Routes()

	cases := []struct {
		name   string
		method string
		target string
		userID string
		want   int
	}{
		{name: "health is public", method: http.MethodGet, target: "/health", want: http.StatusOK},
		{name: "metrics is public", method: http.MethodGet, target: "/metrics", want: http.StatusOK},
		{name: "wallet needs token", method: http.MethodGet, target: "/wallets/me", want: http.StatusUnauthorized},
		{name: "wallet with token", method: http.MethodGet, target: "/wallets/me", userID: "user-1", want: http.StatusOK},
		{name: "admin stats for student", method: http.MethodGet, target: "/admin/stats", userID: "user-1", want: http.StatusForbidden},
		{name: "admin stats for admin", method: http.MethodGet, target: "/admin/stats", userID: "admin-1", want: http.StatusOK},
		{name: "attendance marking for student", method: http.MethodPost, target: "/attendance/mark", userID: "user-1", want: http.StatusForbidden},
		{name: "own attendance for student", method: http.MethodGet, target: "/attendance/me", userID: "user-1", want: http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := serveWithAuth(t, routes, tc.method, tc.target, tc.userID)
			if rr.Code != tc.want {
				t.Fatalf("expected %d, got %d: %s", tc.want, rr.Code, rr.Body.String())
			}
		})
	}
}
