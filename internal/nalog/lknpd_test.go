package nalog

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vzubenko/npd-receipt-backend/internal/receipt"
)

// newFakeAPI spins up a fake lknpd server. handler serves everything except
// /auth/token, which always issues "tok-1".
func newFakeAPI(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *int) {
	t.Helper()
	tokenCalls := new(int)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/token" {
			*tokenCalls++
			var req tokenRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Errorf("token request decode: %v", err)
			}
			if req.RefreshToken != "refresh-1" {
				t.Errorf("refresh token: got %q", req.RefreshToken)
			}
			json.NewEncoder(w).Encode(tokenResponse{
				Token:         "tok-1",
				TokenExpireIn: time.Now().Add(time.Hour).Format(time.RFC3339),
			})
			return
		}
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv, tokenCalls
}

func TestClient_RegisterIncome(t *testing.T) {
	srv, tokenCalls := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/income" || r.Method != http.MethodPost {
			t.Errorf("unexpected call: %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok-1" {
			t.Errorf("authorization: got %q", got)
		}
		var req incomeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("income request decode: %v", err)
		}
		if !req.TotalAmount.Equal(decimal.RequireFromString("250.50")) {
			t.Errorf("total amount: got %s", req.TotalAmount)
		}
		if len(req.Services) != 1 || req.Services[0].Name != "My App" || req.Services[0].Quantity != 1 {
			t.Errorf("services: got %+v", req.Services)
		}
		if req.OperationUUID == "" {
			t.Error("operation uuid should be set")
		}
		json.NewEncoder(w).Encode(incomeResponse{ApprovedReceiptUUID: "20abc"})
	})

	c := NewClient(Config{BaseURL: srv.URL, RefreshToken: "refresh-1"})
	id, err := c.RegisterIncome(context.Background(), receipt.Declaration{
		Name:     "My App",
		Amount:   decimal.RequireFromString("250.50"),
		Quantity: 1,
	})
	if err != nil {
		t.Fatalf("register income: %v", err)
	}
	if id != "20abc" {
		t.Errorf("receipt id: got %q", id)
	}
	if *tokenCalls != 1 {
		t.Errorf("token exchanges: got %d, want 1", *tokenCalls)
	}
}

func TestClient_TokenIsCachedAcrossCalls(t *testing.T) {
	srv, tokenCalls := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(UserInfo{ID: 7, DisplayName: "Иванов", INN: "123456789012"})
	})

	c := NewClient(Config{BaseURL: srv.URL, RefreshToken: "refresh-1"})
	for i := 0; i < 3; i++ {
		if _, err := c.GetUserInfo(context.Background()); err != nil {
			t.Fatalf("get user info: %v", err)
		}
	}
	if *tokenCalls != 1 {
		t.Errorf("token exchanges: got %d, want 1 (token should be cached)", *tokenCalls)
	}
}

func TestClient_UnauthorizedIsSentinel(t *testing.T) {
	srv, _ := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	c := NewClient(Config{BaseURL: srv.URL, RefreshToken: "refresh-1"})
	_, err := c.GetUserInfo(context.Background())
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestClient_APIErrorMessageSurfaces(t *testing.T) {
	srv, _ := newFakeAPI(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(apiError{Code: "validation.error", Message: "сумма превышает лимит"})
	})

	c := NewClient(Config{BaseURL: srv.URL, RefreshToken: "refresh-1"})
	_, err := c.RegisterIncome(context.Background(), receipt.Declaration{
		Name: "My App", Amount: decimal.NewFromInt(1), Quantity: 1,
	})
	if err == nil {
		t.Fatal("expected an error")
	}
	if want := "сумма превышает лимит"; !strings.Contains(err.Error(), want) {
		t.Errorf("error %q should contain %q", err, want)
	}
}
