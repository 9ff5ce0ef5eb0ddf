package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/sarathi/internal/domain"
	"github.com/iho/sarathi/internal/infrastructure/auth"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Fatalf("expected short unchanged, got %q", got)
	}

	if got := truncate("longerstring", 6); got != "lon..." {
		t.Fatalf("expected lon..., got %q", got)
	}
}

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := printJSON(&buf, struct {
		A int `json:"a"`
	}{A: 1}); err != nil {
		t.Fatalf("printJSON: %v", err)
	}

	expected := "{\n  \"a\": 1\n}\n"
	if buf.String() != expected {
		t.Fatalf("unexpected json output:\n%s", buf.String())
	}

	buf.Reset()
	if err := printJSON(&buf, json.RawMessage(`{"b":2}`)); err != nil {
		t.Fatalf("printJSON raw: %v", err)
	}
	if buf.String() != "{\n  \"b\": 2\n}\n" {
		t.Fatalf("unexpected raw output:\n%s", buf.String())
	}
}

func TestRemitCmdSendsBodyAndKey(t *testing.T) {
	var (
		gotBody map[string]any
		gotKey  string
		gotAuth string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/transactions/remit" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		gotKey = r.Header.Get("Idempotency-Key")
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"transaction":{"id":"txn-1"},"balance":"850"}`))
	}))
	defer srv.Close()

	out, err := execute(t, "--url", srv.URL, "--token", "tok", "remit", "150", "+919876543210", "--request-id", "r-1")
	if err != nil {
		t.Fatalf("remit failed: %v", err)
	}

	if gotKey != "r-1" || gotAuth != "Bearer tok" {
		t.Fatalf("unexpected headers: key=%q auth=%q", gotKey, gotAuth)
	}
	if gotBody["amount"] != float64(150) || gotBody["counterparty"] != "+919876543210" {
		t.Fatalf("unexpected body: %v", gotBody)
	}
	if !strings.Contains(out, `"id": "txn-1"`) {
		t.Fatalf("expected pretty-printed response, got %s", out)
	}
}

func TestLedgerReconcileCmd(t *testing.T) {
	tests := []struct {
		name     string
		response string
		wantErr  bool
		wantOut  string
	}{
		{
			name:     "reconciled",
			response: `{"user_id":"u1","recorded_balance":"900","calculated_balance":"900","difference":"0","is_reconciled":true}`,
			wantOut:  "Reconciliation PASSED for u1",
		},
		{
			name:     "discrepancy",
			response: `{"user_id":"u1","recorded_balance":"900","calculated_balance":"850","difference":"50","is_reconciled":false}`,
			wantErr:  true,
			wantOut:  "Difference: 50",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/api/v1/admin/users/u1/reconcile" {
					t.Errorf("unexpected path %s", r.URL.Path)
				}
				_, _ = w.Write([]byte(tt.response))
			}))
			defer srv.Close()

			out, err := execute(t, "--url", srv.URL, "ledger", "reconcile", "u1")
			if (err != nil) != tt.wantErr {
				t.Fatalf("expected error=%v, got %v", tt.wantErr, err)
			}
			if !strings.Contains(out, tt.wantOut) {
				t.Fatalf("expected %q in output, got %s", tt.wantOut, out)
			}
		})
	}
}

func TestLedgerAuditCmd(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(`{"audit_logs":[{"created_at":"2025-03-01T10:00:00Z","user_id":"ops","action":"escrow.refund","resource_id":"esc-1","status":"success"}]}`))
	}))
	defer srv.Close()

	out, err := execute(t, "--url", srv.URL, "ledger", "audit", "--action", "escrow.refund", "--limit", "5")
	if err != nil {
		t.Fatalf("audit failed: %v", err)
	}
	if gotQuery != "action=escrow.refund&limit=5" {
		t.Fatalf("unexpected query %q", gotQuery)
	}
	if !strings.Contains(out, "escrow.refund") || !strings.Contains(out, "esc-1") {
		t.Fatalf("expected audit row in output, got %s", out)
	}
}

func TestAPIErrorsAreReported(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":"insufficient permissions","message":"unauthorized: admin role required"}`))
	}))
	defer srv.Close()

	_, err := execute(t, "--url", srv.URL, "safesend", "verify", "m-1")
	if err == nil || !strings.Contains(err.Error(), "403 insufficient permissions") {
		t.Fatalf("expected API error, got %v", err)
	}
}

func TestReviewRejectRequiresReason(t *testing.T) {
	_, err := execute(t, "--url", "http://127.0.0.1:1", "safesend", "review", "p-1", "--reject")
	if err == nil || !strings.Contains(err.Error(), "--reason") {
		t.Fatalf("expected reason error, got %v", err)
	}
}

func TestMigrateRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	for _, sub := range []string{"up", "down"} {
		_, err := execute(t, "migrate", sub)
		if err == nil || !strings.Contains(err.Error(), "database URL is required") {
			t.Fatalf("migrate %s: expected missing URL error, got %v", sub, err)
		}
	}
}

func TestTokenCmd(t *testing.T) {
	out, err := execute(t, "token", "--user", "ops-1", "--admin", "--secret", "cli-secret")
	if err != nil {
		t.Fatalf("token failed: %v", err)
	}

	claims, err := auth.NewJWTManager("cli-secret", time.Hour).Verify(strings.TrimSpace(out))
	if err != nil {
		t.Fatalf("issued token does not verify: %v", err)
	}
	if claims.UserID != "ops-1" || !claims.IsAdmin {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

type stubUserCreator struct {
	created *domain.User
	err     error
}

func (s *stubUserCreator) Create(_ context.Context, user *domain.User) error {
	s.created = user
	return s.err
}

type fixedID string

func (f fixedID) Generate() string { return string(f) }

func TestCreateUser(t *testing.T) {
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	repo := &stubUserCreator{}
	user, err := createUser(context.Background(), repo, fixedID("gen-1"), newUserInput{
		Phone:     "98765 43210",
		StateCode: "UP",
		Region:    "IN",
	}, now)
	if err != nil {
		t.Fatalf("createUser: %v", err)
	}
	if user.ID != "gen-1" || user.Phone != "+919876543210" {
		t.Fatalf("unexpected user: %+v", user)
	}
	if !user.OpeningBalance.Equal(domain.DefaultBalance) || !user.CurrentBalance().Equal(domain.DefaultBalance) {
		t.Fatalf("expected default opening balance, got %s", user.OpeningBalance)
	}
	if repo.created != user {
		t.Fatalf("expected user to be persisted")
	}

	user, err = createUser(context.Background(), &stubUserCreator{}, fixedID("x"), newUserInput{
		ID: "u-7", Phone: "+919811111111", Balance: "250.50", Region: "IN",
	}, now)
	if err != nil {
		t.Fatalf("createUser with balance: %v", err)
	}
	if user.ID != "u-7" || !user.OpeningBalance.Equal(decimal.RequireFromString("250.50")) {
		t.Fatalf("unexpected user: %+v", user)
	}

	if _, err := createUser(context.Background(), &stubUserCreator{}, fixedID("x"), newUserInput{
		Phone: "+919811111111", Balance: "-1", Region: "IN",
	}, now); !errors.Is(err, domain.ErrInvalidAmount) {
		t.Fatalf("expected invalid amount, got %v", err)
	}

	if _, err := createUser(context.Background(), &stubUserCreator{}, fixedID("x"), newUserInput{
		Phone: "not-a-phone", Region: "IN",
	}, now); !errors.Is(err, domain.ErrInvalidPhone) {
		t.Fatalf("expected invalid phone, got %v", err)
	}
}
