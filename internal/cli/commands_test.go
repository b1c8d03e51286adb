package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ndewijer/Stock-Ledger-Backend/internal/apperrors"
	"github.com/ndewijer/Stock-Ledger-Backend/internal/model"
)

// setupEnv points the CLI at a fresh file database and a static quote provider.
func setupEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DB_PATH", filepath.Join(t.TempDir(), "ledger.db"))
	t.Setenv("QUOTE_PROVIDER", "static")
	t.Setenv("QUOTE_STATIC_PRICES", "ABC=20.00,XYZ=5.50")
	t.Setenv("DEFAULT_CASH", "1000.00")
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)

	err := cmd.Execute()
	return out.String(), err
}

func TestVersionCmd(t *testing.T) {
	out, err := run(t, "version")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if !strings.HasPrefix(out, "ledgerctl ") {
		t.Errorf("Unexpected output %q", out)
	}
}

func TestMigrateCmd(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "migrate")
	if err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	if !strings.HasPrefix(out, "schema version ") {
		t.Errorf("Unexpected output %q", out)
	}
}

func TestOrderFlow(t *testing.T) {
	setupEnv(t)

	// Setup
	out, err := run(t, "account", "create", "--username", "alice")
	if err != nil {
		t.Fatalf("account create failed: %v", err)
	}
	var account model.Account
	if err := json.Unmarshal([]byte(out), &account); err != nil {
		t.Fatalf("Failed to decode account: %v\n%s", err, out)
	}
	if !account.Cash.Equal(account.InitialCash) || account.Cash.String() != "1000" {
		t.Errorf("Expected default deposit 1000, got %s", account.Cash)
	}

	// Execute
	if _, err := run(t, "buy", account.ID, "abc", "10"); err != nil {
		t.Fatalf("buy failed: %v", err)
	}
	out, err = run(t, "sell", account.ID, "ABC", "3")
	if err != nil {
		t.Fatalf("sell failed: %v", err)
	}

	// Assert
	var result model.OrderResult
	//nolint:errcheck // Test assertion - decode failure would cause test to fail anyway
	json.Unmarshal([]byte(out), &result)
	if result.Cash.String() != "860" {
		t.Errorf("Expected cash 860 after sell, got %s", result.Cash)
	}

	out, err = run(t, "portfolio", account.ID)
	if err != nil {
		t.Fatalf("portfolio failed: %v", err)
	}
	var valuation model.Valuation
	//nolint:errcheck // Test assertion - decode failure would cause test to fail anyway
	json.Unmarshal([]byte(out), &valuation)
	if valuation.Total.String() != "1000" {
		t.Errorf("Expected total 1000, got %s", valuation.Total)
	}

	out, err = run(t, "history", account.ID)
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	var history []model.Transaction
	//nolint:errcheck // Test assertion - decode failure would cause test to fail anyway
	json.Unmarshal([]byte(out), &history)
	if len(history) != 2 || history[0].Shares != 10 || history[1].Shares != -3 {
		t.Errorf("Unexpected history %+v", history)
	}

	if _, err := run(t, "reconcile"); err != nil {
		t.Errorf("Expected consistent ledger, got %v", err)
	}
}

func TestOrderCmd_Errors(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "account", "create", "--username", "bob", "--cash", "10")
	if err != nil {
		t.Fatalf("account create failed: %v", err)
	}
	var account model.Account
	//nolint:errcheck // Test assertion - decode failure would cause test to fail anyway
	json.Unmarshal([]byte(out), &account)

	tests := []struct {
		name    string
		args    []string
		wantErr error
	}{
		{name: "fractional shares", args: []string{"buy", account.ID, "ABC", "1.5"}, wantErr: apperrors.ErrInvalidOrder},
		{name: "unknown symbol", args: []string{"buy", account.ID, "NOPE", "1"}, wantErr: apperrors.ErrUnknownSymbol},
		{name: "too expensive", args: []string{"buy", account.ID, "ABC", "1"}, wantErr: apperrors.ErrInsufficientFunds},
		{name: "nothing to sell", args: []string{"sell", account.ID, "XYZ", "1"}, wantErr: apperrors.ErrInsufficientShares},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.args...)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestQuoteCmd(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "quote", "xyz")
	if err != nil {
		t.Fatalf("quote failed: %v", err)
	}

	var q model.Quote
	//nolint:errcheck // Test assertion - decode failure would cause test to fail anyway
	json.Unmarshal([]byte(out), &q)
	if q.Symbol != "XYZ" || q.Price.String() != "5.5" {
		t.Errorf("Unexpected quote %+v", q)
	}
}

func TestAccountCreateCmd_RequiresUsername(t *testing.T) {
	setupEnv(t)

	if _, err := run(t, "account", "create"); err == nil {
		t.Error("Expected error without --username")
	}
}
