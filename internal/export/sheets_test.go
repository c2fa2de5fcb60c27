package export

import (
	"context"
	"testing"
	"time"

	"tesoreria/internal/core"
	"tesoreria/internal/storage/memory"
)

type captureWriter struct {
	rows [][]any
}

func (w *captureWriter) WriteSchedule(_ context.Context, rows [][]any) error {
	w.rows = rows
	return nil
}

func TestExportFiltersByStatusAndHorizon(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	mk := func(due time.Time, status core.TransactionStatus, desc string) core.Transaction {
		return core.Transaction{
			OwnerID:     "owner-1",
			CompanyID:   "acme",
			Type:        core.Expense,
			Description: desc,
			Amount:      core.Money{Cents: 50000},
			DueDate:     due,
			Status:      status,
			CreatedAt:   time.Now(),
		}
	}
	seed := []core.Transaction{
		mk(core.NewDate(2025, 1, 10), core.TxPending, "in window"),
		mk(core.NewDate(2025, 1, 20), core.TxSettled, "settled, skipped"),
		mk(core.NewDate(2025, 3, 1), core.TxPending, "past horizon"),
		mk(core.NewDate(2024, 12, 20), core.TxPending, "already due"),
	}
	if _, err := store.CreateTransactions(ctx, seed); err != nil {
		t.Fatalf("seed: %v", err)
	}

	writer := &captureWriter{}
	exporter := NewExporter(store, writer)

	n, err := exporter.Export(ctx, "owner-1", core.NewDate(2025, 1, 1), 30)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if n != 1 {
		t.Fatalf("exported %d rows, want 1", n)
	}
	if len(writer.rows) != 2 {
		t.Fatalf("wrote %d rows including header, want 2", len(writer.rows))
	}
	if writer.rows[1][1] != "in window" {
		t.Errorf("row description = %v, want the in-window transaction", writer.rows[1][1])
	}
}

func TestBuildRows(t *testing.T) {
	rows := BuildRows([]core.Transaction{
		{
			Description:     "Office rent",
			Type:            core.Expense,
			Amount:          core.Money{Cents: 123456},
			DueDate:         core.NewDate(2025, 2, 28),
			Category:        "rent",
			CounterpartyID:  "landlord-7",
			ChargeAccountID: "acct-main",
		},
	})

	if len(rows) != 2 {
		t.Fatalf("got %d rows, want header plus one", len(rows))
	}
	row := rows[1]
	if row[0] != "2025-02-28" || row[1] != "Office rent" || row[2] != "expense" {
		t.Errorf("row = %v, want date, description, type", row)
	}
	if row[3] != 1234.56 {
		t.Errorf("amount = %v, want 1234.56", row[3])
	}
}
