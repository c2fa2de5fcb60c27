// Package export writes the upcoming payment schedule to a Google
// spreadsheet, for sharing with people who live in spreadsheets rather
// than APIs.
package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"tesoreria/internal/core"
	"tesoreria/internal/storage"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// ScheduleWriter persists one snapshot of the schedule, replacing any
// previous snapshot.
type ScheduleWriter interface {
	WriteSchedule(ctx context.Context, rows [][]any) error
}

// Exporter snapshots pending transactions due within a horizon.
type Exporter struct {
	store  storage.Store
	writer ScheduleWriter
}

func NewExporter(store storage.Store, writer ScheduleWriter) *Exporter {
	return &Exporter{store: store, writer: writer}
}

// Export writes the owner's pending transactions due in [from, from+days)
// and returns the number of exported rows.
func (e *Exporter) Export(ctx context.Context, ownerID string, from time.Time, horizonDays int) (int, error) {
	txs, err := e.store.ListTransactionsByOwner(ctx, ownerID)
	if err != nil {
		return 0, fmt.Errorf("list transactions: %w", err)
	}

	from = core.Day(from)
	until := from.AddDate(0, 0, horizonDays)

	var upcoming []core.Transaction
	for _, t := range txs {
		if t.Status != core.TxPending {
			continue
		}
		if t.DueDate.Before(from) || !t.DueDate.Before(until) {
			continue
		}
		upcoming = append(upcoming, t)
	}

	rows := BuildRows(upcoming)
	if err := e.writer.WriteSchedule(ctx, rows); err != nil {
		return 0, fmt.Errorf("write schedule: %w", err)
	}

	slog.InfoContext(ctx, "Schedule exported",
		"owner", ownerID,
		"rows", len(upcoming),
		"from", from.Format("2006-01-02"),
		"until", until.Format("2006-01-02"))
	return len(upcoming), nil
}

// BuildRows converts transactions into spreadsheet rows with a header.
func BuildRows(txs []core.Transaction) [][]any {
	rows := make([][]any, 0, len(txs)+1)
	rows = append(rows, []any{"Due date", "Description", "Type", "Amount", "Category", "Counterparty", "Charge account"})
	for _, t := range txs {
		rows = append(rows, []any{
			t.DueDate.Format("2006-01-02"),
			t.Description,
			string(t.Type),
			t.Amount.Units(),
			t.Category,
			t.CounterpartyID,
			t.ChargeAccountID,
		})
	}
	return rows
}

// GoogleClient writes schedule snapshots to a Google Sheets tab using
// service account credentials.
type GoogleClient struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

var _ ScheduleWriter = (*GoogleClient)(nil)

// NewGoogleClient builds a Sheets client. Credentials come from the
// inline JSON when set, otherwise from the credentials file.
func NewGoogleClient(ctx context.Context, spreadsheetID, sheetName, credentialsFile, credentialsJSON string) (*GoogleClient, error) {
	if strings.TrimSpace(spreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet ID")
	}
	if strings.TrimSpace(sheetName) == "" {
		return nil, errors.New("missing sheet name")
	}

	var creds []byte
	switch {
	case strings.TrimSpace(credentialsJSON) != "":
		creds = []byte(credentialsJSON)
	case strings.TrimSpace(credentialsFile) != "":
		b, err := os.ReadFile(credentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read credentials file: %w", err)
		}
		creds = b
	default:
		return nil, errors.New("missing service account credentials")
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return &GoogleClient{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
	}, nil
}

func (c *GoogleClient) WriteSchedule(ctx context.Context, rows [][]any) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	// Drop the previous snapshot before writing the new one.
	clearRange := fmt.Sprintf("%s!A:G", c.sheetName)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, clearRange, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", clearRange, err)
	}

	writeRange := fmt.Sprintf("%s!A1", c.sheetName)
	vr := &gsheet.ValueRange{Values: rows}
	if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, writeRange, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do(); err != nil {
		return fmt.Errorf("update %s: %w", writeRange, err)
	}
	return nil
}
