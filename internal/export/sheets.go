// Package export appends committed transactions to a Google Sheets
// statement tab. The sheet is a convenience mirror of the ledger, never
// a source of truth.
package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"saldo/internal/core"
)

type SheetsExporter struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

// Config selects the target spreadsheet and the service account used to
// write to it. Exactly one of ServiceAccountJSON or ServiceAccountFile
// must be set.
type Config struct {
	SpreadsheetID      string
	SheetName          string
	ServiceAccountJSON string
	ServiceAccountFile string
}

func NewSheetsExporter(ctx context.Context, cfg Config) (*SheetsExporter, error) {
	if cfg.SpreadsheetID == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	sheetName := cfg.SheetName
	if sheetName == "" {
		sheetName = "Statement"
	}

	credentials, err := loadCredentials(cfg)
	if err != nil {
		return nil, err
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentials),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return &SheetsExporter{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		sheetName:     sheetName,
	}, nil
}

func loadCredentials(cfg Config) ([]byte, error) {
	switch {
	case cfg.ServiceAccountJSON != "":
		return []byte(cfg.ServiceAccountJSON), nil
	case cfg.ServiceAccountFile != "":
		credentials, err := os.ReadFile(cfg.ServiceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return credentials, nil
	}
	return nil, errors.New("missing service account credentials")
}

// AppendTransaction appends one statement row:
// date, transaction id, account, kind, amount, description.
func (e *SheetsExporter) AppendTransaction(ctx context.Context, t core.Transaction) error {
	row := []interface{}{
		t.CreatedAt.Format("2006-01-02"),
		t.ID,
		t.AccountID,
		string(t.Kind),
		formatAmount(t.Amount.Cents),
		t.Description,
	}

	cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := e.svc.Spreadsheets.Values.Append(
		e.spreadsheetID,
		e.sheetName+"!A:F",
		&gsheet.ValueRange{Values: [][]interface{}{row}},
	).ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(cctx).Do()
	if err != nil {
		return fmt.Errorf("append statement row: %w", err)
	}

	slog.DebugContext(ctx, "Statement row appended",
		"transaction_id", t.ID, "sheet", e.sheetName)
	return nil
}

// formatAmount renders cents as a decimal string, e.g. 1234 -> "12.34".
func formatAmount(cents int64) string {
	neg := cents < 0
	if neg {
		cents = -cents
	}
	s := strconv.FormatInt(cents/100, 10) + "." + fmt.Sprintf("%02d", cents%100)
	if neg {
		return "-" + s
	}
	return s
}
