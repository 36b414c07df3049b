// Package sheets mirrors recorded snapshots into a Google Sheets spreadsheet,
// one row per history entry.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"monthlynet/internal/amqp"
	"monthlynet/internal/log"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// DefaultSheetName is the tab rows are appended to.
const DefaultSheetName = "History"

// Header is the expected first row of the tab.
var Header = []any{"Date", "Entry ID", "Net Worth", "Total Assets", "Total Liabilities"}

type Options struct {
	SpreadsheetID string
	SheetName     string
	// CredentialsJSON takes precedence over CredentialsFile.
	CredentialsJSON string
	CredentialsFile string
	Logger          *log.Logger
	// ClientOptions replace the credential options when set.
	ClientOptions []goption.ClientOption
}

// Exporter appends snapshot rows to a spreadsheet.
type Exporter struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheet         string
	logger        *log.Logger
}

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, opts Options) (*Exporter, error) {
	id := strings.TrimSpace(opts.SpreadsheetID)
	if id == "" {
		return nil, errors.New("missing spreadsheet ID")
	}
	sheet := strings.TrimSpace(opts.SheetName)
	if sheet == "" {
		sheet = DefaultSheetName
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.Config{Component: log.ComponentSheets})
	}

	clientOpts := opts.ClientOptions
	if len(clientOpts) == 0 {
		creds, err := credentials(opts)
		if err != nil {
			return nil, err
		}
		clientOpts = []goption.ClientOption{
			goption.WithCredentialsJSON(creds),
			goption.WithScopes(gsheet.SpreadsheetsScope),
		}
	}
	svc, err := gsheet.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &Exporter{
		svc:           svc,
		spreadsheetID: id,
		sheet:         sheet,
		logger:        logger.WithComponent(log.ComponentSheets),
	}, nil
}

func credentials(opts Options) ([]byte, error) {
	switch {
	case strings.TrimSpace(opts.CredentialsJSON) != "":
		return []byte(opts.CredentialsJSON), nil
	case strings.TrimSpace(opts.CredentialsFile) != "":
		data, err := os.ReadFile(opts.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return data, nil
	}
	return nil, errors.New("missing service account credentials")
}

// Row renders a snapshot as spreadsheet cells.
func Row(s amqp.SnapshotRecorded) []any {
	return []any{s.Date, s.EntryID, s.NetWorth, s.TotalAssets, s.TotalLiabilities}
}

// ExportSnapshot appends s below the last row of the tab and returns the
// updated range.
func (e *Exporter) ExportSnapshot(ctx context.Context, s amqp.SnapshotRecorded) (string, error) {
	if s.EntryID == "" {
		return "", errors.New("snapshot without entry id")
	}
	rng := fmt.Sprintf("%s!A:E", e.sheet)
	vr := &gsheet.ValueRange{Values: [][]any{Row(s)}}
	resp, err := e.svc.Spreadsheets.Values.Append(e.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("append to %s: %w", e.sheet, err)
	}

	ref := rng
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		ref = resp.Updates.UpdatedRange
	}
	e.logger.InfoContext(ctx, "Snapshot exported",
		log.FieldEntryID, s.EntryID,
		"range", ref)
	return ref, nil
}

// EnsureHeader writes Header to the first row when the tab is empty.
func (e *Exporter) EnsureHeader(ctx context.Context) error {
	rng := fmt.Sprintf("%s!A1:E1", e.sheet)
	resp, err := e.svc.Spreadsheets.Values.Get(e.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read header of %s: %w", e.sheet, err)
	}
	if len(resp.Values) > 0 && len(resp.Values[0]) > 0 {
		return nil
	}
	_, err = e.svc.Spreadsheets.Values.Update(e.spreadsheetID, rng, &gsheet.ValueRange{Values: [][]any{Header}}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("write header of %s: %w", e.sheet, err)
	}
	e.logger.InfoContext(ctx, "Wrote header row", "sheet", e.sheet)
	return nil
}
