package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"ledger/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Config selects the target spreadsheet and the service account used to
// write to it.
type Config struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

// Ensure interface conformance
var _ sheets.RowWriter = (*Client)(nil)

// New creates a Sheets client authenticated with a service account.
// Inline JSON credentials win over a credentials file.
func New(ctx context.Context, cfg Config) (*Client, error) {
	cred, err := credentialOption(cfg)
	if err != nil {
		return nil, err
	}
	return newClient(ctx, cfg, cred, goption.WithScopes(gsheet.SpreadsheetsScope))
}

func newClient(ctx context.Context, cfg Config, opts ...goption.ClientOption) (*Client, error) {
	id := strings.TrimSpace(cfg.SpreadsheetID)
	if id == "" {
		return nil, errors.New("missing spreadsheet ID")
	}
	name := strings.TrimSpace(cfg.SheetName)
	if name == "" {
		return nil, errors.New("missing sheet name")
	}

	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	slog.DebugContext(ctx, "Google Sheets service created", "spreadsheet_id", id, "sheet", name)
	return &Client{svc: svc, spreadsheetID: id, sheetName: name}, nil
}

func credentialOption(cfg Config) (goption.ClientOption, error) {
	if js := strings.TrimSpace(cfg.CredentialsJSON); js != "" {
		return goption.WithCredentialsJSON([]byte(js)), nil
	}
	path := strings.TrimSpace(cfg.CredentialsFile)
	if path == "" {
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read service account file: %w", err)
	}
	return goption.WithCredentialsJSON(data), nil
}

// HasHeader reports whether A1 of the sheet holds the export header.
func (c *Client) HasHeader(ctx context.Context) (bool, error) {
	if c.svc == nil {
		return false, errors.New("sheets service not initialized")
	}
	rng := fmt.Sprintf("%s!A1:F1", c.sheetName)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return false, fmt.Errorf("read %s: %w", rng, err)
	}
	if len(resp.Values) == 0 || len(resp.Values[0]) == 0 {
		return false, nil
	}
	first := strings.TrimSpace(fmt.Sprint(resp.Values[0][0]))
	return strings.EqualFold(first, fmt.Sprint(sheets.Header[0])), nil
}

// AppendRows appends rows below the existing table and returns the updated
// range.
func (c *Client) AppendRows(ctx context.Context, rows [][]any) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	if len(rows) == 0 {
		return "", nil
	}

	rng := fmt.Sprintf("%s!A:F", c.sheetName)
	vr := &gsheet.ValueRange{Values: rows}
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to sheet %s: %w", c.sheetName, err)
	}
	if resp.Updates == nil {
		return rng, nil
	}
	return resp.Updates.UpdatedRange, nil
}
