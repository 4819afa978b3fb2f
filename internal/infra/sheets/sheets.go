// Package sheets exports captured leads to a per-tenant Google
// spreadsheet. Rows are keyed by email: a returning visitor updates
// their existing row instead of appending a duplicate.
package sheets

import (
	"context"
	"fmt"
	"time"

	"github.com/primechat/prime-chatbot-go/internal/domain"

	"go.uber.org/zap"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const (
	readRange  = "Sheet1!A:F"
	dateFormat = "2006-01-02 15:04:05"
)

var headerRow = []any{"Name", "Email", "Phone", "Date", "Summary", "Score"}

// rowsAPI is the thin slice of the Sheets API the exporter needs. The
// real implementation wraps sheets.Service; tests supply an in-memory
// grid.
type rowsAPI interface {
	Read(ctx context.Context, spreadsheetID, rng string) ([][]any, error)
	Update(ctx context.Context, spreadsheetID, rng string, row []any) error
	Append(ctx context.Context, spreadsheetID, rng string, row []any) error
}

// Exporter writes lead rows into the tenant's configured spreadsheet.
// A tenant without a sheet id, or a deployment without service account
// credentials, makes Export a silent no-op.
type Exporter struct {
	api    rowsAPI
	loc    *time.Location
	logger *zap.Logger
}

// NewExporter builds the exporter from service account JSON. An empty
// credential string disables the sink without error, so deployments
// that never use Sheets need no configuration.
func NewExporter(ctx context.Context, serviceAccountJSON string, logger *zap.Logger) (*Exporter, error) {
	e := &Exporter{logger: logger, loc: dubaiOrUTC()}
	if serviceAccountJSON == "" {
		logger.Info("google sheets export disabled, no service account configured")
		return e, nil
	}

	jwtCfg, err := google.JWTConfigFromJSON([]byte(serviceAccountJSON), sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse service account json: %w", err)
	}
	svc, err := sheets.NewService(ctx, option.WithHTTPClient(jwtCfg.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	e.api = &googleRows{svc: svc}
	return e, nil
}

// newWithAPI is the test seam.
func newWithAPI(api rowsAPI, logger *zap.Logger) *Exporter {
	return &Exporter{api: api, loc: dubaiOrUTC(), logger: logger}
}

func dubaiOrUTC() *time.Location {
	loc, err := time.LoadLocation("Asia/Dubai")
	if err != nil {
		return time.UTC
	}
	return loc
}

// Export upserts one lead row. The header is written on first use, the
// email column is the match key, and exporting the same lead twice
// leaves exactly one row behind.
func (e *Exporter) Export(ctx context.Context, company *domain.Company, n domain.LeadNotification) error {
	if e.api == nil || company.GoogleSheetID == "" {
		return nil
	}

	rows, err := e.api.Read(ctx, company.GoogleSheetID, readRange)
	if err != nil {
		return fmt.Errorf("read sheet: %w", err)
	}

	if len(rows) == 0 {
		if err := e.api.Append(ctx, company.GoogleSheetID, readRange, headerRow); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}

	row := []any{
		n.Profile.Name,
		n.Profile.Email,
		n.Profile.Phone,
		time.Now().In(e.loc).Format(dateFormat),
		n.Summary,
		n.Score,
	}

	for i, existing := range rows {
		if i == 0 {
			continue // header
		}
		if len(existing) > 1 && fmt.Sprint(existing[1]) == n.Profile.Email {
			rng := fmt.Sprintf("Sheet1!A%d:F%d", i+1, i+1)
			if err := e.api.Update(ctx, company.GoogleSheetID, rng, row); err != nil {
				return fmt.Errorf("update row: %w", err)
			}
			e.logger.Debug("sheet row updated",
				zap.String("company_id", company.ID),
				zap.String("email", n.Profile.Email),
			)
			return nil
		}
	}

	if err := e.api.Append(ctx, company.GoogleSheetID, readRange, row); err != nil {
		return fmt.Errorf("append row: %w", err)
	}
	e.logger.Debug("sheet row appended",
		zap.String("company_id", company.ID),
		zap.String("email", n.Profile.Email),
	)
	return nil
}

// googleRows adapts sheets.Service to the rowsAPI seam.
type googleRows struct {
	svc *sheets.Service
}

func (g *googleRows) Read(ctx context.Context, spreadsheetID, rng string) ([][]any, error) {
	resp, err := g.svc.Spreadsheets.Values.Get(spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return resp.Values, nil
}

func (g *googleRows) Update(ctx context.Context, spreadsheetID, rng string, row []any) error {
	_, err := g.svc.Spreadsheets.Values.
		Update(spreadsheetID, rng, &sheets.ValueRange{Values: [][]any{row}}).
		ValueInputOption("RAW").
		Context(ctx).Do()
	return err
}

func (g *googleRows) Append(ctx context.Context, spreadsheetID, rng string, row []any) error {
	_, err := g.svc.Spreadsheets.Values.
		Append(spreadsheetID, rng, &sheets.ValueRange{Values: [][]any{row}}).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	return err
}
