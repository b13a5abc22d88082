package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"gitlab.com/yelinaung/rentbook/internal/logger"
	"gitlab.com/yelinaung/rentbook/internal/models"
	"gitlab.com/yelinaung/rentbook/internal/repository"
)

// Store is the persistence surface the backup engine consumes. The live
// implementation is repository.Store; tests substitute an in-memory fake.
type Store interface {
	ListTenants(ctx context.Context) ([]models.Tenant, error)
	InsertTenant(ctx context.Context, tenant *models.Tenant) error
	DeleteTenant(ctx context.Context, roomNumber string) error
	ListBillsWithDetails(ctx context.Context) ([]models.Bill, error)
	SaveBill(ctx context.Context, bill *models.Bill, details []models.BillDetail) error
	GetPriceSettings(ctx context.Context) (*models.PriceSettings, error)
	SavePriceSettings(ctx context.Context, water, electricity decimal.Decimal) error
	SavePrivacyKeywords(ctx context.Context, keywords []string) error
	ListMeterNameOverrides(ctx context.Context) ([]models.MeterNameOverride, error)
	SaveMeterNameOverride(ctx context.Context, defaultName, customName, meterType, tenantRoomNumber string) error
	ResolveMeterDisplayName(ctx context.Context, defaultName, tenantRoomNumber string) (string, error)
}

var _ Store = (*repository.Store)(nil)

// Stage identifies where an import operation currently is. Failures in
// Reading and Parsing abort the operation; from Validating onward failures
// are per-record.
type Stage string

const (
	StageReading           Stage = "reading"
	StageParsing           Stage = "parsing"
	StageValidating        Stage = "validating"
	StageNormalizing       Stage = "normalizing"
	StageIntegrityChecking Stage = "integrityChecking"
	StageWriting           Stage = "writing"
	StageDone              Stage = "done"
	StageFailed            Stage = "failed"
)

// ImportStats counts what an import actually wrote.
type ImportStats struct {
	TenantsImported      int `json:"tenantsImported"`
	BillsImported        int `json:"billsImported"`
	PricesImported       int `json:"pricesImported"`
	MeterConfigsImported int `json:"meterConfigsImported"`
	ErrorsEncountered    int `json:"errorsEncountered"`
}

// ImportResult summarizes an import: what succeeded, what was skipped, and
// why. Success is true iff no error of a database nature occurred; records
// skipped for validation reasons do not by themselves flip it.
type ImportResult struct {
	Success         bool          `json:"success"`
	Message         string        `json:"message"`
	Stage           Stage         `json:"stage"`
	Stats           ImportStats   `json:"stats"`
	Errors          []ImportError `json:"errors"`
	Warnings        []string      `json:"warnings"`
	OrphanedRecords []string      `json:"orphanedRecords"`
}

func (r *ImportResult) addError(kind ErrorKind, format string, args ...any) {
	r.Errors = append(r.Errors, ImportError{Kind: kind, Message: fmt.Sprintf(format, args...)})
}

func (r *ImportResult) databaseErrors() int {
	n := 0
	for _, e := range r.Errors {
		if e.Kind == ErrorKindDatabase {
			n++
		}
	}
	return n
}

// Importer restores a store from snapshot bytes using a full-replace
// conflict policy. It is not safe for concurrent use against the same
// store; callers serialize import and export operations.
type Importer struct {
	store    Store
	tracer   trace.Tracer
	imported metric.Int64Counter
	skipped  metric.Int64Counter
}

// NewImporter creates an Importer over the given store.
func NewImporter(store Store) *Importer {
	meter := otel.Meter("rentbook/backup")
	imported, _ := meter.Int64Counter("backup.import.records_imported",
		metric.WithDescription("Records written to the store during import"))
	skipped, _ := meter.Int64Counter("backup.import.records_skipped",
		metric.WithDescription("Records skipped during import"))

	return &Importer{
		store:    store,
		tracer:   otel.Tracer("rentbook/backup"),
		imported: imported,
		skipped:  skipped,
	}
}

// Import restores the store from raw snapshot bytes. Malformed bytes abort
// the whole operation; once parsing succeeds, failures are isolated to
// individual records and collected into the result.
func (i *Importer) Import(ctx context.Context, data []byte) *ImportResult {
	ctx, span := i.tracer.Start(ctx, "backup.import")
	defer span.End()

	result := &ImportResult{Success: true, Stage: StageReading}

	if len(data) == 0 {
		return i.fail(result, "snapshot is empty")
	}

	// Parsing: the only stage after reading where the operation as a whole
	// can fail.
	result.Stage = StageParsing
	var raw rawSnapshot
	if err := json.Unmarshal(data, &raw); err != nil {
		return i.fail(result, "snapshot is not valid JSON: %v", err)
	}

	result.Stage = StageValidating
	snapshotCheck := ValidateSnapshot(&raw)
	result.Warnings = append(result.Warnings, snapshotCheck.Warnings...)
	if !snapshotCheck.IsValid {
		for _, msg := range snapshotCheck.Errors {
			result.addError(ErrorKindDataValidation, "%s", msg)
		}
		result.Stats.ErrorsEncountered = len(result.Errors)
		result.Message = "snapshot rejected: required sections are missing"
		result.Stage = StageDone
		return result
	}

	result.Stage = StageNormalizing
	normalized, problems := normalize(&raw)
	for _, p := range problems {
		result.addError(ErrorKindUnknown, "%s", p)
	}

	tenants, bills, configs := i.validateRecords(normalized, result)

	result.Stage = StageIntegrityChecking
	i.checkIntegrity(tenants, bills, configs, result)

	result.Stage = StageWriting
	i.write(ctx, normalized, tenants, bills, configs, result)

	result.Stage = StageDone
	result.Stats.ErrorsEncountered = len(result.Errors)
	result.Success = result.databaseErrors() == 0
	result.Message = i.summarize(result)

	span.SetAttributes(
		attribute.Int("backup.import.tenants", result.Stats.TenantsImported),
		attribute.Int("backup.import.bills", result.Stats.BillsImported),
		attribute.Int("backup.import.errors", result.Stats.ErrorsEncountered),
	)

	logger.Log.Info().
		Bool("success", result.Success).
		Int("tenants", result.Stats.TenantsImported).
		Int("bills", result.Stats.BillsImported).
		Int("meterConfigs", result.Stats.MeterConfigsImported).
		Int("errors", result.Stats.ErrorsEncountered).
		Msg("Import finished")

	return result
}

// ImportAutoBackup restores from the fixed auto-backup path. An unreadable
// file is the one failure that propagates as an error instead of a result.
func (i *Importer) ImportAutoBackup(ctx context.Context, path string) (*ImportResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read auto backup: %w", err)
	}
	return i.Import(ctx, data), nil
}

func (i *Importer) fail(result *ImportResult, format string, args ...any) *ImportResult {
	result.addError(ErrorKindFileFormat, format, args...)
	result.Stats.ErrorsEncountered = len(result.Errors)
	result.Success = false
	result.Stage = StageFailed
	result.Message = "import aborted: " + result.Errors[0].Message
	return result
}

// validateRecords filters each collection down to the records that pass
// validation, appending errors and warnings for the rest.
func (i *Importer) validateRecords(normalized *normalizedSnapshot, result *ImportResult) ([]rawTenant, []rawBill, []rawMeterConfig) {
	var tenants []rawTenant
	for idx := range normalized.Tenants {
		check := ValidateTenant(&normalized.Tenants[idx])
		result.Warnings = append(result.Warnings, check.Warnings...)
		if !check.IsValid {
			for _, msg := range check.Errors {
				result.addError(ErrorKindDataValidation, "%s", msg)
			}
			continue
		}
		tenants = append(tenants, normalized.Tenants[idx])
	}

	var bills []rawBill
	for idx := range normalized.Bills {
		check := ValidateBill(&normalized.Bills[idx])
		result.Warnings = append(result.Warnings, check.Warnings...)
		if !check.IsValid {
			for _, msg := range check.Errors {
				result.addError(ErrorKindDataValidation, "%s", msg)
			}
			continue
		}
		bills = append(bills, normalized.Bills[idx])
	}

	var configs []rawMeterConfig
	for idx := range normalized.MeterConfigs {
		check := ValidateMeterConfig(&normalized.MeterConfigs[idx])
		result.Warnings = append(result.Warnings, check.Warnings...)
		if !check.IsValid {
			for _, msg := range check.Errors {
				result.addError(ErrorKindDataValidation, "%s", msg)
			}
			continue
		}
		configs = append(configs, normalized.MeterConfigs[idx])
	}

	if normalized.Prices != nil {
		check := ValidatePrices(normalized.Prices)
		result.Warnings = append(result.Warnings, check.Warnings...)
		if !check.IsValid {
			for _, msg := range check.Errors {
				result.addError(ErrorKindDataValidation, "%s", msg)
			}
			normalized.Prices = nil
		}
	}

	return tenants, bills, configs
}

// checkIntegrity reports bills and overrides whose room numbers do not
// appear among the imported tenants. Orphans are reported but still
// imported: tenant deletion semantics make them invisible, not invalid.
func (i *Importer) checkIntegrity(tenants []rawTenant, bills []rawBill, configs []rawMeterConfig, result *ImportResult) {
	rooms := make(map[string]bool, len(tenants))
	for idx := range tenants {
		rooms[tenants[idx].roomNumber()] = true
	}

	for idx := range bills {
		room := bills[idx].roomNumber()
		if !rooms[room] {
			result.OrphanedRecords = append(result.OrphanedRecords,
				fmt.Sprintf("bill %s/%s references unknown tenant", room, strValue(bills[idx].Month)))
		}
	}
	for idx := range configs {
		room := strValue(configs[idx].TenantRoomNumber)
		if !rooms[room] {
			result.OrphanedRecords = append(result.OrphanedRecords,
				fmt.Sprintf("meterConfig %q references unknown tenant %s", strValue(configs[idx].DefaultName), room))
		}
	}
}

// write applies the full-replace policy: wipe existing tenants (the store
// cascades their bills and overrides), then insert the imported collections
// in the order prices → tenants → overrides → bills.
func (i *Importer) write(ctx context.Context, normalized *normalizedSnapshot, tenants []rawTenant, bills []rawBill, configs []rawMeterConfig, result *ImportResult) {
	ctx, span := i.tracer.Start(ctx, "backup.import.write")
	defer span.End()

	existing, err := i.store.ListTenants(ctx)
	if err != nil {
		result.addError(ErrorKindDatabase, "failed to list existing tenants: %v", err)
		return
	}
	for idx := range existing {
		if err := i.store.DeleteTenant(ctx, existing[idx].RoomNumber); err != nil {
			result.addError(ErrorKindDatabase, "failed to delete tenant %s: %v",
				logger.HashRoomNumber(existing[idx].RoomNumber), err)
		}
	}

	if normalized.Prices != nil {
		i.writePrices(ctx, normalized.Prices, result)
	}

	for idx := range tenants {
		t := &tenants[idx]
		tenant := models.Tenant{
			RoomNumber: t.roomNumber(),
			Name:       strValue(t.Name),
			Rent:       *t.Rent,
		}
		if err := i.store.InsertTenant(ctx, &tenant); err != nil {
			result.addError(ErrorKindDatabase, "failed to insert tenant %s: %v",
				logger.HashRoomNumber(tenant.RoomNumber), err)
			i.skipped.Add(ctx, 1, metric.WithAttributes(attribute.String("collection", "tenants")))
			continue
		}
		result.Stats.TenantsImported++
		i.imported.Add(ctx, 1, metric.WithAttributes(attribute.String("collection", "tenants")))
	}

	// Overrides go in before bills so detail display resolution sees them
	// as soon as the bills land.
	for idx := range configs {
		c := &configs[idx]
		err := i.store.SaveMeterNameOverride(ctx,
			strValue(c.DefaultName), strValue(c.CustomName), strValue(c.MeterType), strValue(c.TenantRoomNumber))
		switch {
		case errors.Is(err, repository.ErrMainMeterImmutable), errors.Is(err, repository.ErrNotExtraMeter):
			result.addError(ErrorKindDataValidation, "meterConfig %q rejected: %v", strValue(c.DefaultName), err)
			i.skipped.Add(ctx, 1, metric.WithAttributes(attribute.String("collection", "meterConfigs")))
		case err != nil:
			result.addError(ErrorKindDatabase, "failed to save meterConfig %q: %v", strValue(c.DefaultName), err)
			i.skipped.Add(ctx, 1, metric.WithAttributes(attribute.String("collection", "meterConfigs")))
		default:
			result.Stats.MeterConfigsImported++
			i.imported.Add(ctx, 1, metric.WithAttributes(attribute.String("collection", "meterConfigs")))
		}
	}

	for idx := range bills {
		bill, details := billFromRaw(&bills[idx])
		if err := i.store.SaveBill(ctx, bill, details); err != nil {
			result.addError(ErrorKindDatabase, "failed to save bill %s/%s: %v",
				logger.HashRoomNumber(bill.TenantRoomNumber), bill.Month, err)
			i.skipped.Add(ctx, 1, metric.WithAttributes(attribute.String("collection", "bills")))
			continue
		}
		result.Stats.BillsImported++
		i.imported.Add(ctx, 1, metric.WithAttributes(attribute.String("collection", "bills")))
	}
}

func (i *Importer) writePrices(ctx context.Context, prices *rawPrices, result *ImportResult) {
	water := prices.waterPrice()
	electricity := prices.electricityPrice()
	if err := i.store.SavePriceSettings(ctx, *water, *electricity); err != nil {
		result.addError(ErrorKindDatabase, "failed to save price settings: %v", err)
		return
	}
	result.Stats.PricesImported++

	keywords, err := normalizePrivacyKeywords(prices.PrivacyKeywords)
	if err != nil {
		result.addError(ErrorKindDataValidation, "%v", err)
		return
	}
	if keywords != nil {
		if err := i.store.SavePrivacyKeywords(ctx, keywords); err != nil {
			result.addError(ErrorKindDatabase, "failed to save privacy keywords: %v", err)
		}
	}
}

func (i *Importer) summarize(result *ImportResult) string {
	if !result.Success {
		return fmt.Sprintf("import finished with %d database errors; see error list", result.databaseErrors())
	}
	if len(result.Errors) > 0 {
		return fmt.Sprintf("import completed with %d skipped records", len(result.Errors))
	}
	return "import completed"
}

// billFromRaw converts a validated canonical bill into the domain model,
// applying usage defaulting for metered details.
func billFromRaw(b *rawBill) (*models.Bill, []models.BillDetail) {
	bill := &models.Bill{
		TenantRoomNumber: b.roomNumber(),
		Month:            strValue(b.Month),
		TotalAmount:      *b.TotalAmount,
	}
	if b.CreatedDate != nil {
		bill.CreatedDate = b.CreatedDate.Time
	}

	details := make([]models.BillDetail, 0, len(b.Details))
	for idx := range b.Details {
		d := &b.Details[idx]
		detail := models.BillDetail{
			Type:            strValue(d.Type),
			Name:            strValue(d.Name),
			PricePerUnit:    d.PricePerUnit,
			PreviousReading: d.PreviousReading,
			CurrentReading:  d.CurrentReading,
			Usage:           d.Usage,
		}
		if d.Amount != nil {
			detail.Amount = *d.Amount
		}
		if detail.Usage == nil &&
			(detail.Type == models.DetailTypeWater || detail.Type == models.DetailTypeElectricity) {
			detail.Usage = detail.ResolvedUsage()
		}
		details = append(details, detail)
	}
	return bill, details
}
