// Package vault assembles the analysis-ready datavault tables: one row per
// monitored patient and one row per annotated seizure. Each patient is an
// independent unit of work; one malformed sheet never aborts the batch.
package vault

import (
	"fmt"
	"runtime/debug"
	"time"

	"go.uber.org/zap"

	"github.com/CRCHUM-Epilepsy-Group/epilepsy-tools/internal/annotations"
	"github.com/CRCHUM-Epilepsy-Group/epilepsy-tools/internal/errdefs"
	"github.com/CRCHUM-Epilepsy-Group/epilepsy-tools/internal/roster"
)

// PatientRecord is one row of the patient datavault table.
type PatientRecord struct {
	PatientNum    string
	PatientID     *string
	PatientName   *string
	PatientSex    *string
	StartDate     *time.Time
	EndDate       *time.Time
	SeizureCounts map[string]int
	NumSeizures   int
}

// Diagnostic records one patient dropped during a batch, with the failure
// and the stack captured where it happened. Diagnostics are returned to the
// caller alongside the table so failures are observable without depending on
// logger configuration.
type Diagnostic struct {
	Patient string
	Err     error
	Stack   []byte
}

// Builder builds datavault tables from an annotation workbook.
type Builder struct {
	wb     *annotations.Workbook
	logger *zap.Logger
}

func NewBuilder(wb *annotations.Workbook, logger *zap.Logger) *Builder {
	return &Builder{wb: wb, logger: logger}
}

// BuildPatientTable assembles one PatientRecord per patient code: event
// counts from the annotation sheet, monitoring dates from the metadata rows,
// identity from the rosters (newer first). At least one roster is required.
//
// A patient whose type-filtered count matched nothing is dropped; a genuine
// zero under no filter is kept. A patient whose sheet cannot be parsed is
// dropped with a diagnostic, like the event builder does.
func (b *Builder) BuildPatientTable(codes []string, seizureTypes []string, newer, older *roster.Table) ([]PatientRecord, []Diagnostic, error) {
	if newer == nil && older == nil {
		return nil, nil, fmt.Errorf("%w: at least one roster must be provided", errdefs.ErrConfiguration)
	}

	var records []PatientRecord
	var diags []Diagnostic
	for _, code := range codes {
		sheet, err := b.wb.ParseSheet(code)
		if err != nil {
			diags = append(diags, b.diagnose(code, err))
			continue
		}

		counts, total, ok := annotations.CountEvents(sheet, seizureTypes)
		if !ok {
			b.logger.Debug("no qualifying events under type filter, dropping patient",
				zap.String("patient", code))
			continue
		}
		b.warnUnknownTypes(code, counts)

		start, end := b.wb.MonitoringDates(code)
		identity := roster.ResolveIdentity(code, newer, older, b.logger)

		records = append(records, PatientRecord{
			PatientNum:    code,
			PatientID:     identity.ID,
			PatientName:   identity.Name,
			PatientSex:    identity.Sex,
			StartDate:     start,
			EndDate:       end,
			SeizureCounts: counts,
			NumSeizures:   total,
		})
	}
	return records, diags, nil
}

// BuildEventTable extracts every qualifying seizure of every patient into one
// flat table. A failing patient is skipped with a diagnostic and the batch
// continues; patients with zero qualifying events contribute no rows.
func (b *Builder) BuildEventTable(codes []string, seizureTypes []string) ([]annotations.Event, []Diagnostic) {
	var events []annotations.Event
	var diags []Diagnostic
	for _, code := range codes {
		patientEvents, err := b.extractPatient(code, seizureTypes)
		if err != nil {
			diags = append(diags, b.diagnose(code, err))
			continue
		}
		events = append(events, patientEvents...)
	}
	return events, diags
}

// extractPatient processes one patient's sheet, converting a panic anywhere
// underneath (a truly malformed sheet) into an error so the batch survives.
func (b *Builder) extractPatient(code string, seizureTypes []string) (events []annotations.Event, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while processing patient %s: %v", code, r)
		}
	}()

	sheet, err := b.wb.ParseSheet(code)
	if err != nil {
		return nil, err
	}
	return annotations.ExtractEvents(sheet, seizureTypes), nil
}

func (b *Builder) diagnose(code string, err error) Diagnostic {
	stack := debug.Stack()
	b.logger.Error("error processing patient",
		zap.String("patient", code),
		zap.Error(err),
		zap.ByteString("stack", stack))
	return Diagnostic{Patient: code, Err: err, Stack: stack}
}

func (b *Builder) warnUnknownTypes(code string, counts map[string]int) {
	for seizureType, n := range counts {
		if n > 0 && !annotations.KnownClassifications[seizureType] {
			b.logger.Warn("classification outside the known vocabulary",
				zap.String("patient", code),
				zap.String("classification", seizureType))
		}
	}
}
