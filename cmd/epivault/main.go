// Command epivault builds the patient and seizure datavault tables from the
// clinical annotation workbook and the participation rosters, and optionally
// persists them into PostgreSQL.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/CRCHUM-Epilepsy-Group/epilepsy-tools/internal/annotations"
	"github.com/CRCHUM-Epilepsy-Group/epilepsy-tools/internal/config"
	"github.com/CRCHUM-Epilepsy-Group/epilepsy-tools/internal/repository"
	"github.com/CRCHUM-Epilepsy-Group/epilepsy-tools/internal/roster"
	"github.com/CRCHUM-Epilepsy-Group/epilepsy-tools/internal/vault"
)

func main() {
	configPath := flag.String("config", "", "YAML config file overlaying the environment")
	annotationsPath := flag.String("annotations", "", "annotation workbook path (overrides config)")
	selection := flag.String("patients", "", `patient selection: "all" or "range" (overrides config)`)
	types := flag.String("types", "", "comma-separated seizure types to include (default: all)")
	dryRun := flag.Bool("dry-run", false, "build the tables but do not persist them")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	applyFlags(cfg, *annotationsPath, *selection, *types)

	log, err := config.NewLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log, *dryRun); err != nil {
		log.Fatal("epivault failed", zap.Error(err))
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

func applyFlags(cfg *config.Config, annotationsPath, selection, types string) {
	if annotationsPath != "" {
		cfg.Vault.AnnotationsPath = annotationsPath
	}
	if selection != "" {
		cfg.Vault.Selection = selection
	}
	if types != "" {
		cfg.Vault.SeizureTypes = strings.Split(types, ",")
	}
}

func run(cfg *config.Config, log *zap.Logger, dryRun bool) error {
	wb, err := annotations.Open(cfg.Vault.AnnotationsPath)
	if err != nil {
		return err
	}
	defer wb.Close()

	codes, err := wb.PatientNumbers(cfg.Vault.Selection, cfg.Vault.Range)
	if err != nil {
		return err
	}
	log.Info("selected patients", zap.Int("count", len(codes)))

	newer, older, err := loadRosters(cfg, log)
	if err != nil {
		return err
	}

	builder := vault.NewBuilder(wb, log)

	patients, patientDiags, err := builder.BuildPatientTable(codes, cfg.Vault.SeizureTypes, newer, older)
	if err != nil {
		return err
	}
	events, eventDiags := builder.BuildEventTable(codes, cfg.Vault.SeizureTypes)

	log.Info("datavault built",
		zap.String("patients", humanize.Comma(int64(len(patients)))),
		zap.String("seizures", humanize.Comma(int64(len(events)))),
		zap.Int("patients_skipped", len(patientDiags)+len(eventDiags)))

	if dryRun || !cfg.DBEnabled {
		log.Info("not persisting", zap.Bool("dry_run", dryRun), zap.Bool("db_enabled", cfg.DBEnabled))
		return nil
	}

	db, err := config.NewPostgresDB(&cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	repo := repository.NewVaultRepository(db, log)
	ctx := context.Background()
	if err := repo.SavePatients(ctx, patients); err != nil {
		return err
	}
	if err := repo.SaveSeizures(ctx, events); err != nil {
		return err
	}
	return nil
}

func loadRosters(cfg *config.Config, log *zap.Logger) (newer, older *roster.Table, err error) {
	if path := cfg.Vault.Roster2023Path; path != "" {
		newer, err = roster.Load(path, roster.Kind2023, "")
		if err != nil {
			return nil, nil, err
		}
		log.Info("loaded roster", zap.String("kind", string(roster.Kind2023)), zap.Int("rows", newer.Rows()))
	}
	if path := cfg.Vault.Roster2018Path; path != "" {
		older, err = roster.Load(path, roster.Kind2018, cfg.Vault.RosterPassword)
		if err != nil {
			return nil, nil, err
		}
		log.Info("loaded roster", zap.String("kind", string(roster.Kind2018)), zap.Int("rows", older.Rows()))
	}
	return newer, older, nil
}
