// Command signalpush loads a wearable recording and streams its channels into
// InfluxDB so the traces can be inspected next to the seizure annotations.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/CRCHUM-Epilepsy-Group/epilepsy-tools/internal/annotations"
	"github.com/CRCHUM-Epilepsy-Group/epilepsy-tools/internal/config"
	"github.com/CRCHUM-Epilepsy-Group/epilepsy-tools/internal/hexoskin"
	"github.com/CRCHUM-Epilepsy-Group/epilepsy-tools/internal/influxsink"
	"github.com/CRCHUM-Epilepsy-Group/epilepsy-tools/internal/vault"
)

func main() {
	configPath := flag.String("config", "", "YAML config file overlaying the environment")
	recording := flag.String("recording", "", "wearable recording (.edf) to push")
	patient := flag.String("patient", "", "patient code tagged on every point and used to look up seizures")
	measurement := flag.String("measurement", "hexoskin", "measurement name for the signal points")
	infoOnly := flag.Bool("info", false, "print the recording header and exit without pushing")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := config.NewLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if *recording == "" {
		log.Fatal("a -recording path is required")
	}

	if err := run(cfg, log, *recording, *patient, *measurement, *infoOnly); err != nil {
		log.Fatal("signalpush failed", zap.Error(err))
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

func run(cfg *config.Config, log *zap.Logger, recording, patient, measurement string, infoOnly bool) error {
	if infoOnly {
		return printInfo(recording)
	}

	loader := hexoskin.NewLoader(log)
	frame, err := loader.LoadFrame(recording)
	if err != nil {
		return err
	}
	log.Info("loaded recording",
		zap.String("path", recording),
		zap.Int("channels", len(frame.Labels())),
		zap.String("samples", humanize.Comma(int64(frame.Rows()))))

	writer := influxsink.NewWriter(cfg.Influx, log)
	defer writer.Close()

	tags := map[string]string{}
	if patient != "" {
		tags["patient"] = patient
	}
	writer.WriteFrame(frame, measurement, tags)

	if patient != "" && cfg.Vault.AnnotationsPath != "" {
		events, err := patientEvents(cfg, log, patient)
		if err != nil {
			// Annotations are an overlay; a missing workbook does not
			// invalidate the pushed signals.
			log.Warn("could not load seizure annotations", zap.Error(err))
			return nil
		}
		writer.WriteEvents(events, measurement+"_seizures")
		log.Info("pushed seizure markers", zap.Int("events", len(events)))
	}
	return nil
}

func printInfo(recording string) error {
	info, err := hexoskin.Info(recording)
	if err != nil {
		return err
	}

	fmt.Printf("Patient:   %s (%s)\n", info.PatientName, info.Sex)
	fmt.Printf("Start:     %s\n", info.StartTime)
	fmt.Printf("Record ID: %d  User ID: %d\n", info.RecordID, info.UserID)
	fmt.Printf("Signals:   %d\n", len(info.Signals))
	for _, s := range info.Signals {
		fmt.Printf("  %-24s %8g Hz  %s\n", s.Label, s.SampleRate, s.Dimension)
	}
	return nil
}

func patientEvents(cfg *config.Config, log *zap.Logger, patient string) ([]annotations.Event, error) {
	wb, err := annotations.Open(cfg.Vault.AnnotationsPath)
	if err != nil {
		return nil, err
	}
	defer wb.Close()

	builder := vault.NewBuilder(wb, log)
	events, diags := builder.BuildEventTable([]string{patient}, cfg.Vault.SeizureTypes)
	if len(diags) > 0 {
		return nil, diags[0].Err
	}
	return events, nil
}
