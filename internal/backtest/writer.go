package backtest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/earnscan/earnscan/internal/report"
)

// Writer persists backtest artifacts under a per-run date directory:
// results.json with the full replay and trades.csv with the flat trade
// table.
type Writer struct {
	outputDir string
}

func NewWriter(outputDir string) *Writer {
	return &Writer{
		outputDir: filepath.Join(outputDir, time.Now().Format("2006-01-02")),
	}
}

func (w *Writer) OutputDir() string {
	return w.outputDir
}

func (w *Writer) Write(results *Results) error {
	if err := os.MkdirAll(w.outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := w.writeResults(results); err != nil {
		return err
	}
	return w.writeTrades(results)
}

func (w *Writer) writeResults(results *Results) error {
	path := filepath.Join(w.outputDir, "results.json")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create results file: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(results); err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}
	return nil
}

func (w *Writer) writeTrades(results *Results) error {
	var rows []report.Row
	for _, day := range results.Days {
		if day.Trade == nil || day.Candidate == nil {
			continue
		}
		rows = append(rows, report.NewRow(*day.Trade, *day.Candidate))
	}

	path := filepath.Join(w.outputDir, "trades.csv")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create trades file: %w", err)
	}
	defer f.Close()

	return report.WriteCSV(f, rows)
}
