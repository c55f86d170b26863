package importfeeds

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog/log"

	"newsdeck/internal/models"
	"newsdeck/internal/store"
)

// Importer seeds the feeds table from a CSV file with columns
// name, feed_url, type and optional pub_date_mode.
type Importer struct {
	store *store.Store
}

// NewImporter creates a new feed importer
func NewImporter(st *store.Store) *Importer {
	return &Importer{store: st}
}

// ImportFeeds imports feed sources from a CSV file
func (i *Importer) ImportFeeds(ctx context.Context, csvPath string) error {
	log.Info().Str("csv", csvPath).Msg("Starting feed import")

	f, err := os.Open(csvPath)
	if err != nil {
		return fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer f.Close()

	if err := i.parseAndImportFeeds(ctx, f); err != nil {
		return fmt.Errorf("failed to import feeds: %w", err)
	}

	log.Info().Msg("Import completed successfully")
	return nil
}

func (i *Importer) parseAndImportFeeds(ctx context.Context, csvData io.Reader) error {
	reader := csv.NewReader(csvData)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return err
	}

	log.Debug().Strs("header", header).Msg("CSV header read")

	for _, required := range []string{"name", "feed_url", "type"} {
		if findColumnIndex(header, required) < 0 {
			return fmt.Errorf("required column '%s' not found in CSV header", required)
		}
	}

	nameIdx := findColumnIndex(header, "name")
	urlIdx := findColumnIndex(header, "feed_url")
	typeIdx := findColumnIndex(header, "type")
	modeIdx := findColumnIndex(header, "pub_date_mode")

	lineCount := 1 // Header was already read
	successCount := 0
	var importErrors []string

	for {
		lineCount++
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Warn().Err(err).Int("line", lineCount).Msg("Error reading CSV line")
			importErrors = append(importErrors, fmt.Sprintf("line %d: %v", lineCount, err))
			continue
		}

		if len(record) == 0 || (len(record) == 1 && record[0] == "") {
			log.Debug().Int("line", lineCount).Msg("Skipping empty row")
			continue
		}

		f := models.NewFeed()
		f.Name = safeGetValue(record, nameIdx)
		f.FeedURL = safeGetValue(record, urlIdx)
		f.Type = safeGetValue(record, typeIdx)
		if mode := safeGetValue(record, modeIdx); mode != "" {
			f.PubDateMode = mode
		}

		if f.Name == "" || f.FeedURL == "" || f.Type == "" {
			log.Warn().Int("line", lineCount).Msg("Skipping row with missing name, feed_url or type")
			importErrors = append(importErrors, fmt.Sprintf("line %d: missing required field", lineCount))
			continue
		}

		logger := log.With().
			Int("line", lineCount).
			Str("name", f.Name).
			Str("url", f.FeedURL).
			Logger()

		outcome, err := i.store.AddFeed(ctx, f)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to insert feed")
			importErrors = append(importErrors, fmt.Sprintf("line %d: %v", lineCount, err))
			continue
		}
		if !outcome.Inserted {
			logger.Warn().Msg("Duplicate feed URL, skipping")
			importErrors = append(importErrors, fmt.Sprintf("line %d: duplicate feed URL: %s", lineCount, f.FeedURL))
			continue
		}

		successCount++
		logger.Debug().Msg("Feed inserted successfully")
	}

	log.Info().
		Int("total", lineCount-1).
		Int("success", successCount).
		Int("errors", len(importErrors)).
		Msg("Import summary")

	fmt.Printf("Imported %d feeds successfully\n", successCount)
	if len(importErrors) > 0 {
		fmt.Printf("Encountered %d errors:\n", len(importErrors))
		for _, e := range importErrors {
			fmt.Printf("  - %s\n", e)
		}
	}

	return nil
}

func findColumnIndex(header []string, columnName string) int {
	for i, col := range header {
		if strings.EqualFold(strings.TrimSpace(col), columnName) {
			return i
		}
	}
	return -1
}

// safeGetValue returns the trimmed value at index, or "" when the
// index is out of bounds.
func safeGetValue(record []string, index int) string {
	if index >= 0 && index < len(record) {
		return strings.TrimSpace(record[index])
	}
	return ""
}
