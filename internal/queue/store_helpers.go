package queue

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"
)

const itemColumns = "id, request_id, request_path, title, status, format, output_path, rights_built, error_message, created_at, updated_at, progress_stage, progress_percent, progress_message"

func scanItem(scanner interface{ Scan(dest ...any) error }) (*Item, error) {
	var (
		id              int64
		requestID       sql.NullString
		requestPath     string
		title           sql.NullString
		statusStr       string
		format          sql.NullString
		outputPath      sql.NullString
		rightsBuilt     sql.NullInt64
		errorMessage    sql.NullString
		createdRaw      sql.NullString
		updatedRaw      sql.NullString
		progressStage   sql.NullString
		progressPercent sql.NullFloat64
		progressMessage sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&requestID,
		&requestPath,
		&title,
		&statusStr,
		&format,
		&outputPath,
		&rightsBuilt,
		&errorMessage,
		&createdRaw,
		&updatedRaw,
		&progressStage,
		&progressPercent,
		&progressMessage,
	); err != nil {
		return nil, err
	}

	item := &Item{
		ID:              id,
		RequestID:       requestID.String,
		RequestPath:     requestPath,
		Title:           title.String,
		Status:          Status(statusStr),
		Format:          format.String,
		OutputPath:      outputPath.String,
		ErrorMessage:    errorMessage.String,
		ProgressStage:   progressStage.String,
		ProgressPercent: progressPercent.Float64,
		ProgressMessage: progressMessage.String,
	}
	if rightsBuilt.Valid {
		item.RightsBuilt = rightsBuilt.Int64 != 0
	}

	if created, err := parseTimeString(createdRaw.String); err == nil {
		item.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		item.UpdatedAt = updated
	}
	return item, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}

func statDatabase(health *DatabaseHealth, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			health.DatabaseExists = false
			return nil
		}
		return fmt.Errorf("stat queue database: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("queue database path %q is a directory", path)
	}
	health.DatabaseExists = true
	return nil
}
