package parsers

import (
	"bytes"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"spending-pattern-service/pkg/errors"
	"spending-pattern-service/pkg/logger"
)

// FileIngestor parses CSV and Excel statement exports into a RawTable.
type FileIngestor struct {
	config *StatementConfig
	logger logger.Logger
}

// NewFileIngestor creates a FileIngestor with the given schema configuration
func NewFileIngestor(config *StatementConfig) (*FileIngestor, error) {
	if config == nil {
		config = DefaultStatementConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "statement_config", config, err)
	}

	log := logger.GetGlobalLogger().WithComponent("file_ingestor")
	log.WithFields(logger.Fields{
		"required_columns": config.RequiredColumns(),
		"max_file_size":    config.MaxFileSizeBytes,
	}).Debug("Created file ingestor")

	return &FileIngestor{
		config: config,
		logger: log,
	}, nil
}

// ValidateFile checks the declared name and size before any content is read.
func (fi *FileIngestor) ValidateFile(name string, size int64) error {
	ext := strings.ToLower(filepath.Ext(name))
	if !allowedExtensions[ext] {
		fi.logger.WithFields(logger.Fields{
			"file_name": name,
			"extension": ext,
		}).Warn("Rejected file with unsupported extension")

		return errors.FileError(errors.CodeUnsupportedFormat, name, nil).
			WithContext("accepted", AllowedExtensions())
	}

	if size > 0 && size > fi.config.MaxFileSizeBytes {
		return errors.FileError(errors.CodeFileTooLarge, name, nil).
			WithContext("size_bytes", size).
			WithContext("limit_bytes", fi.config.MaxFileSizeBytes)
	}

	return nil
}

// Parse reads the whole input and dispatches on the declared extension.
// The returned stats cover row-level anomalies; a non-nil error means the
// file as a whole could not be ingested.
func (fi *FileIngestor) Parse(r io.Reader, name string) (*RawTable, *ParseStats, error) {
	stats := NewParseStats()

	// Statement files are bounded by the size cap, so buffering the whole
	// payload is fine and lets the Excel readers seek.
	data, err := io.ReadAll(io.LimitReader(r, fi.config.MaxFileSizeBytes+1))
	if err != nil {
		return nil, stats, errors.ParseError(errors.CodeParseFailure, name, "failed to read input", err)
	}

	if int64(len(data)) > fi.config.MaxFileSizeBytes {
		return nil, stats, errors.FileError(errors.CodeFileTooLarge, name, nil).
			WithContext("limit_bytes", fi.config.MaxFileSizeBytes)
	}

	if len(data) == 0 {
		return nil, stats, errors.ParseError(errors.CodeEmptyFile, name, "", nil)
	}

	ext := strings.ToLower(filepath.Ext(name))
	fi.logger.WithFields(logger.Fields{
		"file_name":  name,
		"size_bytes": len(data),
		"format":     ext,
	}).Info("Parsing statement file")

	var table *RawTable
	switch ext {
	case ".csv":
		table, err = fi.parseCSV(name, data, stats)
	case ".xlsx":
		table, err = fi.parseXLSX(name, data, stats)
	case ".xls":
		table, err = fi.parseXLS(name, data, stats)
	default:
		return nil, stats, errors.FileError(errors.CodeUnsupportedFormat, name, nil).
			WithContext("accepted", AllowedExtensions())
	}

	if err != nil {
		return nil, stats, err
	}

	fi.logger.WithFields(logger.Fields{
		"file_name": name,
		"columns":   table.Columns,
		"rows":      len(table.Rows),
	}).Info("Statement file parsed")

	return table, stats, nil
}

// ParseFile opens and parses a statement file from disk.
func (fi *FileIngestor) ParseFile(path string) (*RawTable, *ParseStats, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, errors.FileError(errors.CodeFileNotFound, path, err)
		}
		if os.IsPermission(err) {
			return nil, nil, errors.FileError(errors.CodeFilePermission, path, err)
		}
		return nil, nil, errors.ParseError(errors.CodeParseFailure, path, "failed to open file", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err == nil {
		if verr := fi.ValidateFile(path, info.Size()); verr != nil {
			return nil, nil, verr
		}
	} else if verr := fi.ValidateFile(path, 0); verr != nil {
		return nil, nil, verr
	}

	return fi.Parse(file, path)
}

// parseCSV reads a comma-separated payload into a RawTable
func (fi *FileIngestor) parseCSV(name string, data []byte, stats *ParseStats) (*RawTable, error) {
	if err := validateUTF8(name, data); err != nil {
		return nil, err
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = fi.config.Delimiter
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	headers, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, errors.ParseError(errors.CodeEmptyFile, name, "", nil)
		}
		return nil, errors.ParseError(errors.CodeParseFailure, name, "failed to read header row", err)
	}

	var rows [][]string
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			stats.AddError(&RowError{
				Line:    line,
				Message: "failed to read record",
				Err:     err,
			})
			continue
		}
		rows = append(rows, record)
	}

	return assembleTable(name, headers, rows, fi.config, stats, fi.logger)
}

// Config returns the ingestor's schema configuration
func (fi *FileIngestor) Config() *StatementConfig {
	return fi.config
}
