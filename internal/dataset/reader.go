// Package dataset loads labelled training emails and unlabelled test emails
// from line-oriented files. Each file starts with a header line; every other
// non-blank line holds a subject and a message separated by the first comma.
package dataset

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/mikey/knn-spam-filter/internal/core"
)

// DataSourceError reports an unreadable file or a malformed line
type DataSourceError struct {
	Path string
	Line int
	Err  error
}

func (e *DataSourceError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s: %s:%d: %v", core.ErrDataSource, e.Path, e.Line, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", core.ErrDataSource, e.Path, e.Err)
}

func (e *DataSourceError) Unwrap() []error {
	return []error{core.ErrDataSource, e.Err}
}

// Paths locates the three dataset files
type Paths struct {
	Spam string
	Ham  string
	Test string
}

// Reader reads records from the configured dataset files
type Reader struct {
	paths  Paths
	logger *zap.Logger
}

// NewReader creates a new dataset reader
func NewReader(paths Paths, logger *zap.Logger) *Reader {
	return &Reader{
		paths:  paths,
		logger: logger,
	}
}

// Paths returns the configured file locations
func (r *Reader) Paths() Paths {
	return r.paths
}

// ReadTraining returns the spam records followed by the ham records
func (r *Reader) ReadTraining() ([]core.Record, error) {
	spam, err := r.readFile(r.paths.Spam, func(subject, message string) core.Record {
		return core.LabeledRecord(subject, message, true)
	})
	if err != nil {
		return nil, err
	}

	ham, err := r.readFile(r.paths.Ham, func(subject, message string) core.Record {
		return core.LabeledRecord(subject, message, false)
	})
	if err != nil {
		return nil, err
	}

	r.logger.Info("Loaded training emails",
		zap.Int("spam_count", len(spam)),
		zap.Int("ham_count", len(ham)),
		zap.Int("total", len(spam)+len(ham)))

	return append(spam, ham...), nil
}

// ReadTest returns the unlabelled test records
func (r *Reader) ReadTest() ([]core.Record, error) {
	records, err := r.readFile(r.paths.Test, core.UnlabeledRecord)
	if err != nil {
		return nil, err
	}

	r.logger.Info("Loaded test emails", zap.Int("total", len(records)))
	return records, nil
}

func (r *Reader) readFile(path string, build func(subject, message string) core.Record) ([]core.Record, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, &DataSourceError{Path: path, Err: err}
	}
	defer file.Close()

	r.logger.Debug("Reading dataset file", zap.String("file", path))

	records, err := Parse(file, build)
	if err != nil {
		var dsErr *DataSourceError
		if errors.As(err, &dsErr) {
			dsErr.Path = path
			return nil, dsErr
		}
		return nil, &DataSourceError{Path: path, Err: err}
	}
	return records, nil
}

// Parse reads records from r, skipping the header line and blank lines
func Parse(r io.Reader, build func(subject, message string) core.Record) ([]core.Record, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var records []core.Record
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if lineNo == 1 {
			continue
		}

		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}

		subject, message, err := ParseLine(line)
		if err != nil {
			return nil, &DataSourceError{Line: lineNo, Err: err}
		}
		records = append(records, build(subject, message))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return records, nil
}

// ParseLine splits a line into subject and message at the first comma
func ParseLine(line string) (subject, message string, err error) {
	subject, message, found := strings.Cut(line, ",")
	if !found {
		return "", "", fmt.Errorf("%w: no subject/message separator in %q", core.ErrMalformedRecord, line)
	}
	return subject, message, nil
}
