package filter

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/mikey/knn-spam-filter/internal/core"
	"github.com/mikey/knn-spam-filter/internal/knn"
	"github.com/mikey/knn-spam-filter/internal/report"
)

const previewLength = 500

// CliFilter implements a command-line interface for spam detection
type CliFilter struct {
	service *core.SpamFilterService
	logger  *zap.Logger
	verbose bool
	out     io.Writer
}

// NewCliFilter creates a new CLI filter writing to stdout
func NewCliFilter(service *core.SpamFilterService, logger *zap.Logger, verbose bool) (*CliFilter, error) {
	return &CliFilter{
		service: service,
		logger:  logger,
		verbose: verbose,
		out:     os.Stdout,
	}, nil
}

// SetOutput redirects the report
func (f *CliFilter) SetOutput(w io.Writer) {
	f.out = w
}

// ProcessEmail processes an email and displays the results
func (f *CliFilter) ProcessEmail(ctx context.Context, email *core.Email) (*core.SpamAnalysisResult, error) {
	f.logger.Debug("Processing email", zap.String("sender", email.From))

	fmt.Fprintf(f.out, "\n=== Email Summary ===\n")
	fmt.Fprintf(f.out, "From: %s\n", email.From)
	fmt.Fprintf(f.out, "To: %s\n", strings.Join(email.To, ", "))
	fmt.Fprintf(f.out, "Subject: %s\n", email.Subject)
	fmt.Fprintf(f.out, "Body length: %d bytes\n", len(email.Body))

	if f.verbose {
		preview := email.Body
		if len(preview) > previewLength {
			preview = preview[:previewLength] + "..."
		}
		fmt.Fprintf(f.out, "\nBody preview:\n%s\n", preview)
	}

	startTime := time.Now()
	result, err := f.service.AnalyzeEmail(ctx, email)
	if err != nil {
		f.logger.Error("Failed to analyze email", zap.Error(err))
		fmt.Fprintf(f.out, "Error: %v\n", err)
		return nil, err
	}
	duration := time.Since(startTime)

	fmt.Fprintf(f.out, "\n=== Results ===\n")
	fmt.Fprintf(f.out, "Classification: %s\n", report.Label(result.IsSpam))
	fmt.Fprintf(f.out, "Spam score: %.4f\n", result.Score)
	fmt.Fprintf(f.out, "Confidence: %.4f\n", result.Confidence)
	fmt.Fprintf(f.out, "Explanation: %s\n", result.Explanation)
	fmt.Fprintf(f.out, "Model used: %s\n", result.ModelUsed)
	fmt.Fprintf(f.out, "Processing time: %v\n", duration)

	if len(result.Neighbors) > 0 {
		fmt.Fprintf(f.out, "\n=== Neighbors ===\n")
		report.WriteNeighbors(f.out, lo.Map(result.Neighbors, func(n core.Neighbor, _ int) knn.NeighborTrace {
			return knn.NeighborTrace{TrainingIndex: n.TrainingIndex, Distance: n.Distance, Spam: n.Spam}
		}))
	}

	return result, nil
}

// Start is a no-op for the CLI filter
func (f *CliFilter) Start() error {
	return nil
}

// Stop is a no-op for the CLI filter
func (f *CliFilter) Stop() error {
	return nil
}
