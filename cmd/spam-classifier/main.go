package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/mikey/knn-spam-filter/internal/adapters/filter"
	"github.com/mikey/knn-spam-filter/internal/adapters/knnmodel"
	"github.com/mikey/knn-spam-filter/internal/dataset"
	"github.com/mikey/knn-spam-filter/internal/di"
	"github.com/mikey/knn-spam-filter/internal/ports"
	"github.com/mikey/knn-spam-filter/internal/report"
)

func main() {
	flags := di.ParseFlags()

	switch flags.Mode {
	case di.ModeClassify, di.ModeSummary, di.ModeFeatures, di.ModeAll, di.ModeEmail:
	default:
		fmt.Printf("Unknown mode %q\n", flags.Mode)
		os.Exit(2)
	}

	container, err := di.BuildCLIContainer(flags)
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	if err := container.Invoke(run); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func run(
	logger *zap.Logger,
	flags *di.CLIFlags,
	model *knnmodel.Model,
	reader *dataset.Reader,
	emailFilter ports.EmailFilter,
) error {
	defer logger.Sync()

	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()

	if flags.Mode == di.ModeEmail {
		return classifyEmail(logger, flags.InputFile, emailFilter)
	}

	if flags.Mode == di.ModeFeatures || flags.Mode == di.ModeAll {
		report.WriteFeatures(out, model.Vocabulary())
		fmt.Fprintln(out)
	}
	if flags.Mode == di.ModeFeatures {
		return nil
	}

	rows, err := classifyTestSet(model, reader)
	if err != nil {
		return err
	}

	if flags.Mode == di.ModeClassify || flags.Mode == di.ModeAll {
		fmt.Fprintln(out, "Classifying...")
		report.WriteClassifications(out, rows)
	}
	if flags.Mode == di.ModeSummary || flags.Mode == di.ModeAll {
		fmt.Fprintln(out, "Summarizing classifications...")
		report.WriteSummary(out, report.Summarize(rows))
	}

	return nil
}

func classifyTestSet(model *knnmodel.Model, reader *dataset.Reader) ([]report.Classified, error) {
	records, err := reader.ReadTest()
	if err != nil {
		return nil, err
	}

	rows := make([]report.Classified, 0, len(records))
	for _, record := range records {
		result, err := model.Classify(record.Subject, record.Message)
		if err != nil {
			return nil, err
		}
		rows = append(rows, report.Classified{Subject: record.Subject, Result: result})
	}
	return rows, nil
}

// classifyEmail runs a single raw message through the CLI filter
func classifyEmail(logger *zap.Logger, inputFile string, emailFilter ports.EmailFilter) error {
	var emailReader io.Reader = os.Stdin
	if inputFile != "" {
		file, err := os.Open(inputFile)
		if err != nil {
			return fmt.Errorf("failed to open input file: %w", err)
		}
		defer file.Close()
		emailReader = file
		logger.Info("Reading email from file", zap.String("file", inputFile))
	} else {
		logger.Info("Reading email from stdin")
	}

	email, err := filter.ParseEmail(bufio.NewReader(emailReader))
	if err != nil {
		return err
	}

	_, err = emailFilter.ProcessEmail(context.Background(), email)
	return err
}
