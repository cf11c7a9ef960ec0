package di

import (
	"flag"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/knn-spam-filter/internal/config"
	"github.com/mikey/knn-spam-filter/internal/core"
	"github.com/mikey/knn-spam-filter/internal/logging"
	"github.com/mikey/knn-spam-filter/internal/whitelist"
)

// Batch CLI modes
const (
	ModeClassify = "classify"
	ModeSummary  = "summary"
	ModeFeatures = "features"
	ModeAll      = "all"
	ModeEmail    = "email"
)

// CLIFlags contains all command line flags for the CLI application
type CLIFlags struct {
	// Model flags
	K           int
	Features    int
	MaxBodySize int

	// Dataset flags
	SpamPath string
	HamPath  string
	TestPath string

	// Spam detection flags
	Whitelist string

	// Run flags
	Mode       string
	InputFile  string
	Verbose    bool
	JSONLog    bool
	ConfigFile string

	// set records the flags given explicitly on the command line
	set map[string]bool
}

// ParseFlags parses command line flags and returns a CLIFlags struct
func ParseFlags() *CLIFlags {
	return parseFlags(flag.CommandLine, os.Args[1:])
}

func parseFlags(fs *flag.FlagSet, args []string) *CLIFlags {
	flags := &CLIFlags{}

	fs.IntVar(&flags.K, "k", 3, "Number of neighbours for KNN classification (positive, odd)")
	fs.IntVar(&flags.Features, "features", 50, "Number of top features to extract")
	fs.IntVar(&flags.MaxBodySize, "max-body-size", 4096, "Maximum email body size to classify")

	fs.StringVar(&flags.SpamPath, "spam", "./training/spam.csv", "Spam training file")
	fs.StringVar(&flags.HamPath, "ham", "./training/ham.csv", "Ham training file")
	fs.StringVar(&flags.TestPath, "test", "./tests/messages.csv", "Test messages file")

	fs.StringVar(&flags.Whitelist, "whitelist", "", "Comma-separated list of whitelisted domains")

	fs.StringVar(&flags.Mode, "mode", ModeAll, "Output mode (classify, summary, features, all, email)")
	fs.StringVar(&flags.InputFile, "file", "", "Input email file for email mode (use stdin if not specified)")
	fs.BoolVar(&flags.Verbose, "verbose", false, "Enable verbose logging")
	fs.BoolVar(&flags.JSONLog, "json-log", false, "Output logs in JSON format")
	fs.StringVar(&flags.ConfigFile, "config", "", "Path to config file (explicit flags take precedence)")

	// flag.CommandLine exits on error by itself
	_ = fs.Parse(args)

	flags.set = make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		flags.set[f.Name] = true
	})
	return flags
}

// BuildCLIContainer creates and configures a dependency injection container for the CLI application
func BuildCLIContainer(flags *CLIFlags) (*dig.Container, error) {
	container := dig.New()

	// Register flags
	if err := container.Provide(func() *CLIFlags { return flags }); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(func(flags *CLIFlags) (*zap.Logger, error) {
		return logging.InitConsoleLogger(flags.Verbose, flags.JSONLog)
	}); err != nil {
		return nil, err
	}

	// Register configuration
	if err := container.Provide(func(flags *CLIFlags, logger *zap.Logger) (*config.Config, error) {
		return loadCLIConfig(flags, logger)
	}); err != nil {
		return nil, err
	}

	if err := provideClassifier(container); err != nil {
		return nil, err
	}

	// Register whitelist
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) *whitelist.Checker {
		return whitelist.NewChecker(cfg.GetStringSlice("spam.whitelisted_domains"), logger)
	}); err != nil {
		return nil, err
	}

	// Register spam filter service with no cache
	if err := container.Provide(func(
		classifier core.EmailClassifier,
		logger *zap.Logger,
		checker *whitelist.Checker,
	) *core.SpamFilterService {
		return core.NewSpamFilterService(classifier, nil, logger, false, time.Duration(0), checker)
	}); err != nil {
		return nil, err
	}

	if err := provideEmailFilter(container); err != nil {
		return nil, err
	}

	return container, nil
}

// loadCLIConfig reads the config file when one is given and lets explicit
// flags override it. Without a file every flag applies.
func loadCLIConfig(flags *CLIFlags, logger *zap.Logger) (*config.Config, error) {
	if flags.ConfigFile == "" {
		return createConfigFromFlags(flags, config.NewEmptyViper(), func(string) bool { return true }), nil
	}

	cfg, err := config.NewFromFile(flags.ConfigFile)
	if err != nil {
		return nil, err
	}
	logger.Info("Loaded configuration from file", zap.String("file", cfg.GetViper().ConfigFileUsed()))

	return createConfigFromFlags(flags, cfg.GetViper(), func(name string) bool { return flags.set[name] }), nil
}

// createConfigFromFlags copies the selected flags into the viper instance
func createConfigFromFlags(flags *CLIFlags, v *viper.Viper, use func(name string) bool) *config.Config {
	// The batch CLI always reports through the CLI filter
	v.Set("server.filter_type", "cli")
	v.Set("cli.verbose", flags.Verbose)

	settings := []struct {
		flag  string
		key   string
		value any
	}{
		{"k", "classifier.k", flags.K},
		{"features", "classifier.features", flags.Features},
		{"max-body-size", "classifier.max_body_size", flags.MaxBodySize},
		{"spam", "dataset.spam_path", flags.SpamPath},
		{"ham", "dataset.ham_path", flags.HamPath},
		{"test", "dataset.test_path", flags.TestPath},
		{"whitelist", "spam.whitelisted_domains", splitList(flags.Whitelist)},
	}
	for _, s := range settings {
		if use(s.flag) {
			v.Set(s.key, s.value)
		}
	}

	return config.NewFromViper(v)
}

func splitList(s string) []string {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
