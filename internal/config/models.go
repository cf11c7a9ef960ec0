package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// k must be odd so a majority vote can never tie
	_ = v.RegisterValidation("odd", func(fl validator.FieldLevel) bool {
		return fl.Field().Int()%2 != 0
	})
	return v
}

// ClassifierConfig represents the k-NN model parameters
type ClassifierConfig struct {
	K           int `validate:"gt=0,odd"`
	Features    int `validate:"gt=0"`
	Stopwords   []string
	MaxBodySize int `validate:"gte=0"`
}

// DatasetConfig represents the location of the training and test files
type DatasetConfig struct {
	SpamPath string `validate:"required"`
	HamPath  string `validate:"required"`
	TestPath string
}

// ServerConfig represents the configuration of the mail filter front-end
type ServerConfig struct {
	FilterType     string `validate:"oneof=postfix cli"`
	ListenAddress  string
	BlockSpam      bool
	SpamHeader     string `validate:"required"`
	ScoreHeader    string `validate:"required"`
	ReasonHeader   string `validate:"required"`
	PostfixEnabled bool
	PostfixAddress string
	PostfixPort    int `validate:"gte=0,lte=65535"`
	SubjectPrefix  string
	ModifySubject  bool
	Verbose        bool
}

// CacheConfig represents the verdict cache configuration
type CacheConfig struct {
	Type             string `validate:"oneof=memory sqlite mysql"`
	Enabled          bool
	TTL              time.Duration `validate:"gt=0"`
	CleanupFrequency time.Duration `validate:"gt=0"`
	SQLitePath       string
	MySQLDSN         string
}

// LoggingConfig represents the logger configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// GetClassifier returns the classifier configuration
func (c *Config) GetClassifier() ClassifierConfig {
	return ClassifierConfig{
		K:           c.GetInt("classifier.k"),
		Features:    c.GetInt("classifier.features"),
		Stopwords:   c.GetStringSlice("classifier.stopwords"),
		MaxBodySize: c.GetInt("classifier.max_body_size"),
	}
}

// GetDataset returns the dataset configuration
func (c *Config) GetDataset() DatasetConfig {
	return DatasetConfig{
		SpamPath: c.GetString("dataset.spam_path"),
		HamPath:  c.GetString("dataset.ham_path"),
		TestPath: c.GetString("dataset.test_path"),
	}
}

// GetServer returns the mail filter configuration
func (c *Config) GetServer() ServerConfig {
	return ServerConfig{
		FilterType:     c.GetString("server.filter_type"),
		ListenAddress:  c.GetString("server.listen_address"),
		BlockSpam:      c.GetBool("server.block_spam"),
		SpamHeader:     c.GetString("server.headers.spam"),
		ScoreHeader:    c.GetString("server.headers.score"),
		ReasonHeader:   c.GetString("server.headers.reason"),
		PostfixEnabled: c.GetBool("server.postfix.enabled"),
		PostfixAddress: c.GetString("server.postfix.address"),
		PostfixPort:    c.GetInt("server.postfix.port"),
		SubjectPrefix:  c.GetString("server.subject_prefix"),
		ModifySubject:  c.GetBool("server.modify_subject"),
		Verbose:        c.GetBool("cli.verbose"),
	}
}

// GetCache returns the cache configuration
func (c *Config) GetCache() (CacheConfig, error) {
	ttl, err := c.GetDuration("cache.ttl")
	if err != nil {
		return CacheConfig{}, fmt.Errorf("invalid cache ttl: %w", err)
	}
	cleanupFreq, err := c.GetDuration("cache.cleanup_frequency")
	if err != nil {
		return CacheConfig{}, fmt.Errorf("invalid cache cleanup frequency: %w", err)
	}

	return CacheConfig{
		Type:             c.GetString("cache.type"),
		Enabled:          c.GetBool("cache.enabled"),
		TTL:              ttl,
		CleanupFrequency: cleanupFreq,
		SQLitePath:       c.GetString("cache.sqlite_path"),
		MySQLDSN:         c.GetString("cache.mysql_dsn"),
	}, nil
}

// GetLogging returns the logging configuration
func (c *Config) GetLogging() LoggingConfig {
	return LoggingConfig{
		Level:  c.GetString("logging.level"),
		Format: c.GetString("logging.format"),
	}
}

// Validate checks a configuration section
func Validate(section any) error {
	if err := validate.Struct(section); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
