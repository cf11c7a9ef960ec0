package ports

import (
	"context"

	"github.com/mikey/knn-spam-filter/internal/core"
)

// EmailFilter is a front-end that feeds mail into the spam filter service
type EmailFilter interface {
	// ProcessEmail classifies a single email
	ProcessEmail(ctx context.Context, email *core.Email) (*core.SpamAnalysisResult, error)

	// Start begins accepting mail
	Start() error

	// Stop stops accepting mail
	Stop() error
}
