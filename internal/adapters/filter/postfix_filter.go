package filter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/mail"
	"os"
	"strings"
	"time"

	"github.com/emersion/go-smtp"
	"go.uber.org/zap"

	"github.com/mikey/knn-spam-filter/internal/config"
	"github.com/mikey/knn-spam-filter/internal/core"
	"github.com/mikey/knn-spam-filter/internal/whitelist"
)

const (
	defaultSubjectPrefix = "[**SPAM**] "
	analysisErrorHeader  = "X-Spam-Analysis-Error"
	analysisTimeout      = 10 * time.Second
)

// PostfixFilter implements a Postfix content filter
type PostfixFilter struct {
	service        *core.SpamFilterService
	logger         *zap.Logger
	listenAddr     string
	server         *smtp.Server
	blockSpam      bool
	spamHeader     string
	scoreHeader    string
	reasonHeader   string
	postfixAddr    string
	postfixPort    int
	postfixEnabled bool
	subjectPrefix  string
	modifySubject  bool

	// deliver reinjects the rewritten message, sendToPostfix unless replaced
	deliver func(sender string, recipients []string, data []byte) error
}

// NewPostfixFilter creates a new Postfix content filter
func NewPostfixFilter(service *core.SpamFilterService, logger *zap.Logger, cfg config.ServerConfig) *PostfixFilter {
	subjectPrefix := cfg.SubjectPrefix
	if subjectPrefix == "" && cfg.ModifySubject {
		subjectPrefix = defaultSubjectPrefix
	}

	f := &PostfixFilter{
		service:        service,
		logger:         logger,
		listenAddr:     cfg.ListenAddress,
		blockSpam:      cfg.BlockSpam,
		spamHeader:     cfg.SpamHeader,
		scoreHeader:    cfg.ScoreHeader,
		reasonHeader:   cfg.ReasonHeader,
		postfixAddr:    cfg.PostfixAddress,
		postfixPort:    cfg.PostfixPort,
		postfixEnabled: cfg.PostfixEnabled,
		subjectPrefix:  subjectPrefix,
		modifySubject:  cfg.ModifySubject,
	}
	f.deliver = f.sendToPostfix
	return f
}

// Start starts the Postfix filter service
func (f *PostfixFilter) Start() error {
	f.server = smtp.NewServer(&smtpBackend{filter: f})
	f.server.Addr = f.listenAddr
	f.server.Domain = "localhost"
	f.server.ReadTimeout = 30 * time.Second
	f.server.WriteTimeout = 30 * time.Second
	f.server.MaxMessageBytes = 30 * 1024 * 1024
	f.server.MaxRecipients = 50

	ln, err := net.Listen("tcp", f.listenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", f.listenAddr, err)
	}

	f.logger.Info("Postfix filter starting", zap.String("address", ln.Addr().String()))

	go func() {
		if err := f.server.Serve(ln); err != nil && !errors.Is(err, smtp.ErrServerClosed) {
			f.logger.Error("SMTP server error", zap.Error(err))
		}
	}()

	return nil
}

// Stop stops the Postfix filter service
func (f *PostfixFilter) Stop() error {
	if f.server != nil {
		return f.server.Close()
	}
	return nil
}

// ProcessEmail classifies an email without touching the SMTP path
func (f *PostfixFilter) ProcessEmail(ctx context.Context, email *core.Email) (*core.SpamAnalysisResult, error) {
	return f.service.AnalyzeEmail(ctx, email)
}

// sendToPostfix sends the processed email back to Postfix on the configured port
func (f *PostfixFilter) sendToPostfix(sender string, recipients []string, emailData []byte) error {
	if !f.postfixEnabled {
		f.logger.Warn("Postfix forwarding disabled, message dropped after filtering",
			zap.String("sender", sender))
		return nil
	}

	postfixAddr := net.JoinHostPort(f.postfixAddr, fmt.Sprint(f.postfixPort))

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "localhost"
	}

	conn, err := net.DialTimeout("tcp", postfixAddr, 10*time.Second)
	if err != nil {
		return fmt.Errorf("failed to connect to Postfix: %w", err)
	}
	if err := conn.SetDeadline(time.Now().Add(30 * time.Second)); err != nil {
		conn.Close()
		return fmt.Errorf("failed to set connection deadline: %w", err)
	}

	c := smtp.NewClient(conn)
	defer c.Close()

	if err := c.Hello(hostname); err != nil {
		return fmt.Errorf("EHLO failed: %w", err)
	}
	if err := c.Mail(sender, nil); err != nil {
		return fmt.Errorf("MAIL FROM failed: %w", err)
	}

	recipientOK := false
	for _, recipient := range recipients {
		if err := c.Rcpt(recipient, nil); err != nil {
			f.logger.Warn("RCPT TO failed for recipient",
				zap.String("recipient", recipient),
				zap.Error(err))
			continue
		}
		recipientOK = true
	}
	if !recipientOK {
		return errors.New("all recipients were rejected")
	}

	wc, err := c.Data()
	if err != nil {
		return fmt.Errorf("DATA command failed: %w", err)
	}
	if _, err := wc.Write(emailData); err != nil {
		wc.Close()
		return fmt.Errorf("failed to send email data: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	if err := c.Quit(); err != nil {
		// The message is already accepted at this point
		f.logger.Warn("QUIT command failed", zap.Error(err))
	}

	return nil
}

// buildEmail converts a parsed message into the classifier's email type
func buildEmail(msg *mail.Message, sender string, recipients []string) (*core.Email, error) {
	body, err := extractTextFromMessage(msg)
	if err != nil {
		return nil, err
	}

	subject := msg.Header.Get("Subject")
	if decoded, err := decodeEncodedHeader(subject); err == nil {
		subject = decoded
	}

	from := sender
	if from == "" {
		from = whitelist.ExtractAddress(msg.Header.Get("From"))
	}

	headers := make(map[string][]string, len(msg.Header))
	for key, values := range msg.Header {
		headers[key] = values
	}

	return &core.Email{
		From:    from,
		To:      recipients,
		Subject: subject,
		Body:    body,
		Headers: headers,
	}, nil
}

// ParseEmail reads a raw RFC 5322 message. Sender and recipients come from
// the From and To headers.
func ParseEmail(r io.Reader) (*core.Email, error) {
	msg, err := mail.ReadMessage(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse email: %w", err)
	}

	var recipients []string
	if addrs, err := msg.Header.AddressList("To"); err == nil {
		for _, addr := range addrs {
			recipients = append(recipients, addr.Address)
		}
	}

	return buildEmail(msg, "", recipients)
}

// rewriteMessage prepends the verdict headers to the raw message. Any
// verdict headers already present are dropped so senders cannot forge them.
// The original header order and the body are preserved byte for byte.
func (f *PostfixFilter) rewriteMessage(raw []byte, result *core.SpamAnalysisResult, analysisErr error) []byte {
	headerBlock, body := splitMessage(raw)

	var out bytes.Buffer
	fmt.Fprintf(&out, "%s: %t\r\n", f.spamHeader, result.IsSpam)
	fmt.Fprintf(&out, "%s: %.4f\r\n", f.scoreHeader, result.Score)
	fmt.Fprintf(&out, "%s: %s\r\n", f.reasonHeader, headerValue(result.Explanation))
	if analysisErr != nil {
		fmt.Fprintf(&out, "%s: %s\r\n", analysisErrorHeader, headerValue(analysisErr.Error()))
	}

	prefixSubject := result.IsSpam && f.modifySubject && f.subjectPrefix != ""
	for _, field := range splitHeaderFields(headerBlock) {
		name, value, _ := strings.Cut(field, ":")
		name = strings.TrimSpace(name)

		switch {
		case strings.EqualFold(name, f.spamHeader),
			strings.EqualFold(name, f.scoreHeader),
			strings.EqualFold(name, f.reasonHeader),
			strings.EqualFold(name, analysisErrorHeader):
			continue
		case prefixSubject && strings.EqualFold(name, "Subject"):
			fmt.Fprintf(&out, "Subject: %s\r\n", f.prefixedSubject(headerValue(value)))
			continue
		}
		out.WriteString(field)
	}

	out.WriteString("\r\n")
	out.Write(body)
	return out.Bytes()
}

func (f *PostfixFilter) prefixedSubject(original string) string {
	subject := strings.TrimSpace(original)
	if decoded, err := decodeEncodedHeader(subject); err == nil {
		subject = decoded
	}
	if !strings.HasPrefix(subject, f.subjectPrefix) {
		subject = f.subjectPrefix + subject
	}
	return mime.QEncoding.Encode("utf-8", subject)
}

// splitMessage separates the header block, without the blank line, from the body
func splitMessage(raw []byte) ([]byte, []byte) {
	if i := bytes.Index(raw, []byte("\r\n\r\n")); i >= 0 {
		return raw[:i+2], raw[i+4:]
	}
	if i := bytes.Index(raw, []byte("\n\n")); i >= 0 {
		return raw[:i+1], raw[i+2:]
	}
	return raw, nil
}

// splitHeaderFields groups folded continuation lines with their field.
// Every returned field ends in CRLF.
func splitHeaderFields(block []byte) []string {
	var fields []string
	var current strings.Builder
	for line := range strings.Lines(string(block)) {
		line = strings.TrimRight(line, "\r\n") + "\r\n"
		if (line[0] == ' ' || line[0] == '\t') && current.Len() > 0 {
			current.WriteString(line)
			continue
		}
		if current.Len() > 0 {
			fields = append(fields, current.String())
			current.Reset()
		}
		current.WriteString(line)
	}
	if current.Len() > 0 {
		fields = append(fields, current.String())
	}
	return fields
}

// headerValue unfolds a value onto a single header line
func headerValue(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// smtpBackend implements the go-smtp Backend interface
type smtpBackend struct {
	filter *PostfixFilter
}

// NewSession creates a new SMTP session
func (b *smtpBackend) NewSession(_ *smtp.Conn) (smtp.Session, error) {
	return &smtpSession{filter: b.filter}, nil
}

// smtpSession implements the go-smtp Session interface
type smtpSession struct {
	filter     *PostfixFilter
	sender     string
	recipients []string
}

// Reset resets the session state
func (s *smtpSession) Reset() {
	s.sender = ""
	s.recipients = nil
}

// Mail sets the sender address
func (s *smtpSession) Mail(from string, _ *smtp.MailOptions) error {
	s.sender = from
	return nil
}

// Rcpt adds a recipient
func (s *smtpSession) Rcpt(to string, _ *smtp.RcptOptions) error {
	s.recipients = append(s.recipients, to)
	return nil
}

// Data classifies the message, then rejects it or reinjects it with verdict headers
func (s *smtpSession) Data(r io.Reader) error {
	logger := s.filter.logger

	rawData, err := io.ReadAll(r)
	if err != nil {
		logger.Error("Failed to read message data", zap.Error(err))
		return err
	}

	msg, err := mail.ReadMessage(bytes.NewReader(rawData))
	if err != nil {
		logger.Error("Failed to parse email message", zap.Error(err))
		return err
	}

	email, err := buildEmail(msg, s.sender, s.recipients)
	if err != nil {
		logger.Error("Failed to extract text content", zap.Error(err))
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), analysisTimeout)
	defer cancel()

	result, analysisErr := s.filter.service.AnalyzeEmail(ctx, email)
	if analysisErr != nil {
		logger.Error("Failed to analyze email",
			zap.Error(analysisErr),
			zap.String("sender", email.From))

		// Deliver unmarked rather than lose mail
		result = &core.SpamAnalysisResult{
			Explanation: fmt.Sprintf("Error during analysis: %v", analysisErr),
			ModelUsed:   "error",
			AnalyzedAt:  time.Now(),
		}
	}

	if result.IsSpam && s.filter.blockSpam {
		logger.Info("Rejecting spam email",
			zap.String("from", email.From),
			zap.Float64("score", result.Score),
			zap.Strings("matched_features", result.MatchedFeatures),
			zap.String("model", result.ModelUsed))
		return &smtp.SMTPError{
			Code:         550,
			EnhancedCode: smtp.EnhancedCode{5, 7, 1},
			Message:      fmt.Sprintf("Rejected as spam (score: %.2f)", result.Score),
		}
	}

	rewritten := s.filter.rewriteMessage(rawData, result, analysisErr)
	if err := s.filter.deliver(s.sender, s.recipients, rewritten); err != nil {
		logger.Error("Failed to send email back to Postfix",
			zap.Error(err),
			zap.String("sender", email.From))
		return err
	}

	logger.Info("Processed email",
		zap.String("from", email.From),
		zap.Bool("is_spam", result.IsSpam),
		zap.Float64("score", result.Score),
		zap.Strings("matched_features", result.MatchedFeatures),
		zap.String("model", result.ModelUsed),
		zap.String("processing_id", result.ProcessingID))

	return nil
}

// Logout handles SMTP logout
func (s *smtpSession) Logout() error {
	return nil
}
