package filter

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-smtp"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mikey/knn-spam-filter/internal/config"
	"github.com/mikey/knn-spam-filter/internal/core"
)

type stubClassifier struct {
	result *core.SpamAnalysisResult
	err    error
	seen   *core.Email
}

func (s *stubClassifier) AnalyzeEmail(_ context.Context, email *core.Email) (*core.SpamAnalysisResult, error) {
	s.seen = email
	return s.result, s.err
}

type delivery struct {
	sender     string
	recipients []string
	data       []byte
}

func serverConfig() config.ServerConfig {
	return config.ServerConfig{
		FilterType:     "postfix",
		ListenAddress:  "127.0.0.1:0",
		SpamHeader:     "X-Spam-Status",
		ScoreHeader:    "X-Spam-Score",
		ReasonHeader:   "X-Spam-Reason",
		PostfixEnabled: true,
		PostfixAddress: "127.0.0.1",
		PostfixPort:    10026,
		ModifySubject:  true,
	}
}

func newTestFilter(t *testing.T, classifier core.EmailClassifier, cfg config.ServerConfig) (*PostfixFilter, *[]delivery) {
	t.Helper()
	service := core.NewSpamFilterService(classifier, nil, zap.NewNop(), false, time.Hour, nil)
	f := NewPostfixFilter(service, zap.NewNop(), cfg)
	var sent []delivery
	f.deliver = func(sender string, recipients []string, data []byte) error {
		sent = append(sent, delivery{sender: sender, recipients: recipients, data: data})
		return nil
	}
	return f, &sent
}

const rawSpam = "From: Promo <promo@deals.example>\r\n" +
	"Subject: Win cash\r\n" +
	"X-Spam-Status: false\r\n" +
	"Received: from a\r\n" +
	"\tby b\r\n" +
	"\r\n" +
	"Claim your free prize today\r\n"

func runSession(t *testing.T, f *PostfixFilter, raw string) error {
	t.Helper()
	session, err := (&smtpBackend{filter: f}).NewSession(nil)
	require.NoError(t, err)
	require.NoError(t, session.Mail("promo@deals.example", nil))
	require.NoError(t, session.Rcpt("user@example.org", nil))
	return session.Data(strings.NewReader(raw))
}

func TestNewPostfixFilter_DefaultPrefix(t *testing.T) {
	f := NewPostfixFilter(nil, zap.NewNop(), serverConfig())
	require.Equal(t, defaultSubjectPrefix, f.subjectPrefix)
}

func TestRewriteMessage_Spam(t *testing.T) {
	f := NewPostfixFilter(nil, zap.NewNop(), serverConfig())
	result := &core.SpamAnalysisResult{
		IsSpam:      true,
		Score:       1,
		Explanation: "3 of 3 nearest neighbours are spam;\nmatched words: cash",
	}

	out := string(f.rewriteMessage([]byte(rawSpam), result, nil))

	require.True(t, strings.HasPrefix(out, "X-Spam-Status: true\r\nX-Spam-Score: 1.0000\r\n"))
	require.Contains(t, out, "X-Spam-Reason: 3 of 3 nearest neighbours are spam; matched words: cash\r\n")
	require.Equal(t, 1, strings.Count(out, "X-Spam-Status:"))
	require.Contains(t, out, "Subject: [**SPAM**] Win cash\r\n")
	require.NotContains(t, out, "Subject: Win cash")
	require.Contains(t, out, "Received: from a\r\n\tby b\r\n")
	require.True(t, strings.HasSuffix(out, "\r\n\r\nClaim your free prize today\r\n"))
}

func TestRewriteMessage_HamKeepsSubject(t *testing.T) {
	f := NewPostfixFilter(nil, zap.NewNop(), serverConfig())
	out := string(f.rewriteMessage([]byte(rawSpam), &core.SpamAnalysisResult{}, errors.New("boom")))

	require.Contains(t, out, "X-Spam-Status: false\r\n")
	require.Contains(t, out, "X-Spam-Analysis-Error: boom\r\n")
	require.Contains(t, out, "Subject: Win cash\r\n")
}

func TestRewriteMessage_PrefixNotRepeated(t *testing.T) {
	f := NewPostfixFilter(nil, zap.NewNop(), serverConfig())
	raw := "Subject: [**SPAM**] Win cash\n\nbody\n"
	out := string(f.rewriteMessage([]byte(raw), &core.SpamAnalysisResult{IsSpam: true}, nil))

	require.Contains(t, out, "Subject: [**SPAM**] Win cash\r\n")
	require.NotContains(t, out, "[**SPAM**] [**SPAM**]")
	require.True(t, strings.HasSuffix(out, "\r\nbody\n"))
}

func TestSession_DeliversWithHeaders(t *testing.T) {
	classifier := &stubClassifier{result: &core.SpamAnalysisResult{IsSpam: true, Score: 1, Explanation: "spam"}}
	f, sent := newTestFilter(t, classifier, serverConfig())

	require.NoError(t, runSession(t, f, rawSpam))
	require.Len(t, *sent, 1)

	d := (*sent)[0]
	require.Equal(t, "promo@deals.example", d.sender)
	require.Equal(t, []string{"user@example.org"}, d.recipients)
	require.True(t, bytes.HasPrefix(d.data, []byte("X-Spam-Status: true\r\n")))

	require.Equal(t, "Win cash", classifier.seen.Subject)
	require.Equal(t, "Claim your free prize today\r\n", classifier.seen.Body)
}

func TestSession_RejectsSpam(t *testing.T) {
	cfg := serverConfig()
	cfg.BlockSpam = true
	classifier := &stubClassifier{result: &core.SpamAnalysisResult{IsSpam: true, Score: 1}}
	f, sent := newTestFilter(t, classifier, cfg)

	err := runSession(t, f, rawSpam)

	var smtpErr *smtp.SMTPError
	require.ErrorAs(t, err, &smtpErr)
	require.Equal(t, 550, smtpErr.Code)
	require.Empty(t, *sent)
}

func TestSession_AnalysisErrorDeliversUnmarked(t *testing.T) {
	cfg := serverConfig()
	cfg.BlockSpam = true
	classifier := &stubClassifier{err: core.ErrDimensionMismatch}
	f, sent := newTestFilter(t, classifier, cfg)

	require.NoError(t, runSession(t, f, rawSpam))
	require.Len(t, *sent, 1)

	out := string((*sent)[0].data)
	require.Contains(t, out, "X-Spam-Status: false\r\n")
	require.Contains(t, out, "X-Spam-Analysis-Error: ")
}

func TestSession_DeliveryFailure(t *testing.T) {
	classifier := &stubClassifier{result: &core.SpamAnalysisResult{}}
	f, _ := newTestFilter(t, classifier, serverConfig())
	f.deliver = func(string, []string, []byte) error {
		return errors.New("connection refused")
	}

	require.Error(t, runSession(t, f, rawSpam))
}

func TestParseEmail(t *testing.T) {
	raw := "From: Promo <promo@deals.example>\r\n" +
		"To: a@example.org, B <b@example.org>\r\n" +
		"Subject: =?UTF-8?Q?Free_=E2=82=AC?=\r\n" +
		"\r\n" +
		"body text\r\n"

	email, err := ParseEmail(strings.NewReader(raw))
	require.NoError(t, err)
	require.Equal(t, "promo@deals.example", email.From)
	require.Equal(t, []string{"a@example.org", "b@example.org"}, email.To)
	require.Equal(t, "Free €", email.Subject)
	require.Equal(t, "body text\r\n", email.Body)

	_, err = ParseEmail(strings.NewReader(""))
	require.Error(t, err)
}
