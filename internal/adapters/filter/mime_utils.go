package filter

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
)

// maxMultipartDepth bounds recursion into nested multipart bodies
const maxMultipartDepth = 5

var headerDecoder = &mime.WordDecoder{CharsetReader: charsetReader}

// charsetReader converts input in the named charset to UTF-8
func charsetReader(charset string, input io.Reader) (io.Reader, error) {
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return nil, fmt.Errorf("unsupported charset %q: %w", charset, err)
	}
	return enc.NewDecoder().Reader(input), nil
}

// decodeEncodedHeader decodes RFC 2047 encoded words in a header value
func decodeEncodedHeader(value string) (string, error) {
	return headerDecoder.DecodeHeader(value)
}

// extractTextFromMessage extracts the text content from an email message.
// For multipart messages only text/plain parts are kept.
func extractTextFromMessage(msg *mail.Message) (string, error) {
	return extractText(mailHeader(msg.Header), msg.Body, 0)
}

// partHeader is the subset of header access shared by mail and multipart
type partHeader interface {
	Get(key string) string
}

type mailHeader mail.Header

func (h mailHeader) Get(key string) string {
	return mail.Header(h).Get(key)
}

func extractText(header partHeader, body io.Reader, depth int) (string, error) {
	contentType := header.Get("Content-Type")
	if contentType == "" {
		return readText(header, body, "")
	}

	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		// Unparseable content type, treat the body as plain text
		return readText(header, body, "")
	}

	if !strings.HasPrefix(mediaType, "multipart/") {
		if mediaType != "text/plain" && depth > 0 {
			return "", nil
		}
		return readText(header, body, params["charset"])
	}

	boundary, ok := params["boundary"]
	if !ok || depth >= maxMultipartDepth {
		return "", nil
	}

	mr := multipart.NewReader(body, boundary)
	var textContent bytes.Buffer
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// Return whatever was collected before the broken part
			if textContent.Len() > 0 {
				return textContent.String(), nil
			}
			return "", fmt.Errorf("failed to read multipart body: %w", err)
		}

		text, err := extractText(part.Header, part, depth+1)
		if err != nil {
			continue
		}
		if text != "" {
			textContent.WriteString(text)
			textContent.WriteString("\n")
		}
	}

	return textContent.String(), nil
}

// readText reads a single body part, undoing its transfer encoding and
// converting it from its declared charset to UTF-8
func readText(header partHeader, body io.Reader, charset string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(header.Get("Content-Transfer-Encoding"))) {
	case "base64":
		body = base64.NewDecoder(base64.StdEncoding, body)
	case "quoted-printable":
		body = quotedprintable.NewReader(body)
	}

	if charset != "" && !strings.EqualFold(charset, "utf-8") && !strings.EqualFold(charset, "us-ascii") {
		if r, err := charsetReader(charset, body); err == nil {
			body = r
		}
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("failed to read message body: %w", err)
	}
	return string(data), nil
}
