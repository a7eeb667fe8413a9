package filter

import (
	"bytes"
	"encoding/base64"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"net/textproto"
	"regexp"
	"strings"
)

// maxMultipartDepth bounds recursion into nested multipart bodies
const maxMultipartDepth = 5

var htmlTagPattern = regexp.MustCompile(`(?s)<(script|style)[^>]*>.*?</(script|style)>|<[^>]+>`)

// wordDecoder decodes RFC 2047 encoded words, passing unknown charsets through
var wordDecoder = &mime.WordDecoder{
	CharsetReader: func(charset string, input io.Reader) (io.Reader, error) {
		return input, nil
	},
}

// decodeEncodedHeader decodes an RFC 2047 encoded header value
func decodeEncodedHeader(value string) (string, error) {
	return wordDecoder.DecodeHeader(value)
}

// extractTextFromMessage extracts the readable text of an email message.
// text/plain parts are preferred; HTML parts are used, stripped of tags, only
// when a message has no plain text.
func extractTextFromMessage(msg *mail.Message) (string, error) {
	plain, html, err := extractParts(textproto.MIMEHeader(msg.Header), msg.Body, 0)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(plain) != "" {
		return plain, nil
	}
	return html, nil
}

// extractParts walks a MIME entity and returns its plain and HTML text
func extractParts(header textproto.MIMEHeader, body io.Reader, depth int) (string, string, error) {
	contentType := header.Get("Content-Type")
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil || contentType == "" {
		mediaType = "text/plain"
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		boundary, ok := params["boundary"]
		if !ok || depth >= maxMultipartDepth {
			return "", "", nil
		}

		var plain, html strings.Builder
		mr := multipart.NewReader(body, boundary)
		for {
			part, err := mr.NextPart()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				// keep whatever was readable before the broken part
				break
			}
			if isAttachment(part.Header) {
				continue
			}
			p, h, err := extractParts(part.Header, part, depth+1)
			if err != nil {
				continue
			}
			appendText(&plain, p)
			appendText(&html, h)
		}
		return plain.String(), html.String(), nil
	}

	if !strings.HasPrefix(mediaType, "text/") {
		return "", "", nil
	}

	data, err := io.ReadAll(decodeTransferEncoding(header.Get("Content-Transfer-Encoding"), body))
	if err != nil {
		return "", "", err
	}

	if mediaType == "text/html" {
		return "", stripHTML(string(data)), nil
	}
	return string(data), "", nil
}

// decodeTransferEncoding wraps body in a decoder for its Content-Transfer-Encoding
func decodeTransferEncoding(encoding string, body io.Reader) io.Reader {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "base64":
		return base64.NewDecoder(base64.StdEncoding, body)
	case "quoted-printable":
		return quotedprintable.NewReader(body)
	default:
		return body
	}
}

func isAttachment(header textproto.MIMEHeader) bool {
	disposition, _, err := mime.ParseMediaType(header.Get("Content-Disposition"))
	return err == nil && disposition == "attachment"
}

func stripHTML(html string) string {
	return htmlTagPattern.ReplaceAllString(html, " ")
}

func appendText(sb *strings.Builder, text string) {
	if text == "" {
		return
	}
	if sb.Len() > 0 {
		sb.WriteString("\n")
	}
	sb.WriteString(text)
}

// splitMessage splits a raw message at the blank line separating headers from body
func splitMessage(raw []byte) (header, body []byte) {
	if i := bytes.Index(raw, []byte("\r\n\r\n")); i >= 0 {
		return raw[:i+2], raw[i+4:]
	}
	if i := bytes.Index(raw, []byte("\n\n")); i >= 0 {
		return raw[:i+1], raw[i+2:]
	}
	return raw, nil
}
