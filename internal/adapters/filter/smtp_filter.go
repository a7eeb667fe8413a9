package filter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/mail"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-smtp"
	"github.com/mikey/phish-guard/internal/core"
	"github.com/mikey/phish-guard/internal/metrics"
	"github.com/mikey/phish-guard/internal/ports"
	"go.uber.org/zap"
)

// SMTPConfig defines the content filter settings
type SMTPConfig struct {
	ListenAddress    string
	BlockPhishing    bool
	StatusHeader     string
	ConfidenceHeader string
	ErrorHeader      string
	ModifySubject    bool
	SubjectPrefix    string
	RelayEnabled     bool
	RelayAddress     string
	RelayPort        int
	AnalysisTimeout  time.Duration
	MaxMessageBytes  int64
}

// SMTPFilter is an SMTP content filter that tags messages with phishing verdicts
// and relays them to the next hop
type SMTPFilter struct {
	detector ports.Detector
	recorder *metrics.Recorder
	logger   *zap.Logger
	cfg      SMTPConfig
	server   *smtp.Server
	listener net.Listener
	deliver  func(sender string, recipients []string, data []byte) error
}

// NewSMTPFilter creates a new SMTP content filter
func NewSMTPFilter(detector ports.Detector, recorder *metrics.Recorder, logger *zap.Logger, cfg SMTPConfig) *SMTPFilter {
	if cfg.SubjectPrefix == "" && cfg.ModifySubject {
		cfg.SubjectPrefix = "[**PHISHING**] "
	}
	if cfg.StatusHeader == "" {
		cfg.StatusHeader = "X-Phishing-Status"
	}
	if cfg.ConfidenceHeader == "" {
		cfg.ConfidenceHeader = "X-Phishing-Confidence"
	}
	if cfg.ErrorHeader == "" {
		cfg.ErrorHeader = "X-Phishing-Analysis-Error"
	}
	if cfg.AnalysisTimeout <= 0 {
		cfg.AnalysisTimeout = 10 * time.Second
	}

	f := &SMTPFilter{
		detector: detector,
		recorder: recorder,
		logger:   logger,
		cfg:      cfg,
	}
	f.deliver = f.sendToRelay
	return f
}

// Start starts the SMTP listener
func (f *SMTPFilter) Start() error {
	ln, err := net.Listen("tcp", f.cfg.ListenAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", f.cfg.ListenAddress, err)
	}
	f.listener = ln

	f.server = smtp.NewServer(&smtpBackend{filter: f})

	f.server.Addr = f.cfg.ListenAddress
	f.server.Domain = "localhost"
	f.server.ReadTimeout = 30 * time.Second
	f.server.WriteTimeout = 30 * time.Second
	f.server.MaxMessageBytes = f.cfg.MaxMessageBytes
	f.server.MaxRecipients = 50
	f.server.AllowInsecureAuth = true

	f.logger.Info("SMTP filter starting", zap.String("address", ln.Addr().String()))

	go func() {
		if err := f.server.Serve(ln); err != nil && !errors.Is(err, smtp.ErrServerClosed) {
			f.logger.Error("SMTP server error", zap.Error(err))
		}
	}()

	return nil
}

// Stop stops the SMTP listener
func (f *SMTPFilter) Stop() error {
	if f.server == nil {
		return nil
	}
	err := f.server.Close()
	// Serve may not have registered the listener yet
	if lerr := f.listener.Close(); lerr != nil && !errors.Is(lerr, net.ErrClosed) && err == nil {
		err = lerr
	}
	return err
}

// analyze classifies a parsed message. A message without text gets the
// degenerate verdict rather than an error.
func (f *SMTPFilter) analyze(ctx context.Context, subject, body string) (*core.EmailAnalysisResult, error) {
	text := strings.TrimSpace(strings.TrimSpace(subject) + "\n" + body)
	if text == "" {
		return core.ShortCircuitResult(), nil
	}

	start := time.Now()
	result, err := f.detector.CheckEmail(ctx, text)
	if err != nil {
		if f.recorder != nil {
			f.recorder.ObserveError("smtp", err)
		}
		return nil, err
	}
	if f.recorder != nil {
		f.recorder.ObserveEmail(result, time.Since(start))
	}
	return result, nil
}

// process tags a raw message. It returns the rewritten message, or an SMTP
// error when the message is rejected.
func (f *SMTPFilter) process(ctx context.Context, sender string, raw []byte) ([]byte, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		return nil, &smtp.SMTPError{
			Code:         554,
			EnhancedCode: smtp.EnhancedCode{5, 6, 0},
			Message:      "Malformed message",
		}
	}

	subject, err := decodeEncodedHeader(msg.Header.Get("Subject"))
	if err != nil {
		subject = msg.Header.Get("Subject")
	}

	body, err := extractTextFromMessage(msg)
	if err != nil {
		f.logger.Warn("Failed to extract text content", zap.Error(err), zap.String("sender", sender))
	}

	ctx, cancel := context.WithTimeout(ctx, f.cfg.AnalysisTimeout)
	defer cancel()

	result, analysisErr := f.analyze(ctx, subject, body)
	if analysisErr != nil {
		f.logger.Error("Failed to analyze email",
			zap.Error(analysisErr),
			zap.String("sender", sender),
			zap.String("sender_domain", senderDomain(sender)))
	}

	extra := make([]string, 0, 3)
	newSubject := ""
	if analysisErr != nil {
		extra = append(extra, headerLine(f.cfg.ErrorHeader, analysisErr.Error()))
	} else {
		extra = append(extra,
			headerLine(f.cfg.StatusHeader, string(result.Label)),
			headerLine(f.cfg.ConfidenceHeader, strconv.FormatFloat(result.Confidence, 'f', 4, 64)),
		)

		if result.Label == core.LabelPhishing {
			if f.cfg.BlockPhishing {
				f.logger.Info("Rejecting phishing email",
					zap.String("from", sender),
					zap.String("sender_domain", senderDomain(sender)),
					zap.Float64("confidence", result.Confidence),
					zap.String("model", result.ModelUsed))
				return nil, &smtp.SMTPError{
					Code:         550,
					EnhancedCode: smtp.EnhancedCode{5, 7, 1},
					Message:      fmt.Sprintf("Rejected as phishing (confidence: %.2f)", result.Confidence),
				}
			}
			if f.cfg.ModifySubject && !strings.HasPrefix(subject, f.cfg.SubjectPrefix) {
				newSubject = f.cfg.SubjectPrefix + subject
			}
		}

		f.logger.Info("Processed email",
			zap.String("from", sender),
			zap.String("sender_domain", senderDomain(sender)),
			zap.String("label", string(result.Label)),
			zap.Float64("confidence", result.Confidence),
			zap.String("model", result.ModelUsed))
	}

	return rewriteMessage(raw, extra, newSubject), nil
}

// sendToRelay sends the processed email to the next hop using go-smtp
func (f *SMTPFilter) sendToRelay(sender string, recipients []string, data []byte) error {
	relayAddr := net.JoinHostPort(f.cfg.RelayAddress, strconv.Itoa(f.cfg.RelayPort))

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "localhost"
	}

	conn, err := net.DialTimeout("tcp", relayAddr, 10*time.Second)
	if err != nil {
		return fmt.Errorf("failed to connect to relay: %w", err)
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
	if _, err := wc.Write(data); err != nil {
		wc.Close()
		return fmt.Errorf("failed to send email data: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	if err := c.Quit(); err != nil {
		// the message is already accepted at this point
		f.logger.Warn("QUIT command failed", zap.Error(err))
	}

	return nil
}

// rewriteMessage prepends extra header lines and optionally replaces the
// Subject header, leaving every other byte of the message untouched
func rewriteMessage(raw []byte, extra []string, newSubject string) []byte {
	header, body := splitMessage(raw)

	var out bytes.Buffer
	for _, line := range extra {
		out.WriteString(line)
	}

	if newSubject == "" {
		out.Write(header)
	} else {
		out.Write(replaceSubject(header, newSubject))
	}

	out.WriteString("\r\n")
	out.Write(body)
	return out.Bytes()
}

// replaceSubject swaps the Subject header, including folded continuation lines
func replaceSubject(header []byte, subject string) []byte {
	lines := bytes.SplitAfter(header, []byte("\n"))

	var out bytes.Buffer
	replaced := false
	skipping := false
	for _, line := range lines {
		if len(line) == 0 {
			continue
		}
		if skipping && (line[0] == ' ' || line[0] == '\t') {
			continue
		}
		skipping = false

		if !replaced && len(line) >= 8 && strings.EqualFold(string(line[:8]), "subject:") {
			out.WriteString(headerLine("Subject", subject))
			replaced = true
			skipping = true
			continue
		}
		out.Write(line)
	}

	if !replaced {
		out.WriteString(headerLine("Subject", subject))
	}
	return out.Bytes()
}

// headerLine formats a header, flattening any line breaks in the value
func headerLine(name, value string) string {
	value = strings.NewReplacer("\r", " ", "\n", " ").Replace(value)
	return name + ": " + value + "\r\n"
}

func senderDomain(sender string) string {
	if parts := strings.Split(sender, "@"); len(parts) == 2 {
		return parts[1]
	}
	return "unknown"
}

// smtpBackend implements the go-smtp Backend interface
type smtpBackend struct {
	filter *SMTPFilter
}

// NewSession creates a new SMTP session
func (b *smtpBackend) NewSession(_ *smtp.Conn) (smtp.Session, error) {
	return &smtpSession{filter: b.filter}, nil
}

// smtpSession implements the go-smtp Session interface
type smtpSession struct {
	filter     *SMTPFilter
	sender     string
	recipients []string
}

// Reset resets the session state
func (s *smtpSession) Reset() {
	s.sender = ""
	s.recipients = nil
}

// AuthPlain rejects authentication; the filter only talks to its MTA
func (s *smtpSession) AuthPlain(_, _ string) error {
	return smtp.ErrAuthUnsupported
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

// Data analyzes, tags and relays the message
func (s *smtpSession) Data(r io.Reader) error {
	raw, err := io.ReadAll(r)
	if err != nil {
		s.filter.logger.Error("Failed to read message data", zap.Error(err))
		return err
	}

	tagged, err := s.filter.process(context.Background(), s.sender, raw)
	if err != nil {
		return err
	}

	if !s.filter.cfg.RelayEnabled {
		s.filter.logger.Warn("Relay disabled, dropping tagged message", zap.String("sender", s.sender))
		return nil
	}

	if err := s.filter.deliver(s.sender, s.recipients, tagged); err != nil {
		s.filter.logger.Error("Failed to relay email",
			zap.Error(err),
			zap.String("sender", s.sender))
		return err
	}
	return nil
}

// Logout handles SMTP logout
func (s *smtpSession) Logout() error {
	return nil
}
