package factory

import (
	"fmt"
	"strings"

	"github.com/mikey/phish-guard/internal/adapters/filter"
	"github.com/mikey/phish-guard/internal/adapters/httpapi"
	"github.com/mikey/phish-guard/internal/config"
	"github.com/mikey/phish-guard/internal/metrics"
	"github.com/mikey/phish-guard/internal/ports"
	"go.uber.org/zap"
)

// FilterFactory creates the network listeners named by server.listeners
type FilterFactory struct {
	cfg      *config.Config
	logger   *zap.Logger
	detector ports.Detector
	recorder *metrics.Recorder
}

// NewFilterFactory creates a new filter factory
func NewFilterFactory(cfg *config.Config, logger *zap.Logger, detector ports.Detector, recorder *metrics.Recorder) *FilterFactory {
	return &FilterFactory{
		cfg:      cfg,
		logger:   logger,
		detector: detector,
		recorder: recorder,
	}
}

// CreateListeners creates every configured listener
func (f *FilterFactory) CreateListeners() ([]ports.Listener, error) {
	names := f.cfg.GetServer().Listeners
	if len(names) == 0 {
		return nil, fmt.Errorf("no listeners configured")
	}

	listeners := make([]ports.Listener, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		if seen[name] {
			continue
		}
		seen[name] = true

		l, err := f.CreateListener(name)
		if err != nil {
			return nil, err
		}
		listeners = append(listeners, l)
	}
	return listeners, nil
}

// CreateListener creates a single listener by name
func (f *FilterFactory) CreateListener(name string) (ports.Listener, error) {
	switch name {
	case "http":
		httpCfg := f.cfg.GetServer().HTTP
		return httpapi.NewServer(f.detector, f.recorder, f.logger.Named("http"), httpapi.Config{
			ListenAddress:   httpCfg.ListenAddress,
			AllowedOrigins:  httpCfg.AllowedOrigins,
			MaxBodyBytes:    httpCfg.MaxBodyBytes,
			ReadTimeout:     httpCfg.ReadTimeout,
			WriteTimeout:    httpCfg.WriteTimeout,
			ShutdownTimeout: httpCfg.ShutdownTimeout,
		}), nil
	case "smtp":
		smtpCfg := f.cfg.GetSMTP()
		return filter.NewSMTPFilter(f.detector, f.recorder, f.logger.Named("smtp"), filter.SMTPConfig{
			ListenAddress:    smtpCfg.ListenAddress,
			BlockPhishing:    smtpCfg.BlockPhishing,
			StatusHeader:     smtpCfg.StatusHeader,
			ConfidenceHeader: smtpCfg.ConfidenceHeader,
			ErrorHeader:      smtpCfg.ErrorHeader,
			ModifySubject:    smtpCfg.ModifySubject,
			SubjectPrefix:    smtpCfg.SubjectPrefix,
			RelayEnabled:     smtpCfg.RelayEnabled,
			RelayAddress:     smtpCfg.RelayAddress,
			RelayPort:        smtpCfg.RelayPort,
			AnalysisTimeout:  smtpCfg.AnalysisTimeout,
			MaxMessageBytes:  smtpCfg.MaxMessageBytes,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported listener type: %s", name)
	}
}
