package client

import (
	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-bankconnect/core"
	"github.com/goliatone/go-bankconnect/transport"
)

type settings struct {
	config      core.Config
	channel     core.Channel
	logger      core.Logger
	metrics     core.MetricsRecorder
	redirectURI string
}

type Option func(*settings)

// WithConfig overrides the endpoint configuration, most usefully to point at
// a test server with its own certificate fingerprints.
func WithConfig(cfg core.Config) Option {
	return func(s *settings) {
		s.config = cfg
	}
}

// WithChannel injects a prebuilt channel instead of constructing a pinned one
// from the configuration.
func WithChannel(channel core.Channel) Option {
	return func(s *settings) {
		s.channel = channel
	}
}

func WithLogger(logger core.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

func WithMetricsRecorder(recorder core.MetricsRecorder) Option {
	return func(s *settings) {
		s.metrics = recorder
	}
}

// WithRedirectURI sets the OAuth redirect target embedded in login URLs and
// authorization-code exchanges. Only meaningful on a Connection.
func WithRedirectURI(redirectURI string) Option {
	return func(s *settings) {
		s.redirectURI = redirectURI
	}
}

func buildSettings(opts []Option) settings {
	s := settings{config: core.DefaultConfig()}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&s)
	}
	return s
}

// resolve fills in the channel and logger when the caller did not provide
// them. The label names the owning object in concurrency errors.
func (s *settings) resolve(label string, loggerName string) error {
	if s.logger == nil {
		_, logger := glog.Resolve(loggerName, nil, nil)
		s.logger = glog.Ensure(logger)
	}
	if s.metrics == nil {
		s.metrics = core.NopMetricsRecorder{}
	}
	if s.channel == nil {
		channel, err := transport.NewChannel(
			s.config,
			transport.WithLabel(label),
			transport.WithLogger(s.logger),
			transport.WithMetricsRecorder(s.metrics),
		)
		if err != nil {
			return err
		}
		s.channel = channel
	}
	return nil
}
