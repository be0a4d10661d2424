// Copyright 2026 The securityd Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config describes the configuration of the securityd daemon.
package config

import (
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	opentracing "github.com/opentracing/opentracing-go"
	jaeger "github.com/uber/jaeger-client-go"
	jaegercfg "github.com/uber/jaeger-client-go/config"

	"github.com/securityd/securityd/pkg/log"
	"github.com/securityd/securityd/pkg/private/serrors"
	"github.com/securityd/securityd/pkg/private/util"
	"github.com/securityd/securityd/pkg/revocation"
	"github.com/securityd/securityd/private/config"
	"github.com/securityd/securityd/private/storage"
	trustcfg "github.com/securityd/securityd/private/trust/config"
	"github.com/securityd/securityd/securityd/ipc"
)

const (
	// DefaultID is the service name reported to the tracing agent.
	DefaultID = "securityd"
	// DefaultValidInfoSize is the default capacity of the revocation result cache.
	DefaultValidInfoSize = 4096
	// DefaultCleanerInterval is the default interval between purges of
	// expired revocation results.
	DefaultCleanerInterval = 5 * time.Minute
)

var _ config.Config = (*Config)(nil)

// Config is the securityd configuration.
type Config struct {
	General    General          `toml:"general,omitempty"`
	Logging    log.Config       `toml:"log,omitempty"`
	Metrics    Metrics          `toml:"metrics,omitempty"`
	Tracing    Tracing          `toml:"tracing,omitempty"`
	TrustDB    storage.DBConfig `toml:"trust_db,omitempty"`
	Trust      trustcfg.Config  `toml:"trust,omitempty"`
	Revocation Revocation       `toml:"revocation,omitempty"`
}

// InitDefaults initializes the default values for all parts of the config.
func (cfg *Config) InitDefaults() {
	config.InitAll(
		&cfg.General,
		&cfg.Logging,
		&cfg.Tracing,
		&cfg.TrustDB,
		&cfg.Trust,
		&cfg.Revocation,
	)
}

// Validate validates all parts of the config.
func (cfg *Config) Validate() error {
	return config.ValidateAll(
		&cfg.General,
		&cfg.Logging,
		&cfg.TrustDB,
		&cfg.Trust,
		&cfg.Revocation,
	)
}

// Sample generates a sample config file for securityd.
func (cfg *Config) Sample(dst io.Writer, path config.Path, ctx config.CtxMap) {
	config.WriteSample(dst, path, ctx,
		&cfg.General,
		config.StringSampler{Text: logSample, Name: "log"},
		&cfg.Metrics,
		&cfg.Tracing,
		&cfg.TrustDB,
		&cfg.Trust,
		&cfg.Revocation,
	)
}

// Load reads the TOML file, applies defaults and validates the result.
func Load(file string) (*Config, error) {
	var cfg Config
	if err := config.LoadFile(file, &cfg); err != nil {
		return nil, err
	}
	cfg.InitDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, serrors.Wrap("validating config", err, "file", file)
	}
	return &cfg, nil
}

// General holds the service identity and the IPC listen address.
type General struct {
	// ID names the service towards the tracing agent.
	ID string `toml:"id,omitempty"`
	// Address is a unix socket path (starting with "/") or a host:port.
	Address string `toml:"address,omitempty"`
}

func (cfg *General) InitDefaults() {
	if cfg.ID == "" {
		cfg.ID = DefaultID
	}
	if cfg.Address == "" {
		cfg.Address = ipc.DefaultAddress
	}
}

func (cfg *General) Validate() error {
	if strings.HasPrefix(cfg.Address, "/") {
		return nil
	}
	if _, _, err := net.SplitHostPort(cfg.Address); err != nil {
		return serrors.Wrap("invalid address", err, "address", cfg.Address)
	}
	return nil
}

func (cfg *General) Sample(dst io.Writer, _ config.Path, _ config.CtxMap) {
	config.WriteString(dst, generalSample)
}

func (cfg *General) ConfigName() string {
	return "general"
}

// Metrics configures the HTTP endpoint exposing /metrics and /status.
type Metrics struct {
	// Prometheus is the HTTP listen address. If not set, nothing is served.
	Prometheus string `toml:"prometheus,omitempty"`
}

func (cfg *Metrics) Sample(dst io.Writer, _ config.Path, _ config.CtxMap) {
	config.WriteString(dst, metricsSample)
}

func (cfg *Metrics) ConfigName() string {
	return "metrics"
}

// Tracing contains configuration for tracing.
type Tracing struct {
	// Enabled enables tracing.
	Enabled bool `toml:"enabled,omitempty"`
	// Debug samples every span.
	Debug bool `toml:"debug,omitempty"`
	// Agent is the address of the local agent that handles the reported
	// traces. (default: localhost:6831)
	Agent string `toml:"agent,omitempty"`
}

func (cfg *Tracing) InitDefaults() {
	if cfg.Agent == "" {
		cfg.Agent = net.JoinHostPort(
			jaeger.DefaultUDPSpanServerHost,
			strconv.Itoa(jaeger.DefaultUDPSpanServerPort),
		)
	}
}

func (cfg *Tracing) Sample(dst io.Writer, _ config.Path, _ config.CtxMap) {
	config.WriteString(dst, tracingSample)
}

func (cfg *Tracing) ConfigName() string {
	return "tracing"
}

// NewTracer creates a new Tracer for the given configuration. In case tracing
// is disabled this still returns noop-objects for convenience of the caller.
func (cfg *Tracing) NewTracer(id string) (opentracing.Tracer, io.Closer, error) {
	traceConfig := jaegercfg.Configuration{
		ServiceName: id,
		Disabled:    !cfg.Enabled,
		Reporter: &jaegercfg.ReporterConfig{
			LocalAgentHostPort: cfg.Agent,
		},
	}
	if cfg.Debug {
		traceConfig.Sampler = &jaegercfg.SamplerConfig{
			Type:  jaeger.SamplerTypeConst,
			Param: 1,
		}
	}
	bp := jaeger.NewBinaryPropagator(nil)
	return traceConfig.NewTracer(
		jaegercfg.Extractor(opentracing.Binary, bp),
		jaegercfg.Injector(opentracing.Binary, bp))
}

// Revocation configures certificate revocation checking.
type Revocation struct {
	FailureMode revocation.FailureMode `toml:"failure_mode,omitempty"`
	PreferCRL   bool                   `toml:"prefer_crl,omitempty"`
	// ValidInfoSize bounds the number of cached revocation results.
	ValidInfoSize int `toml:"valid_info_size,omitempty"`
	// CleanerInterval is the period between purges of expired results.
	CleanerInterval util.DurWrap `toml:"cleaner_interval,omitempty"`
	// Concurrency bounds parallel checks within one chain. Zero means
	// unbounded.
	Concurrency int `toml:"concurrency,omitempty"`
}

func (cfg *Revocation) InitDefaults() {
	if cfg.ValidInfoSize == 0 {
		cfg.ValidInfoSize = DefaultValidInfoSize
	}
	if cfg.CleanerInterval.Duration == 0 {
		cfg.CleanerInterval.Duration = DefaultCleanerInterval
	}
}

func (cfg *Revocation) Validate() error {
	if cfg.ValidInfoSize <= 0 {
		return serrors.New("valid_info_size must be positive", "value", cfg.ValidInfoSize)
	}
	if cfg.CleanerInterval.Duration <= 0 {
		return serrors.New("cleaner_interval must be positive",
			"value", cfg.CleanerInterval.Duration)
	}
	if cfg.Concurrency < 0 {
		return serrors.New("concurrency must not be negative", "value", cfg.Concurrency)
	}
	return nil
}

func (cfg *Revocation) Sample(dst io.Writer, _ config.Path, _ config.CtxMap) {
	config.WriteString(dst, revocationSample)
}

func (cfg *Revocation) ConfigName() string {
	return "revocation"
}

// Policy returns the checker policy.
func (cfg *Revocation) Policy() revocation.Policy {
	return revocation.Policy{
		FailureMode: cfg.FailureMode,
		PreferCRL:   cfg.PreferCRL,
	}
}
