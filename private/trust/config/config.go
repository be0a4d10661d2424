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

// Package config holds the trust store configuration block.
package config

import (
	"io"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/securityd/securityd/pkg/private/serrors"
	"github.com/securityd/securityd/pkg/private/util"
	"github.com/securityd/securityd/pkg/trust"
	"github.com/securityd/securityd/private/config"
)

const (
	defaultExpiration = time.Minute
	// DefaultRootsDir is the default directory holding the root anchors.
	DefaultRootsDir = "/etc/securityd/roots"
)

var _ config.Config = (*Config)(nil)

type Config struct {
	// RootsDir is the directory the root anchors are loaded from.
	RootsDir string `toml:"roots_dir,omitempty"`
	Cache    Cache  `toml:"cache"`
}

func (cfg *Config) InitDefaults() {
	if cfg.RootsDir == "" {
		cfg.RootsDir = DefaultRootsDir
	}
	config.InitAll(&cfg.Cache)
}

func (cfg *Config) Validate() error {
	if cfg.RootsDir == "" {
		return serrors.New("roots_dir must be set")
	}
	return config.ValidateAll(&cfg.Cache)
}

func (cfg *Config) Sample(dst io.Writer, path config.Path, ctx config.CtxMap) {
	config.WriteString(dst, `
# The directory holding the root anchors (*.pem, *.crt, *.der).
# (default /etc/securityd/roots)
roots_dir = "/etc/securityd/roots"
`)
	config.WriteSample(dst, path, ctx, &cfg.Cache)
}

func (cfg *Config) ConfigName() string {
	return "trust"
}

// Loader returns the root loader for the configured directory.
func (cfg *Config) Loader() *trust.DirLoader {
	return &trust.DirLoader{Dir: cfg.RootsDir}
}

// Options returns the store options derived from the configuration.
func (cfg *Config) Options() []trust.Option {
	if c := cfg.Cache.New(); c != nil {
		return []trust.Option{trust.WithCache(c)}
	}
	return nil
}

type Cache struct {
	Disable    bool         `toml:"disable,omitempty"`
	Expiration util.DurWrap `toml:"expiration,omitempty"`
}

// New creates the decision cache, or nil if caching is disabled.
func (cfg *Cache) New() *cache.Cache {
	if cfg.Disable {
		return nil
	}
	return trust.NewCache(cfg.Expiration.Duration)
}

func (cfg *Cache) InitDefaults() {
	if cfg.Expiration.Duration == 0 {
		cfg.Expiration.Duration = defaultExpiration
	}
}

func (cfg *Cache) Validate() error {
	if cfg.Expiration.Duration < 0 {
		return serrors.New("negative cache expiration", "expiration", cfg.Expiration)
	}
	return nil
}

func (cfg *Cache) Sample(dst io.Writer, path config.Path, _ config.CtxMap) {
	config.WriteString(dst, `
# Disable caching of trust decisions.
disable = false

# How long a cached decision is kept.
expiration = "1m"
`)
}

func (cfg *Cache) ConfigName() string {
	return "cache"
}
