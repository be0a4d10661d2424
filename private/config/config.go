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

// Package config defines how securityd configuration blocks are defaulted,
// validated and sampled, and decodes TOML configuration files.
//
// Every block implements Config. Composite blocks call InitAll, ValidateAll
// and WriteSample on their children.
package config

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/securityd/securityd/pkg/private/serrors"
)

// Config is implemented by every configuration block.
type Config interface {
	Sampler
	Validator
	Defaulter
}

// Validator checks a block and its children.
type Validator interface {
	Validate() error
}

// Defaulter fills unset fields of a block and its children.
type Defaulter interface {
	InitDefaults()
}

// Sampler writes a commented example of a block. Write errors panic.
type Sampler interface {
	Sample(dst io.Writer, path Path, ctx CtxMap)
}

// TableSampler is a Sampler whose sample lives in its own TOML table.
type TableSampler interface {
	Sampler
	ConfigName() string
}

// Path is the sequence of table names leading to a block.
type Path []string

// Extend returns p with name appended. p is not modified.
func (p Path) Extend(name string) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, name)
}

// StringSampler samples a fixed text as table Name.
type StringSampler struct {
	Text string
	Name string
}

func (s StringSampler) Sample(dst io.Writer, _ Path, _ CtxMap) { WriteString(dst, s.Text) }

func (s StringSampler) ConfigName() string { return s.Name }

// ValidateAll returns the first validation error, annotated with the type of
// the failing block.
func ValidateAll(validators ...Validator) error {
	for _, v := range validators {
		if err := v.Validate(); err != nil {
			return serrors.Wrap("invalid configuration", err, "block", fmt.Sprintf("%T", v))
		}
	}
	return nil
}

// InitAll calls InitDefaults on every defaulter in order.
func InitAll(defaulters ...Defaulter) {
	for _, d := range defaulters {
		d.InitDefaults()
	}
}

// Decode decodes TOML into cfg and rejects keys that cfg does not declare.
func Decode(raw []byte, cfg any) error {
	dec := toml.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	return dec.Decode(cfg)
}

// LoadFile decodes the TOML file into cfg.
func LoadFile(file string, cfg any) error {
	raw, err := os.ReadFile(file)
	if err != nil {
		return serrors.Wrap("reading config file", err, "file", file)
	}
	if err := Decode(raw, cfg); err != nil {
		return serrors.Wrap("decoding config file", err, "file", file)
	}
	return nil
}
