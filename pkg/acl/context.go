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

package acl

import (
	"context"

	"github.com/securityd/securityd/pkg/secret"
)

// Sample is one credential presented by a caller. The kind selects which
// subjects consider it.
type Sample struct {
	Kind   Kind
	Values []secret.Value
}

// Environment describes the calling process.
type Environment struct {
	UID uint32
	GID uint32
	PID int
}

// ProtectedPath obtains a secret from the user through a channel the caller
// cannot observe, such as a secure keypad.
type ProtectedPath interface {
	ReadSecret(ctx context.Context, prompt string) (*secret.Bytes, error)
}

// Context carries everything a subject may consult during validation.
type Context struct {
	// Ctx is used for blocking collaborators. Defaults to context.Background.
	Ctx context.Context
	// Samples are the presented credentials.
	Samples []Sample
	// Env is the calling process environment. Nil if unknown.
	Env *Environment
	// Challenge is the data that key subjects expect a signature over.
	Challenge []byte
	// Path is the protected path. Nil if none is available.
	Path ProtectedPath
}

// SamplesOf returns the samples of the given kind in presentation order.
func (c *Context) SamplesOf(kind Kind) []Sample {
	if c == nil {
		return nil
	}
	var r []Sample
	for _, s := range c.Samples {
		if s.Kind == kind {
			r = append(r, s)
		}
	}
	return r
}

func (c *Context) ctx() context.Context {
	if c == nil || c.Ctx == nil {
		return context.Background()
	}
	return c.Ctx
}

// Destroy erases all sample values.
func (c *Context) Destroy() {
	if c == nil {
		return
	}
	for _, s := range c.Samples {
		for _, v := range s.Values {
			if v != nil {
				v.Destroy()
			}
		}
	}
}
