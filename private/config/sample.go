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

package config

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"
)

// CtxMap carries values that samplers may substitute into their text.
type CtxMap map[string]string

// WriteSample writes the samples in order. A TableSampler is emitted under
// its own [table] header with its body indented.
func WriteSample(dst io.Writer, path Path, ctx CtxMap, samplers ...Sampler) {
	for _, s := range samplers {
		var body bytes.Buffer
		ts, ok := s.(TableSampler)
		if !ok {
			s.Sample(&body, path, ctx)
			WriteString(dst, body.String())
			continue
		}
		table := path.Extend(ts.ConfigName())
		WriteString(dst, "\n["+strings.Join(table, ".")+"]\n")
		ts.Sample(&body, table, ctx)
		indent(dst, &body)
	}
}

// WriteString writes s to dst and panics on failure.
func WriteString(dst io.Writer, s string) {
	if _, err := io.WriteString(dst, s); err != nil {
		panic(fmt.Sprintf("writing config sample: %s", err))
	}
}

func indent(dst io.Writer, src io.Reader) {
	lines := bufio.NewScanner(src)
	for lines.Scan() {
		line := lines.Text()
		if line != "" {
			line = "    " + line
		}
		WriteString(dst, line+"\n")
	}
}
