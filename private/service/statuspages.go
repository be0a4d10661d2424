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

// Package service contains the HTTP status pages shared by securityd
// binaries.
package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"runtime/debug"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pelletier/go-toml/v2"

	"github.com/securityd/securityd/pkg/private/serrors"
)

// StatusPage describes a page served on the status endpoint.
type StatusPage struct {
	// Info is a short description shown on the index page.
	Info string
	// Handler serves the page.
	Handler http.HandlerFunc
}

// StatusPages maps page paths, relative to the root, to pages.
type StatusPages map[string]StatusPage

// Register adds the pages and an index at "/" to r. The index lists the pages
// under the title id.
func (s StatusPages) Register(r chi.Router, id string) error {
	pages := make([]string, 0, len(s))
	for p := range s {
		if p == "" || strings.HasPrefix(p, "/") {
			return serrors.New("invalid status page path", "path", p)
		}
		pages = append(pages, p)
	}
	sort.Strings(pages)

	var index bytes.Buffer
	fmt.Fprintf(&index, "%s\n\n", id)
	for _, p := range pages {
		fmt.Fprintf(&index, "/%-20s %s\n", p, s[p].Info)
	}
	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write(index.Bytes())
	})
	for _, p := range pages {
		r.Get("/"+p, s[p].Handler)
	}
	return nil
}

// NewConfigStatusPage returns a page that renders cfg as TOML.
func NewConfigStatusPage(cfg any) StatusPage {
	handler := func(w http.ResponseWriter, _ *http.Request) {
		raw, err := toml.Marshal(cfg)
		if err != nil {
			http.Error(w, "Unable to marshal config", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write(raw)
	}
	return StatusPage{
		Info:    "configuration of the service",
		Handler: handler,
	}
}

// NewInfoStatusPage returns a page with build and process information.
func NewInfoStatusPage() StatusPage {
	started := time.Now().UTC()
	handler := func(w http.ResponseWriter, _ *http.Request) {
		rep := struct {
			PID       int       `json:"pid"`
			Started   time.Time `json:"started"`
			Uptime    string    `json:"uptime"`
			GoVersion string    `json:"go_version,omitempty"`
			Module    string    `json:"module,omitempty"`
			Version   string    `json:"version,omitempty"`
		}{
			PID:     os.Getpid(),
			Started: started,
			Uptime:  time.Since(started).Truncate(time.Second).String(),
		}
		if bi, ok := debug.ReadBuildInfo(); ok {
			rep.GoVersion = bi.GoVersion
			rep.Module = bi.Main.Path
			rep.Version = bi.Main.Version
		}
		WriteJSON(w, rep)
	}
	return StatusPage{
		Info:    "build and process information",
		Handler: handler,
	}
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	if err := enc.Encode(v); err != nil {
		http.Error(w, "Unable to marshal response", http.StatusInternalServerError)
	}
}
