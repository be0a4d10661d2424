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

package launcher_test

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/securityd/securityd/pkg/log"
	"github.com/securityd/securityd/private/app/command"
	"github.com/securityd/securityd/private/app/launcher"
	"github.com/securityd/securityd/private/config"
)

type testConfig struct {
	Logging log.Config `toml:"log,omitempty"`
	Name    string     `toml:"name,omitempty"`
}

func (c *testConfig) InitDefaults() {
	if c.Name == "" {
		c.Name = "default"
	}
}

func (c *testConfig) Validate() error {
	if c.Name == "bad" {
		return assert.AnError
	}
	return nil
}

func (c *testConfig) Sample(dst io.Writer, _ config.Path, _ config.CtxMap) {
	config.WriteString(dst, "name = \"sample\"\n")
}

func writeConfig(t *testing.T, raw string) string {
	file := filepath.Join(t.TempDir(), "test.toml")
	require.NoError(t, os.WriteFile(file, []byte(raw), 0o600))
	return file
}

func TestSample(t *testing.T) {
	app := &launcher.Application{TOMLConfig: &testConfig{}}
	cmd := app.Command("testd")
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"sample"})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "name = \"sample\"\n", out.String())
}

func TestRun(t *testing.T) {
	testCases := map[string]struct {
		Raw       string
		UseEnv    bool
		NoConfig  bool
		WantName  string
		AssertErr assert.ErrorAssertionFunc
	}{
		"flag": {
			Raw:       "name = \"flag\"\n[log.console]\nlevel = \"debug\"\n",
			WantName:  "flag",
			AssertErr: assert.NoError,
		},
		"env": {
			Raw:       "[log.console]\nformat = \"json\"\n",
			UseEnv:    true,
			WantName:  "default",
			AssertErr: assert.NoError,
		},
		"missing config": {
			NoConfig:  true,
			AssertErr: assert.Error,
		},
		"invalid config": {
			Raw:       "name = \"bad\"\n",
			AssertErr: assert.Error,
		},
		"unknown key": {
			Raw:       "bogus = true\n",
			AssertErr: assert.Error,
		},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			cfg := &testConfig{}
			var ran bool
			app := &launcher.Application{
				TOMLConfig: cfg,
				EnvPrefix:  "launchertest",
				Main: func(ctx context.Context) error {
					ran = true
					return nil
				},
			}
			args := []string{"run"}
			t.Setenv("LAUNCHERTEST_CONFIG", "")
			if !tc.NoConfig {
				file := writeConfig(t, tc.Raw)
				if tc.UseEnv {
					t.Setenv("LAUNCHERTEST_CONFIG", file)
				} else {
					args = append(args, "--config", file)
				}
			}
			err := app.Execute(context.Background(), args)
			tc.AssertErr(t, err)
			if err != nil {
				assert.False(t, ran)
				return
			}
			assert.True(t, ran)
			assert.Equal(t, tc.WantName, cfg.Name)
		})
	}
}

func TestMainError(t *testing.T) {
	app := &launcher.Application{
		TOMLConfig: &testConfig{},
		Main: func(ctx context.Context) error {
			return assert.AnError
		},
	}
	err := app.Execute(context.Background(),
		[]string{"run", "--config", writeConfig(t, "")})
	assert.ErrorIs(t, err, assert.AnError)
}

func TestCommands(t *testing.T) {
	var path string
	app := &launcher.Application{
		TOMLConfig: &testConfig{},
		Commands: []func(command.Pather) *cobra.Command{
			func(p command.Pather) *cobra.Command {
				return &cobra.Command{
					Use: "extra",
					RunE: func(cmd *cobra.Command, _ []string) error {
						path = p.CommandPath()
						return nil
					},
				}
			},
		},
	}
	require.NoError(t, app.Execute(context.Background(), []string{"extra"}))
	assert.Equal(t, filepath.Base(os.Args[0]), path)
}

func TestGendocs(t *testing.T) {
	dir := t.TempDir()
	app := &launcher.Application{TOMLConfig: &testConfig{}}
	cmd := app.Command("testd")
	cmd.SetArgs([]string{"gendocs", dir})
	require.NoError(t, cmd.Execute())
	for _, f := range []string{"testd.md", "testd_run.md", "testd_sample.md"} {
		assert.FileExists(t, filepath.Join(dir, f))
	}
}
