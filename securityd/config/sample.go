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

const generalSample = `
# Service name reported to the tracing agent. (default "securityd")
id = "securityd"

# IPC listen address. A path starting with "/" is a unix socket, anything
# else is a TCP host:port. (default "/run/securityd/securityd.sock")
address = "/run/securityd/securityd.sock"
`

const logSample = `
[log.console]
# Console logging level (debug|info|error). (default info)
level = "info"

# Console logging format (human|json). (default human)
format = "human"
`

const metricsSample = `
# The address to serve /metrics and /status on (host:port or ip:port or :port).
# If not set, nothing is served. (default "")
prometheus = ""
`

const tracingSample = `
# Enable the tracing. (default false)
enabled = false
# Enable debug mode. (default false)
debug = false
# Address of the local agent that handles the reported traces.
# (default: localhost:6831)
agent = "localhost:6831"
`

const revocationSample = `
# Verdict for certificates whose revocation status cannot be determined
# (fail_open|fail_closed). (default fail_open)
failure_mode = "fail_open"

# Consult the CRL before OCSP. (default false)
prefer_crl = false

# Maximum number of cached revocation results. (default 4096)
valid_info_size = 4096

# Interval between purges of expired revocation results. (default 5m)
cleaner_interval = "5m"

# Maximum number of concurrent checks per chain, 0 for no limit. (default 0)
concurrency = 0
`
