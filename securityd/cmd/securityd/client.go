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

package main

import (
	"context"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/securityd/securityd/pkg/private/serrors"
	"github.com/securityd/securityd/pkg/revocation"
	"github.com/securityd/securityd/pkg/trust"
	"github.com/securityd/securityd/private/app/command"
	"github.com/securityd/securityd/securityd/ipc"
)

const defaultPolicy = "1.2.840.113635.100.1.2"

type clientFlags struct {
	address string
	timeout time.Duration
}

func (f *clientFlags) register(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&f.address, "address", ipc.DefaultAddress,
		"Daemon address, a unix socket path or host:port")
	cmd.PersistentFlags().DurationVar(&f.timeout, "timeout", 10*time.Second,
		"Timeout for the request")
}

func (f *clientFlags) dial(ctx context.Context) (*ipc.Client, context.Context,
	context.CancelFunc, error) {

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	client, err := ipc.Dial(ctx, f.address)
	if err != nil {
		cancel()
		return nil, nil, nil, serrors.Wrap("connecting to daemon", err, "address", f.address)
	}
	return client, ctx, cancel, nil
}

func newTrust(pather command.Pather) *cobra.Command {
	var flags clientFlags
	var policy string
	cmd := &cobra.Command{
		Use:   "trust",
		Short: "Inspect and assign certificate trust decisions",
	}
	flags.register(cmd)
	cmd.PersistentFlags().StringVar(&policy, "policy", defaultPolicy,
		"Policy OID of the decision in dotted form")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "find <cert-file>",
			Short: "Show the trust decision for a certificate",
			Example: fmt.Sprintf("  %[1]s trust find server.pem\n"+
				"  %[1]s trust find --policy 1.2.840.113635.100.1.3 server.pem",
				pather.CommandPath()),
			Args: cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				req, err := trustRequest(args[0], policy)
				if err != nil {
					return err
				}
				client, ctx, cancel, err := flags.dial(cmd.Context())
				if err != nil {
					return err
				}
				defer cancel()
				defer client.Close()
				resp, err := client.FindTrust(ctx, &ipc.FindTrustRequest{
					Fingerprint: req.Fingerprint,
					PolicyOID:   req.PolicyOID,
				})
				if err != nil {
					return serrors.Wrap("finding trust decision", err)
				}
				printDecision(cmd.OutOrStdout(), req, resp.Decision)
				return nil
			},
		},
		&cobra.Command{
			Use:   "assign <cert-file> <decision>",
			Short: "Assign a trust decision to a certificate",
			Long: `'assign' stores a trust decision for the certificate and policy.

Decisions are proceed, deny, confirmed_by_user, ask_user and unspecified.`,
			Example: fmt.Sprintf("  %s trust assign server.pem proceed", pather.CommandPath()),
			Args:    cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				d, err := trust.ParseDecision(args[1])
				if err != nil {
					return err
				}
				req, err := trustRequest(args[0], policy)
				if err != nil {
					return err
				}
				req.Decision = d
				client, ctx, cancel, err := flags.dial(cmd.Context())
				if err != nil {
					return err
				}
				defer cancel()
				defer client.Close()
				if _, err := client.AssignTrust(ctx, req); err != nil {
					return serrors.Wrap("assigning trust decision", err)
				}
				printDecision(cmd.OutOrStdout(), req, d)
				return nil
			},
		},
	)
	return cmd
}

func trustRequest(file, policy string) (*ipc.AssignTrustRequest, error) {
	certs, err := loadCerts(file)
	if err != nil {
		return nil, err
	}
	oid, err := trust.EncodePolicyOID(policy)
	if err != nil {
		return nil, err
	}
	return &ipc.AssignTrustRequest{
		Fingerprint: trust.Fingerprint(certs[0]),
		PolicyOID:   oid,
	}, nil
}

func printDecision(w io.Writer, req *ipc.AssignTrustRequest, d trust.Decision) {
	c := color.New(color.FgYellow)
	switch d {
	case trust.Proceed, trust.ConfirmedByUser:
		c = color.New(color.FgGreen)
	case trust.Deny, trust.Invalid:
		c = color.New(color.FgRed)
	}
	fmt.Fprintf(w, "fingerprint: %s\n", hex.EncodeToString(req.Fingerprint))
	fmt.Fprintf(w, "policy:      %s\n", trust.FormatPolicyOID(req.PolicyOID))
	fmt.Fprint(w, "decision:    ")
	c.Fprintln(w, d)
}

func newRoots(pather command.Pather) *cobra.Command {
	var flags clientFlags
	var refresh bool
	cmd := &cobra.Command{
		Use:     "roots",
		Short:   "List the root anchors known to the daemon",
		Example: fmt.Sprintf("  %s roots --refresh", pather.CommandPath()),
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, ctx, cancel, err := flags.dial(cmd.Context())
			if err != nil {
				return err
			}
			defer cancel()
			defer client.Close()
			resp, err := client.CopyRoots(ctx, &ipc.CopyRootsRequest{Refresh: refresh})
			if err != nil {
				return serrors.Wrap("copying root anchors", err)
			}
			certs := make([]*x509.Certificate, 0, len(resp.Roots))
			for _, der := range resp.Roots {
				c, err := x509.ParseCertificate(der)
				if err != nil {
					return serrors.Wrap("parsing root anchor", err)
				}
				certs = append(certs, c)
			}
			renderRoots(cmd.OutOrStdout(), certs)
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&refresh, "refresh", false, "Reload the anchors from disk first")
	return cmd
}

func renderRoots(w io.Writer, certs []*x509.Certificate) {
	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetBorder(false)
	table.SetHeaderLine(false)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeader([]string{"SUBJECT", "FINGERPRINT", "NOT AFTER"})
	for _, c := range certs {
		table.Append([]string{
			c.Subject.String(),
			hex.EncodeToString(trust.Fingerprint(c))[:16],
			c.NotAfter.UTC().Format(time.RFC3339),
		})
	}
	table.Render()
}

func newRevocation(pather command.Pather) *cobra.Command {
	var flags clientFlags
	var offline struct {
		enabled    bool
		ocsp       string
		crl        string
		failClosed bool
		preferCRL  bool
	}
	cmd := &cobra.Command{
		Use:   "revocation",
		Short: "Check certificate revocation",
	}
	flags.register(cmd)
	check := &cobra.Command{
		Use:   "check <chain-file>",
		Short: "Check the revocation status of a certificate chain",
		Long: `'check' verifies every certificate of the chain, leaf first, against OCSP and
CRL sources. The last certificate is the anchor and is not checked.

By default the daemon performs the check. With --offline the check runs in
process; --ocsp and --crl replace the network fetch with a response file.`,
		Example: fmt.Sprintf("  %[1]s revocation check chain.pem\n"+
			"  %[1]s revocation check --offline --crl inter.crl chain.pem",
			pather.CommandPath()),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			chain, err := loadCerts(args[0])
			if err != nil {
				return err
			}
			if len(chain) < 2 {
				return serrors.New("chain needs at least a leaf and an anchor",
					"certificates", len(chain))
			}
			var resp *ipc.CheckChainResponse
			if offline.enabled {
				c := &revocation.Checker{
					Policy: revocation.Policy{PreferCRL: offline.preferCRL},
				}
				if offline.failClosed {
					c.Policy.FailureMode = revocation.FailClosed
				}
				fetcher := revocation.HTTPFetcher{Timeout: flags.timeout}
				c.OCSP, c.CRL = fetcher.OCSP(), fetcher.CRL()
				if offline.ocsp != "" {
					c.OCSP = revocation.FileFetcher(offline.ocsp)
				}
				if offline.crl != "" {
					c.CRL = revocation.FileFetcher(offline.crl)
				}
				resp, err = checkLocal(cmd.Context(), c, chain)
			} else {
				resp, err = checkRemote(cmd.Context(), &flags, chain)
			}
			if err != nil {
				return err
			}
			renderChain(cmd.OutOrStdout(), chain, resp)
			return nil
		},
	}
	check.Flags().BoolVar(&offline.enabled, "offline", false,
		"Check in process instead of asking the daemon")
	check.Flags().StringVar(&offline.ocsp, "ocsp", "", "OCSP response file (offline only)")
	check.Flags().StringVar(&offline.crl, "crl", "", "CRL file (offline only)")
	check.Flags().BoolVar(&offline.failClosed, "fail-closed", false,
		"Reject certificates without a definitive verdict (offline only)")
	check.Flags().BoolVar(&offline.preferCRL, "prefer-crl", false,
		"Consult the CRL before OCSP (offline only)")
	cmd.AddCommand(check)
	return cmd
}

func checkLocal(ctx context.Context, c *revocation.Checker,
	chain []*x509.Certificate) (*ipc.CheckChainResponse, error) {

	res, err := c.CheckChain(ctx, chain)
	if err != nil {
		return nil, err
	}
	resp := &ipc.CheckChainResponse{Revoked: res.Revoked, Accepted: res.Accepted}
	if res.HasNextUpdate {
		resp.NextUpdate = res.NextUpdate
	}
	for _, rvc := range res.Contexts {
		resp.States = append(resp.States, rvc.State())
	}
	return resp, nil
}

func checkRemote(ctx context.Context, flags *clientFlags,
	chain []*x509.Certificate) (*ipc.CheckChainResponse, error) {

	client, ctx, cancel, err := flags.dial(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()
	defer client.Close()
	req := &ipc.CheckChainRequest{}
	for _, c := range chain {
		req.Chain = append(req.Chain, c.Raw)
	}
	resp, err := client.CheckChain(ctx, req)
	if err != nil {
		return nil, serrors.Wrap("checking chain", err)
	}
	return resp, nil
}

func renderChain(w io.Writer, chain []*x509.Certificate, resp *ipc.CheckChainResponse) {
	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetBorder(false)
	table.SetHeaderLine(false)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeader([]string{"", "SUBJECT", "STATE"})
	for i, s := range resp.States {
		subject := ""
		if i < len(chain) {
			subject = chain[i].Subject.String()
		}
		table.Append([]string{fmt.Sprintf("[%d]", i), subject, s.String()})
	}
	table.Render()

	verdict := color.New(color.FgGreen).Sprint("accepted")
	if !resp.Accepted {
		verdict = color.New(color.FgRed).Sprint("rejected")
	}
	fmt.Fprintf(w, "verdict: %s\n", verdict)
	if !resp.NextUpdate.IsZero() {
		fmt.Fprintf(w, "next update: %s\n", resp.NextUpdate.Format(time.RFC3339))
	}
}

// loadCerts reads PEM or DER certificates from file.
func loadCerts(file string) ([]*x509.Certificate, error) {
	raw, err := os.ReadFile(file)
	if err != nil {
		return nil, serrors.Wrap("reading certificate file", err, "file", file)
	}
	var certs []*x509.Certificate
	for rest := raw; ; {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		c, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, serrors.Wrap("parsing certificate", err, "file", file)
		}
		certs = append(certs, c)
	}
	if len(certs) == 0 {
		c, err := x509.ParseCertificate(raw)
		if err != nil {
			return nil, serrors.New("no certificate found", "file", file)
		}
		certs = append(certs, c)
	}
	return certs, nil
}
