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
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	promgrpc "github.com/grpc-ecosystem/go-grpc-prometheus"
	opentracing "github.com/opentracing/opentracing-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/securityd/securityd/pkg/acl"
	sgrpc "github.com/securityd/securityd/pkg/grpc"
	"github.com/securityd/securityd/pkg/log"
	"github.com/securityd/securityd/pkg/private/processmetrics"
	"github.com/securityd/securityd/pkg/private/serrors"
	"github.com/securityd/securityd/pkg/revocation"
	"github.com/securityd/securityd/pkg/trust"
	"github.com/securityd/securityd/private/app/command"
	"github.com/securityd/securityd/private/app/launcher"
	"github.com/securityd/securityd/private/periodic"
	"github.com/securityd/securityd/private/service"
	"github.com/securityd/securityd/private/storage"
	"github.com/securityd/securityd/private/storage/cleaner"
	trustmetrics "github.com/securityd/securityd/private/storage/trust/metrics"
	"github.com/securityd/securityd/securityd/config"
	"github.com/securityd/securityd/securityd/internal/servers"
	"github.com/securityd/securityd/securityd/ipc"
)

// HandlerTimeout bounds the HTTP metrics handler.
const HandlerTimeout = time.Minute

var globalCfg config.Config

func main() {
	application := launcher.Application{
		TOMLConfig: &globalCfg,
		ShortName:  "securityd",
		EnvPrefix:  "securityd",
		Main:       realMain,
		Commands: []func(command.Pather) *cobra.Command{
			newTrust,
			newRoots,
			newRevocation,
		},
	}
	application.Run()
}

func realMain(ctx context.Context) error {
	tracer, closer, err := globalCfg.Tracing.NewTracer(globalCfg.General.ID)
	if err != nil {
		return serrors.Wrap("initializing tracer", err)
	}
	defer closer.Close()
	opentracing.SetGlobalTracer(tracer)

	trustDB, err := storage.NewTrustStorage(globalCfg.TrustDB,
		trustmetrics.NewMetrics(string(globalCfg.TrustDB.Backend)))
	if err != nil {
		return serrors.Wrap("initializing trust database", err)
	}
	store := trust.NewStore(trustDB, globalCfg.Trust.Loader(), globalCfg.Trust.Options()...)
	defer store.Close()
	if roots, err := store.RefreshRootCertificates(ctx); err != nil {
		log.Info("Root anchors not available yet", "dir", globalCfg.Trust.RootsDir, "err", err)
	} else {
		log.Info("Loaded root anchors", "dir", globalCfg.Trust.RootsDir, "count", roots.Len())
	}

	validInfo, err := revocation.NewValidInfoDB(globalCfg.Revocation.ValidInfoSize)
	if err != nil {
		return serrors.Wrap("initializing revocation cache", err)
	}
	interval := globalCfg.Revocation.CleanerInterval.Duration
	validInfoCleaner := periodic.Start(
		cleaner.New(validInfo.DeleteExpired, "revocation", cleaner.NewMetrics("revocation")),
		interval, interval)
	defer validInfoCleaner.Stop()
	fetcher := revocation.HTTPFetcher{}
	checker := &revocation.Checker{
		Policy:      globalCfg.Revocation.Policy(),
		OCSP:        fetcher.OCSP(),
		CRL:         fetcher.CRL(),
		DB:          validInfo,
		Metrics:     revocation.NewMetrics(),
		Concurrency: globalCfg.Revocation.Concurrency,
	}

	acls := &servers.ACLTable{}
	var handler http.Handler
	if globalCfg.Metrics.Prometheus != "" {
		if handler, err = newHTTPHandler(statusPages(acls, store, validInfo)); err != nil {
			return err
		}
	}
	listener, err := sgrpc.Listen(globalCfg.General.Address)
	if err != nil {
		return err
	}
	server := grpc.NewServer(
		ipc.ServerCodec(),
		sgrpc.UnaryServerInterceptor(),
		sgrpc.DefaultMaxConcurrentStreams(),
		grpc.Creds(sgrpc.PeerCredentials()),
	)
	ipc.RegisterSecurityServer(server, &servers.Security{
		ACLs:       acls,
		Trust:      store,
		ACLMetrics: acl.NewMetrics(),
		Revocation: checker,
	})
	promgrpc.Register(server)

	g, errCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer log.HandlePanic()
		log.Info("Serving IPC", "addr", globalCfg.General.Address)
		if err := server.Serve(listener); err != nil {
			return serrors.Wrap("serving gRPC API", err, "addr", globalCfg.General.Address)
		}
		return nil
	})
	g.Go(func() error {
		defer log.HandlePanic()
		<-errCtx.Done()
		server.GracefulStop()
		return nil
	})

	if addr := globalCfg.Metrics.Prometheus; addr != "" {
		if err := processmetrics.Init(); err != nil {
			log.Info("Process metrics unavailable", "err", err)
		}
		httpServer := &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}
		g.Go(func() error {
			defer log.HandlePanic()
			log.Info("Exporting metrics and status", "addr", addr)
			err := httpServer.ListenAndServe()
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				return serrors.Wrap("serving HTTP endpoints", err, "addr", addr)
			}
			return nil
		})
		g.Go(func() error {
			defer log.HandlePanic()
			<-errCtx.Done()
			return httpServer.Close()
		})
	}
	return g.Wait()
}

func statusPages(acls *servers.ACLTable, store *trust.Store,
	validInfo *revocation.ValidInfoDB) service.StatusPages {

	return service.StatusPages{
		"info":   service.NewInfoStatusPage(),
		"config": service.NewConfigStatusPage(&globalCfg),
		"status": statusPage(acls, store, validInfo),
	}
}

func newHTTPHandler(pages service.StatusPages) (http.Handler, error) {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Handle("/metrics", promhttp.InstrumentMetricHandler(
		prometheus.DefaultRegisterer,
		promhttp.HandlerFor(
			prometheus.DefaultGatherer,
			promhttp.HandlerOpts{Timeout: HandlerTimeout},
		),
	))
	var err error
	r.Route("/", func(r chi.Router) {
		err = pages.Register(r, globalCfg.General.ID)
	})
	if err != nil {
		return nil, serrors.Wrap("registering status pages", err)
	}
	return r, nil
}

func statusPage(acls *servers.ACLTable, store *trust.Store,
	validInfo *revocation.ValidInfoDB) service.StatusPage {

	handler := func(w http.ResponseWriter, r *http.Request) {
		rep := struct {
			ACLs            []string `json:"acls"`
			RootAnchors     int      `json:"root_anchors"`
			RootAnchorsErr  string   `json:"root_anchors_error,omitempty"`
			RevocationCache int      `json:"revocation_cache_entries"`
		}{
			ACLs:            acls.Names(),
			RevocationCache: validInfo.Len(),
		}
		roots, err := store.CopyRootCertificates(r.Context())
		if err != nil {
			rep.RootAnchorsErr = err.Error()
		} else {
			rep.RootAnchors = roots.Len()
		}
		service.WriteJSON(w, rep)
	}
	return service.StatusPage{
		Info:    "ACLs, root anchors and revocation cache",
		Handler: handler,
	}
}
