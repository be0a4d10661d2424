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

// Package grpc contains the gRPC plumbing shared by the securityd server and
// its clients.
package grpc

import (
	"context"
	"time"

	grpc_retry "github.com/grpc-ecosystem/go-grpc-middleware/retry"
	grpcprom "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/grpc-ecosystem/grpc-opentracing/go/otgrpc"
	opentracing "github.com/opentracing/opentracing-go"
	jaeger "github.com/uber/jaeger-client-go"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"

	"github.com/securityd/securityd/pkg/log"
)

// MaxConcurrentStreams bounds the number of RPC handlers running at once per
// client connection.
const MaxConcurrentStreams = 128

// requestLogger returns a logger tagged with a fresh debug ID and, when the
// call is traced by jaeger, the trace ID.
func requestLogger(ctx context.Context) log.Logger {
	if span := opentracing.SpanFromContext(ctx); span != nil {
		if sc, ok := span.Context().(jaeger.SpanContext); ok {
			return log.New("debug_id", log.NewDebugID(), "trace_id", sc.TraceID())
		}
	}
	return log.New("debug_id", log.NewDebugID())
}

// LogIDClientInterceptor attaches a request logger to outgoing calls.
func LogIDClientInterceptor() grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, resp any, cc *grpc.ClientConn,
		invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {

		logger := requestLogger(ctx)
		logger.Debug("Calling securityd", "method", method, "target", cc.Target())
		return invoker(log.CtxWith(ctx, logger), method, req, resp, cc, opts...)
	}
}

// LogIDServerInterceptor attaches a request logger to the context of every
// served RPC. The logger names the method and, on unix sockets, the calling
// process. Handlers retrieve it with log.FromCtx.
func LogIDServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler) (any, error) {

		logger := requestLogger(ctx).New("method", info.FullMethod)
		if cred, ok := PeerCredFromContext(ctx); ok {
			logger = logger.New("peer_pid", cred.PID, "peer_uid", cred.UID)
		}
		start := time.Now()
		resp, err := handler(log.CtxWith(ctx, logger), req)
		if err != nil {
			logger.Debug("Request failed", "code", status.Code(err),
				"duration", time.Since(start), "err", err)
		} else {
			logger.Debug("Request served", "duration", time.Since(start))
		}
		return resp, err
	}
}

// UnaryClientInterceptor chains retries of Unavailable calls, client metrics,
// tracing and request loggers.
func UnaryClientInterceptor() grpc.DialOption {
	return grpc.WithChainUnaryInterceptor(
		grpc_retry.UnaryClientInterceptor(grpc_retry.WithMax(3)),
		grpcprom.UnaryClientInterceptor,
		otgrpc.OpenTracingClientInterceptor(opentracing.GlobalTracer()),
		LogIDClientInterceptor(),
	)
}

// DefaultMaxConcurrentStreams applies MaxConcurrentStreams to a server.
func DefaultMaxConcurrentStreams() grpc.ServerOption {
	return grpc.MaxConcurrentStreams(MaxConcurrentStreams)
}

// UnaryServerInterceptor chains server metrics, tracing and request loggers.
func UnaryServerInterceptor() grpc.ServerOption {
	return grpc.ChainUnaryInterceptor(
		grpcprom.UnaryServerInterceptor,
		otgrpc.OpenTracingServerInterceptor(opentracing.GlobalTracer()),
		LogIDServerInterceptor(),
	)
}
