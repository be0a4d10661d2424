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

// Package db contains the sqlite plumbing shared by the securityd storage
// backends and the error classes they report.
package db

import (
	"context"
	"errors"

	"github.com/securityd/securityd/pkg/private/prom"
	"github.com/securityd/securityd/pkg/private/serrors"
)

// Error classes. Backends join one of them with the driver error so that
// callers and metrics can classify failures without knowing the driver.
var (
	ErrInvalidInputData = serrors.New("db: input data invalid")
	ErrDataInvalid      = serrors.New("db: db data invalid")
	ErrReadFailed       = serrors.New("db: read failed")
	ErrWriteFailed      = serrors.New("db: write failed")
	ErrTx               = serrors.New("db: transaction error")
)

func classed(class error, msg string, err error, logCtx []any) error {
	return serrors.JoinNoStack(class, err, append([]any{"detailMsg", msg}, logCtx...)...)
}

func NewTxError(msg string, err error, logCtx ...any) error {
	return classed(ErrTx, msg, err, logCtx)
}

func NewInputDataError(msg string, err error, logCtx ...any) error {
	return classed(ErrInvalidInputData, msg, err, logCtx)
}

func NewDataError(msg string, err error, logCtx ...any) error {
	return classed(ErrDataInvalid, msg, err, logCtx)
}

func NewReadError(msg string, err error, logCtx ...any) error {
	return classed(ErrReadFailed, msg, err, logCtx)
}

func NewWriteError(msg string, err error, logCtx ...any) error {
	return classed(ErrWriteFailed, msg, err, logCtx)
}

// ErrToMetricLabel maps err to the result label of storage metrics.
func ErrToMetricLabel(err error) string {
	switch {
	case err == nil:
		return prom.Success
	case errors.Is(err, context.DeadlineExceeded), serrors.IsTimeout(err):
		return prom.ErrTimeout
	case errors.Is(err, ErrInvalidInputData), errors.Is(err, ErrDataInvalid):
		return prom.ErrParse
	case errors.Is(err, ErrReadFailed), errors.Is(err, ErrWriteFailed), errors.Is(err, ErrTx):
		return prom.ErrDB
	default:
		return prom.ErrNotClassified
	}
}

// LimitSetter is implemented by backends with a tunable read pool.
type LimitSetter interface {
	SetMaxOpenConns(n int)
	SetMaxIdleConns(n int)
}
