// Copyright (c) 2015-2021 MinIO, Inc.
//
// This file is part of MinIO Object Storage stack
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package logger wraps go.uber.org/zap behind the small package-level
// surface the rest of the codebase calls through: Info, Error, LogIf,
// Fatal.
package logger

import (
	"context"
	"os"

	"go.uber.org/zap"
)

var base = newBase()

func newBase() *zap.SugaredLogger {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "ts"
	l, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		// Fall back to a minimal logger rather than panic on startup;
		// this only happens if the zap config itself is invalid.
		l = zap.NewNop()
	}
	return l.Sugar()
}

type ctxKey struct{}

// fieldsFromContext extracts structured fields stashed by WithFields,
// if any. Returns nil when ctx carries none.
func fieldsFromContext(ctx context.Context) []interface{} {
	if ctx == nil {
		return nil
	}
	if f, ok := ctx.Value(ctxKey{}).([]interface{}); ok {
		return f
	}
	return nil
}

// WithFields returns a context carrying structured fields (e.g.
// "bucket", "key", "object_id") that LogIf/Error/Info will attach to
// every line logged through it.
func WithFields(ctx context.Context, keyvals ...interface{}) context.Context {
	existing := fieldsFromContext(ctx)
	merged := append(append([]interface{}{}, existing...), keyvals...)
	return context.WithValue(ctx, ctxKey{}, merged)
}

// Info logs an informational message.
func Info(ctx context.Context, msg string, keyvals ...interface{}) {
	base.Infow(msg, append(fieldsFromContext(ctx), keyvals...)...)
}

// Error logs an error-level message.
func Error(ctx context.Context, msg string, keyvals ...interface{}) {
	base.Errorw(msg, append(fieldsFromContext(ctx), keyvals...)...)
}

// LogIf logs err at error level if it is non-nil; a no-op otherwise.
// This is the guard idiom used at every best-effort I/O site
// (logger.LogIf(ctx, err)).
func LogIf(ctx context.Context, err error, keyvals ...interface{}) {
	if err == nil {
		return
	}
	base.Errorw(err.Error(), append(fieldsFromContext(ctx), keyvals...)...)
}

// Fatal logs msg at error level with err's detail, then exits the
// process. Used by the launcher for unrecoverable errors: bad
// configuration, an unusable data directory, a failed state load, or
// the HTTP server exiting unexpectedly.
func Fatal(err error, msg string, keyvals ...interface{}) {
	fields := append([]interface{}{"error", err}, keyvals...)
	base.Errorw(msg, fields...)
	os.Exit(1)
}

// Sync flushes any buffered log entries. Call before process exit.
func Sync() {
	_ = base.Sync()
}
