// SPDX-License-Identifier: GPL-3.0
// Copyright 2024 Pete Heist

// Package obslog is a thin wrapper of zap, structured after ndn-dpdk's
// core/logging package: a single JSON-encoded root logger writing to
// stderr, with named child loggers per component.
package obslog

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var root = func() *zap.Logger {
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		os.Stderr,
		zap.DebugLevel,
	)
	return zap.New(core)
}()

// New returns a logger named for component, e.g. "sim", "config", "cli".
func New(component string) *zap.Logger {
	return root.Named(component)
}
