// Copyright (C) 2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

package cliutil

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/datawire/dlib/dlog"
	"github.com/sirupsen/logrus"
)

// LogLevels are the values accepted by a --log-level flag.
var LogLevels = []string{"debug", "info", "warning", "error"}

// NewLogger returns a text logger writing to out at the named level.
func NewLogger(out io.Writer, level string) (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: must be one of %s",
			level, strings.Join(LogLevels, ", "))
	}
	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetLevel(lvl)
	logger.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp:       true,
		DisableLevelTruncation: true,
	})
	return logger, nil
}

// WithLogger installs a NewLogger logger as ctx's dlog logger.
func WithLogger(ctx context.Context, out io.Writer, level string) (context.Context, error) {
	logger, err := NewLogger(out, level)
	if err != nil {
		return ctx, err
	}
	return dlog.WithLogger(ctx, dlog.WrapLogrus(logger)), nil
}
