/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup configures zerolog for the process.
func Setup(environment string) zerolog.Logger {
	return SetupWithWriter(environment, os.Stdout, nil)
}

// SetupWithWriter configures zerolog writing human-readable lines to out in
// development and JSON elsewhere. capture, if set, receives every event as
// JSON regardless of environment (e.g., the log buffer).
func SetupWithWriter(environment string, out io.Writer, capture io.Writer) zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level := zerolog.InfoLevel
	var writer io.Writer = out
	if environment == "development" {
		level = zerolog.DebugLevel
		writer = zerolog.ConsoleWriter{Out: out}
	}
	if capture != nil {
		writer = zerolog.MultiLevelWriter(writer, capture)
	}

	logger := zerolog.New(writer).With().Timestamp().Logger().Level(level)
	log.Logger = logger
	return logger
}
