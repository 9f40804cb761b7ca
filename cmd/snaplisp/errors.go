package main

import "errors"

// Sentinel errors for command operations
var (
	ErrFileNotFormatted = errors.New("file is not formatted")
	ErrFormattingErrors = errors.New("some files had formatting errors")
	ErrCompileFailed    = errors.New("some files failed to compile")
	ErrNoSourceFiles    = errors.New("no source files found")
	ErrNoMapping        = errors.New("no mapping for position")

	ErrMetricsWithoutWatch = errors.New("--metrics-addr requires --watch")
)
