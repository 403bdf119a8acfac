package optimization

import (
	"context"
	"log"
)

// Package optimization searches indicator parameter spaces for the best backtest

// Logger receives progress and diagnostics of a search
type Logger interface {
	Info(format string, args ...interface{})
	Warning(format string, args ...interface{})
	Error(format string, args ...interface{})
}

// ProgressFunc receives (current, total) iterations. Calls are serialized and current never decreases.
type ProgressFunc func(current, total int)

// searcher is one search method. Every evaluation it performs is recorded on the run.
type searcher interface {
	search(ctx context.Context, run *run) error
}

// stdLogger routes messages through the standard logger
type stdLogger struct{}

func (stdLogger) Info(format string, args ...interface{}) {
	log.Printf("ℹ️ "+format, args...)
}

func (stdLogger) Warning(format string, args ...interface{}) {
	log.Printf("⚠️ "+format, args...)
}

func (stdLogger) Error(format string, args ...interface{}) {
	log.Printf("❌ "+format, args...)
}

// nopLogger discards everything
type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})    {}
func (nopLogger) Warning(string, ...interface{}) {}
func (nopLogger) Error(string, ...interface{})   {}

// NopLogger returns a Logger that discards all messages
func NopLogger() Logger { return nopLogger{} }
