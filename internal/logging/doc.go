// Package logging assembles the structured slog loggers used across quire.
//
// It owns the console and JSON handlers, fans output to stderr and the
// per-user log file, and exposes context-aware helpers so stage code tags log
// lines with the run id, variant, and stage automatically. External tool
// output is logged at debug level, so the log file keeps a full transcript of
// each build even when the console runs at info.
package logging
