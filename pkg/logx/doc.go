// Package logx is a small structured logging layer on top of zerolog.
//
// It exposes a Logger value with in-order Field helpers and a Service that
// owns the output sinks: console, an optional append-only log file, and an
// optional Telegram sink that forwards warning-level lines to the admin
// chat through the bot transport (rate limited, drop-on-overflow).
//
// The zero Logger value is a safe no-op.
package logx
