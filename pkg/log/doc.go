/*
Package log provides structured logging for Burrow using zerolog.

The package keeps a single global zerolog.Logger that every other package derives
child loggers from. Until Init is called the global logger discards output, which
keeps library use and tests quiet.

# Architecture

	┌──────────────────── LOGGING SYSTEM ─────────────────────┐
	│                                                          │
	│  log.Init(Config) ──► global Logger (console or JSON)    │
	│                              │                           │
	│              ┌───────────────┼────────────────┐          │
	│              ▼               ▼                ▼          │
	│      WithComponent     WithStack        WithService      │
	│      ("engine")        ("shop")         ("db")           │
	└──────────────────────────────────────────────────────────┘

Console output is the default and is written to stderr so that reports printed
on stdout stay machine-readable. JSON output is selected with Config.JSONOutput.

# Usage

	log.Init(log.Config{Level: log.DebugLevel})

	logger := log.WithComponent("engine")
	logger.Info().Str("container", "db").Msg("container removed")

# Secrets

Secret environment values implement zerolog.LogObjectMarshaler and only ever
log their label. Never log the result of Secret.Reveal.
*/
package log
