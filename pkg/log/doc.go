/*
Package log provides structured logging for the poll synchronization client.

It wraps zerolog behind a small global-logger surface: Init configures level
and output format once at startup, and the With* helpers hand out child
loggers tagged with a component or poll id so every subsystem logs with
consistent context fields.

Usage:

	log.Init(log.Config{Level: log.InfoLevel})
	logger := log.WithComponent("socket")
	logger.Info().Str("url", wsURL).Msg("connecting")
*/
package log
