/*
Package config loads the client configuration.

Configuration is layered: compiled-in defaults, then an optional YAML file,
then POLLSYNC_* environment variables. Load validates the result and fills in
sane values for any zero durations so no caller ever sees an unbounded
timeout.
*/
package config
