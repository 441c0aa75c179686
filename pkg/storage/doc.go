/*
Package storage provides the BoltDB-backed poll snapshot cache.

The cache stores the most recent full poll list between runs so the watch
dashboard can show last-known tallies immediately on startup. It never
participates in synchronization: the first fetch after connect replaces the
in-memory store wholesale and re-saves the cache.
*/
package storage
