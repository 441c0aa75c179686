// Package liveupdates keeps the bounded most-recent-first feed of
// observational messages shown alongside live poll tallies ("New poll
// created: ...", "Vote registered on: ..."). Capped at five entries by
// default, matching the dashboard it feeds.
package liveupdates
