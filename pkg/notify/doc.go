// Package notify holds transient, auto-dismissing user notifications for
// the vote path. Entries expire on a TTL (3s by default) instead of being
// dismissed explicitly, mirroring the dashboard behavior this client
// replaces.
package notify
