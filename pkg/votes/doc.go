/*
Package votes implements the optimistic vote coordinator.

A submission bumps the local tally before the network round trip so the
viewer sees the vote immediately, tracks the in-flight mutation as a
PendingVote, and reconciles with the server's verdict: confirmation marks
the poll voted, rejection discards the pending record and resynchronizes by
re-fetching the full poll list. Rollback-by-refetch is deliberate — the
optimistic delta cannot be reliably told apart from a concurrently arrived
authoritative update, so subtracting it is unsafe.
*/
package votes
