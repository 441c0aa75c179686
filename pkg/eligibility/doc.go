/*
Package eligibility tracks which polls the current viewer has already voted
on, gating new optimistic vote submissions.

The voted set is session-scoped and add-only. Initial population is a
best-effort sweep of the server's per-poll check endpoint; individual
failures leave the poll votable and defer to the server's duplicate check.
*/
package eligibility
