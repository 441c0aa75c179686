/*
Package apiclient implements the REST collaborators of the synchronization
core: poll listing, poll creation, vote submission, and the per-poll voted
check.

Every call runs under a timeout context derived from the configured request
timeout, carries the bearer token, and records its duration in the API
latency histogram. Duplicate-vote conflicts surface as ErrAlreadyVoted so
the vote coordinator can distinguish eligibility conflicts from transport
failures.
*/
package apiclient
