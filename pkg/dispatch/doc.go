/*
Package dispatch fans server-pushed poll events out to registered listeners.

Handlers are keyed by event kind (poll-created, poll-updated). Subscribe
returns a Subscription whose Cancel has an at-most-once cleanup effect and
stays safe after the dispatcher stops. Delivery is at-least-once and
unordered across polls; the store's last-write-wins upsert absorbs
duplicates, so the dispatcher itself is pure fan-out.
*/
package dispatch
