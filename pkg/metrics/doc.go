/*
Package metrics defines the Prometheus collectors exported by the poll
synchronization client.

Collectors cover the vote path (submitted/confirmed/rejected counters and
resync count), the event channel (received events by kind, reconnects,
connectivity gauge), the local store (known polls), room subscriptions, and
REST request latency. All collectors are registered in init; Handler exposes
them over HTTP for the watch command's --metrics-addr flag.
*/
package metrics
