/*
Package socket implements the connection manager for the bidirectional event
channel to the poll server.

A Conn wraps a single shared gorilla/websocket connection carrying JSON
frames of the form {"event": ..., "data": ...}. Outbound traffic goes
through Emit; inbound server pushes arrive on the Inbound channel for the
dispatcher to fan out.

Connectivity transitions are observable through three callback hooks:

  - OnConnect: after every successful dial
  - OnDisconnect: on drop or deliberate Close
  - OnReconnect: after recovery of a previously connected channel

The reconnect hook is distinct from the connect hook because the raw channel
forgets room subscriptions across a drop; the room registry listens on
OnReconnect to re-assert every room it still reference-counts.

Recovery is automatic and bounded: increasing backoff between attempts, up
to the configured maximum. Once exhausted, the Conn stays disconnected until
the owner calls Connect again.
*/
package socket
