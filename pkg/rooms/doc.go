/*
Package rooms keeps the reference-counted registry of poll room
subscriptions.

A poll rendered in two places is still one server-side subscription: Join
and Leave only generate network traffic on the 0→1 and 1→0 count
transitions. Because the raw channel forgets subscriptions across a drop,
Resubscribe replays join signals for every live room when the connection
manager reports a reconnect.
*/
package rooms
