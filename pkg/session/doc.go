/*
Package session is the composition root of the poll synchronization client.

A Session owns the shared event channel, the room subscription registry, the
event dispatcher, the poll state store, the optimistic vote coordinator, the
eligibility tracker, and the ambient feed/notification state, with an
explicit lifecycle:

	s := session.New(cfg)
	if err := s.Start(ctx); err != nil { ... }
	defer s.Teardown()

Start performs the initial load sequence: warm-start from the local snapshot
cache, connect (with automatic bounded retry), full poll fetch, and
best-effort voted-set hydration. After Start, server-pushed events flow
through the dispatcher into the store and every read (Polls, Updates,
Notifications) observes converged state.
*/
package session
