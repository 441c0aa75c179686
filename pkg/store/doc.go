/*
Package store holds the local authoritative cache of poll entities.

Merge policy is last-write-wins per poll id: the server always sends the
complete poll object, so the newest full snapshot unconditionally replaces
prior state. Creation events prepend, update events replace known entries
and drop unknown ones. All reads return deep copies.
*/
package store
