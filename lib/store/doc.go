// Package store provides the shared in-memory key-value state of a
// wirekv server. The store is a single flat map behind one mutex: every
// connection goroutine reaches it through a shared handle, and at most
// one goroutine reads or writes the map at any instant. Critical
// sections contain only the map operation itself - the guard is never
// held across network I/O or any other blocking point.
package store
