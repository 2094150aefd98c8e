// Package xdispatch is a synchronous in-process message-dispatch
// engine for domain-driven applications.
//
// It routes commands (single handler) and events (fan-out) through a
// Bus whose working queue stays sorted by message creation time,
// harvests events produced as side effects of handling earlier
// messages via tracking repositories and a unit of work, and isolates
// event-handler failures so one broken subscriber cannot block its
// siblings.
//
// Dispatch is strictly single-threaded and gives no durability or
// cross-process delivery guarantees; those belong to external
// collaborators behind the Store and Transport seams.
package xdispatch
