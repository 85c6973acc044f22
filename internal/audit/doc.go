// Package audit relays account security events to pluggable sinks.
//
// [Dispatcher] buffers events and delivers them from a single goroutine so that
// login latency never depends on sink speed. When DropIfFull is set a full
// buffer drops events and counts them; otherwise Emit blocks until there is
// room or the caller's context ends.
//
// The package decides nothing about which events exist beyond the type
// constants below. The engine chooses what to emit.
package audit
