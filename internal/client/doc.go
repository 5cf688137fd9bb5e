// Package client implements the secure-side validation and dispatch of
// client calls: version query, connect, call, and close.
//
// Every request enters from a domain the dispatcher must not trust, so
// every identifier, handle, pointer, and length is checked before use.
// Validation order is fixed and front-loaded: cheap structural checks
// (vector counts, service existence, trust reachability) run before memory
// range checks, and descriptor arrays are snapshot-copied into fixed local
// storage between the check of the array's own range and the check of the
// buffers its elements describe. A caller mutating its descriptors after
// the snapshot cannot change what gets validated or forwarded.
//
// Failure handling:
//   - Trust violations (unknown service, unauthorized caller, version
//     mismatch, dead handle, illegal range, oversized vector count) raise
//     a fault that terminates the calling context. Control never returns
//     to the caller with an error code.
//   - Transient resource exhaustion while building a message is an
//     ordinary recoverable outcome: Connect and Call return StatusBusy.
//   - A version probe is never fatal; unknown or unreachable services
//     report the VersionNone sentinel.
//
// The dispatcher only enqueues: no operation waits for the service to
// produce a result. Replies are delivered asynchronously by the service
// side through the event layer and, for out-of-band callers, the rpc
// indirection.
package client
