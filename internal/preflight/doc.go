// Package preflight provides readiness checks for the media server, the
// account identity service and the local paths plexctl writes to.
//
// The CLI "plexctl doctor" command runs RunAll and renders one status line
// per Result. Each network check makes a single attempt with a short
// timeout; nothing is retried.
package preflight
