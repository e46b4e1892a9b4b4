// Package main hosts the plexctl CLI entrypoint and command graph.
//
// The Cobra command tree is a thin shell over internal/transcode and
// internal/plex: it resolves configuration, builds the logger, metrics
// recorder and media server client once per invocation, then hands the work
// to the library. Add behaviour to the internal packages first and surface
// it here through a dedicated command or flag.
package main
