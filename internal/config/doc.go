// Package config loads, normalizes, and validates plexctl configuration data.
//
// It supplies defaults, expands user paths (including tilde shortcuts), reads
// TOML files, and honours the PLEX_URL and PLEX_TOKEN environment fallbacks.
// The Config type converts itself into plex client options, transcode
// constraints and logging options so the CLI never reads ambient state.
package config
