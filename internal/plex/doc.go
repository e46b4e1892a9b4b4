// Package plex is the HTTP collaborator for talking to a media server and the
// account identity service.
//
// It owns the authenticated transport (standard X-Plex-* headers, token,
// per-request timeout overrides), the typed error taxonomy every caller
// matches with errors.Is, the wire enums for codecs, containers, protocols
// and stream decisions, and the small set of metadata records the transcode
// layer consumes. Device discovery and resumable part downloads live here as
// well because they only need the transport.
//
// Build higher level features (transcoding, artwork) on top of Client instead
// of issuing raw HTTP requests so that headers, error mapping and decoding
// stay uniform.
package plex
