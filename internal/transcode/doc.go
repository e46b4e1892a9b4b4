// Package transcode negotiates server-side transcode sessions.
//
// A caller describes what it can play (containers, codecs, bounds and
// limitations). The package turns that into the server's profile expression
// language, asks the decision endpoint once, checks the answer against the
// request and hands back a Session. The Session polls progress, streams the
// transcoded payload and stops the transcode. Artwork resizing is a stateless
// sibling that needs no session.
package transcode
