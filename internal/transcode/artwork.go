package transcode

import (
	"context"
	"io"
	"net/http"
	"strings"

	"plexctl/internal/plex"
)

const artworkPath = "/photo/:/transcode"

// ArtworkRequest describes a one-shot image resize.
type ArtworkRequest struct {
	// Source is the image to resize, usually a thumb or art path of an item.
	Source  string
	Width   int
	Height  int
	MinSize bool
	Upscale bool
}

// Artwork resizes an image on the server and streams it into w. There is
// no session and nothing to clean up.
func Artwork(ctx context.Context, client *plex.Client, w io.Writer, req ArtworkRequest) (int64, error) {
	const op = "GET " + artworkPath
	if strings.TrimSpace(req.Source) == "" {
		return 0, plex.NewInvalidRequestSettings(op, "artwork source is empty")
	}
	if req.Width <= 0 || req.Height <= 0 {
		return 0, plex.NewInvalidRequestSettings(op, "artwork width and height must be positive")
	}
	query := plex.NewQuery().
		Set("url", req.Source).
		SetBool("upscale", req.Upscale).
		SetBool("minSize", req.MinSize).
		SetInt("width", int64(req.Width)).
		SetInt("height", int64(req.Height))

	resp, err := client.Get(ctx, artworkPath, query, plex.Route("artwork"), plex.Accept("image/*"))
	if err != nil {
		return 0, err
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		_, _ = plex.ReadBody(resp)
		return 0, plex.NewItemNotFound(op)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		body, _ := plex.ReadBody(resp)
		return 0, plex.NewUnexpectedResponse(op, resp.StatusCode, body)
	}
	defer resp.Body.Close()
	written, err := io.Copy(w, resp.Body)
	if err != nil {
		return written, &plex.Error{Kind: plex.ErrTransport, Op: op, Status: resp.StatusCode, Err: err}
	}
	return written, nil
}
