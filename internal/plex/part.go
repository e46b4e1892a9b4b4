package plex

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// ByteRange selects a slice of a file. The zero value means the whole file.
// End is inclusive; a nil End reads to the end of the file.
type ByteRange struct {
	Start int64
	End   *int64
}

// Full reports whether the range covers the whole file.
func (r ByteRange) Full() bool {
	return r.Start <= 0 && r.End == nil
}

// Header renders the RFC 7233 Range header value.
func (r ByteRange) Header() string {
	if r.End != nil {
		return fmt.Sprintf("bytes=%d-%d", r.Start, *r.End)
	}
	return fmt.Sprintf("bytes=%d-", r.Start)
}

// Validate rejects ranges the server could never satisfy.
func (r ByteRange) Validate() error {
	if r.Start < 0 {
		return NewInvalidRequestSettings("download part", "range start must not be negative")
	}
	if r.End != nil && *r.End < r.Start {
		return NewInvalidRequestSettings("download part", "range end precedes start")
	}
	return nil
}

// DownloadPart streams a file part (for example /library/parts/1/0/file.mkv)
// into w and returns the number of bytes written. A non-full range is sent
// as a Range header so interrupted downloads can resume at an offset.
func (c *Client) DownloadPart(ctx context.Context, key string, w io.Writer, r ByteRange) (int64, error) {
	if err := r.Validate(); err != nil {
		return 0, err
	}
	opts := []RequestOption{Route("part_download"), Accept("*/*")}
	if !r.Full() {
		opts = append(opts, RequestHeader("Range", r.Header()))
	}
	resp, err := c.Get(ctx, key, NewQuery().SetBool("download", true), opts...)
	if err != nil {
		return 0, err
	}
	op := "GET " + key
	switch resp.StatusCode {
	case http.StatusOK, http.StatusPartialContent:
	case http.StatusNotFound:
		_, _ = ReadBody(resp)
		return 0, NewItemNotFound(op)
	default:
		body, _ := ReadBody(resp)
		return 0, NewUnexpectedResponse(op, resp.StatusCode, body)
	}
	if !r.Full() && resp.StatusCode == http.StatusOK {
		_ = resp.Body.Close()
		return 0, &Error{Kind: ErrUnexpectedResponse, Op: op, Status: resp.StatusCode, Message: "server ignored range request"}
	}
	defer resp.Body.Close()
	written, err := io.Copy(w, resp.Body)
	if err != nil {
		return written, fmt.Errorf("copy part body: %w", err)
	}
	return written, nil
}
