package protocol

import (
	"time"

	"github.com/buyukakyuz/bpx"
)

// Request is a parsed BPX request: the resource path plus whatever
// client state and preferences the headers carried.
type Request struct {
	Path            bpx.ResourcePath
	SessionID       *bpx.SessionId
	BaseVersion     *bpx.Version
	AcceptedFormats []bpx.DiffFormat
}

// NewRequest builds a request with the default accepted format
// ([BinaryDelta]) and no client state.
func NewRequest(path bpx.ResourcePath) *Request {
	return &Request{
		Path:            path,
		AcceptedFormats: []bpx.DiffFormat{bpx.BinaryDelta},
	}
}

// HasClientState reports whether both a session and a base version
// were supplied.
func (r *Request) HasClientState() bool {
	return r.SessionID != nil && r.BaseVersion != nil
}

// ResponseBody is either the full resource content or a diff body
// tagged with its format.
type ResponseBody struct {
	IsDiff bool
	Format bpx.DiffFormat
	Data   []byte
}

// FullBody wraps content as a full-content response body.
func FullBody(content []byte) ResponseBody {
	return ResponseBody{Data: content}
}

// DiffBody wraps diff bytes as a diff response body tagged with
// format.
func DiffBody(format bpx.DiffFormat, data []byte) ResponseBody {
	return ResponseBody{IsDiff: true, Format: format, Data: data}
}

// Response is the fully assembled outcome of one pipeline run.
type Response struct {
	Version      bpx.Version
	Body         ResponseBody
	CacheTTL     *time.Duration
	SessionID    bpx.SessionId
	OriginalSize int
}

// BodySize returns the byte length of the response body.
func (r *Response) BodySize() int {
	return len(r.Body.Data)
}
