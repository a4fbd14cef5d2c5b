package protocol

import (
	"strconv"

	"github.com/buyukakyuz/bpx"
)

// RequestSource is the minimal surface the pipeline needs from a
// transport request: the path, and case-insensitive header lookup.
// internal/httpkit's *Ctx does not serve it directly (its Get reads
// response headers); cmd/bpxserver wraps the request in an adapter, and
// any adapter over net/http or another transport works the same way.
type RequestSource interface {
	Path() string
	Get(key string) string
}

// ParseRequest builds a Request from a transport request's path and
// BPX headers, per spec § 4.6 step 1. Absent or unparseable headers
// leave their field unset; an absent or fully-invalid Accept-Diff
// retains the [BinaryDelta] default.
func ParseRequest(src RequestSource) *Request {
	parsed := NewRequest(bpx.NewResourcePath(src.Path()))

	if session := src.Get(HeaderSession); session != "" {
		id := bpx.NewSessionId(session)
		parsed.SessionID = &id
	}

	if base := src.Get(HeaderBaseVersion); base != "" {
		v := bpx.NewVersion(base)
		parsed.BaseVersion = &v
	}

	if accept := src.Get(HeaderAcceptDiff); accept != "" {
		parsed.AcceptedFormats = bpx.ParseAcceptDiff(accept)
	}

	return parsed
}

func diffSizeHeaders(resp *Response) map[string]string {
	headers := map[string]string{
		HeaderResourceVer: resp.Version.String(),
		HeaderSession:     resp.SessionID.String(),
	}

	if resp.Body.IsDiff {
		headers[HeaderDiffType] = resp.Body.Format.String()
		headers[HeaderOriginalSize] = strconv.Itoa(resp.OriginalSize)
		headers[HeaderDiffSize] = strconv.Itoa(len(resp.Body.Data))
	} else {
		headers[HeaderDiffType] = DiffTypeFull
		headers[HeaderOriginalSize] = strconv.Itoa(len(resp.Body.Data))
	}

	if resp.CacheTTL != nil {
		headers[HeaderCacheTTL] = strconv.Itoa(int(resp.CacheTTL.Seconds()))
	}

	return headers
}

// ResponseHeaders returns the full set of response headers for resp,
// per spec § 6, ready to be set on any transport's response writer.
func ResponseHeaders(resp *Response) map[string]string {
	return diffSizeHeaders(resp)
}
