// Package protocol defines the BPX header vocabulary and the parsed
// request/response types the pipeline passes between steps.
package protocol

// BPX header names, per spec § 6. The request headers (X-BPX-Session,
// X-Base-Version, Accept-Diff) are optional and case-insensitive at the
// transport layer; the rest, and X-BPX-Session again, are set on responses.
const (
	HeaderSession      = "X-BPX-Session"
	HeaderBaseVersion  = "X-Base-Version"
	HeaderAcceptDiff   = "Accept-Diff"
	HeaderResourceVer  = "X-Resource-Version"
	HeaderDiffType     = "X-Diff-Type"
	HeaderOriginalSize = "X-Original-Size"
	HeaderDiffSize     = "X-Diff-Size"
	HeaderCacheTTL     = "X-BPX-Cache-TTL"
)

// DiffTypeFull is the X-Diff-Type token for a full-content body.
const DiffTypeFull = "full"
