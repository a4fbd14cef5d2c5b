package bpx

import "strings"

// DiffFormat is the closed set of diff-family tokens negotiable via
// Accept-Diff. Only BinaryDelta is implemented end to end; the other
// two are parseable names reserved for future negotiation.
type DiffFormat int

const (
	BinaryDelta DiffFormat = iota
	JsonPatch
	BsDiff
)

// ParseDiffFormat parses one Accept-Diff token. Matching is
// case-insensitive; unknown tokens report ok=false.
func ParseDiffFormat(s string) (DiffFormat, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "binary-delta":
		return BinaryDelta, true
	case "json-patch":
		return JsonPatch, true
	case "bsdiff":
		return BsDiff, true
	default:
		return 0, false
	}
}

// String returns the wire token for the format.
func (f DiffFormat) String() string {
	switch f {
	case BinaryDelta:
		return "binary-delta"
	case JsonPatch:
		return "json-patch"
	case BsDiff:
		return "bsdiff"
	default:
		return "unknown"
	}
}

// ParseAcceptDiff parses a comma-separated Accept-Diff header value.
// Invalid tokens are dropped; if every token is invalid (or the header
// is absent/empty), the default of [BinaryDelta] is retained.
func ParseAcceptDiff(header string) []DiffFormat {
	if strings.TrimSpace(header) == "" {
		return []DiffFormat{BinaryDelta}
	}
	var out []DiffFormat
	for _, tok := range strings.Split(header, ",") {
		if f, ok := ParseDiffFormat(tok); ok {
			out = append(out, f)
		}
	}
	if len(out) == 0 {
		return []DiffFormat{BinaryDelta}
	}
	return out
}

// ContainsDiffFormat reports whether formats includes f.
func ContainsDiffFormat(formats []DiffFormat, f DiffFormat) bool {
	for _, candidate := range formats {
		if candidate == f {
			return true
		}
	}
	return false
}
