package diff

import (
	"strings"

	"github.com/buyukakyuz/bpx"
	"github.com/pmezard/go-difflib/difflib"
)

// Engine computes and applies diffs, and judges whether a diff is
// worth sending over the wire.
type Engine interface {
	ComputeDiff(old, new []byte) ([]byte, error)
	ApplyDiff(base, diff []byte) ([]byte, error)
	IsDiffWorthwhile(originalSize, diffSize int) bool
}

// LineEngine is the default Engine: a line-level Myers-style diff (via
// go-difflib's SequenceMatcher) encoded through the binary diff codec.
type LineEngine struct {
	minCompressionRatio float64
}

// NewLineEngine builds an engine with the default 0.2 minimum
// compression ratio.
func NewLineEngine() *LineEngine {
	return &LineEngine{minCompressionRatio: 0.2}
}

// NewLineEngineWithRatio builds an engine with a custom minimum
// compression ratio, clamped to [0,1].
func NewLineEngineWithRatio(ratio float64) *LineEngine {
	switch {
	case ratio < 0:
		ratio = 0
	case ratio > 1:
		ratio = 1
	}
	return &LineEngine{minCompressionRatio: ratio}
}

// ComputeDiff returns a wire-format stream that, applied to old by the
// patcher, yields new, except for the idempotent shortcut handled at
// the ApplyDiff layer. When old == new exactly, it short-circuits to
// the empty operation list ([0x04]).
func (e *LineEngine) ComputeDiff(old, new []byte) ([]byte, error) {
	if string(old) == string(new) {
		return Encode(nil)
	}

	oldLines := splitLinesKeepEnds(string(old))
	newLines := splitLinesKeepEnds(string(new))

	matcher := difflib.NewMatcher(oldLines, newLines)

	var operations []Operation
	for _, group := range matcher.GetOpCodes() {
		switch group.Tag {
		case 'e':
			if n := lineSpanLen(oldLines, group.I1, group.I2); n > 0 {
				operations = append(operations, CopyOp(uint32(n)))
			}
		case 'd':
			if n := lineSpanLen(oldLines, group.I1, group.I2); n > 0 {
				operations = append(operations, DeleteOp(uint32(n)))
			}
		case 'i':
			if data := lineSpanBytes(newLines, group.J1, group.J2); len(data) > 0 {
				operations = append(operations, InsertOp(data))
			}
		case 'r':
			if n := lineSpanLen(oldLines, group.I1, group.I2); n > 0 {
				operations = append(operations, DeleteOp(uint32(n)))
			}
			if data := lineSpanBytes(newLines, group.J1, group.J2); len(data) > 0 {
				operations = append(operations, InsertOp(data))
			}
		}
	}

	return Encode(operations)
}

// ApplyDiff validates non-empty input; the literal [0x04] stream
// returns base unchanged (the idempotent shortcut), everything else
// delegates to the codec patcher.
func (e *LineEngine) ApplyDiff(base, diffData []byte) ([]byte, error) {
	if len(diffData) == 0 {
		return nil, bpx.NewError(bpx.PatchFailed, "Empty diff")
	}
	if len(diffData) == 1 && diffData[0] == OpEnd.Byte() {
		out := make([]byte, len(base))
		copy(out, base)
		return out, nil
	}
	return ApplyDiff(base, diffData)
}

// IsDiffWorthwhile reports whether diffSize/originalSize is at most
// 1 - minCompressionRatio. Always false when originalSize is zero.
func (e *LineEngine) IsDiffWorthwhile(originalSize, diffSize int) bool {
	if originalSize == 0 {
		return false
	}
	ratio := float64(diffSize) / float64(originalSize)
	return ratio <= 1.0-e.minCompressionRatio
}

func splitLinesKeepEnds(s string) []string {
	if s == "" {
		return nil
	}
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, s[start:i+1])
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}

func lineSpanLen(lines []string, i1, i2 int) int {
	return len(lineSpanBytes(lines, i1, i2))
}

func lineSpanBytes(lines []string, i1, i2 int) []byte {
	var b strings.Builder
	for _, l := range lines[i1:i2] {
		b.WriteString(l)
	}
	return []byte(b.String())
}
