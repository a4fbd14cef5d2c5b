package protocol

import (
	"testing"
	"time"

	"github.com/buyukakyuz/bpx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRequest struct {
	path    string
	headers map[string]string
}

func (f fakeRequest) Path() string          { return f.path }
func (f fakeRequest) Get(key string) string { return f.headers[key] }

func TestParseRequestDefaults(t *testing.T) {
	req := ParseRequest(fakeRequest{path: "/api/logs/server"})
	assert.Equal(t, bpx.ResourcePath("/api/logs/server"), req.Path)
	assert.Nil(t, req.SessionID)
	assert.Nil(t, req.BaseVersion)
	assert.Equal(t, []bpx.DiffFormat{bpx.BinaryDelta}, req.AcceptedFormats)
}

func TestParseRequestAllHeaders(t *testing.T) {
	req := ParseRequest(fakeRequest{
		path: "/api/dashboard/metrics",
		headers: map[string]string{
			HeaderSession:     "sess_abc",
			HeaderBaseVersion: "v:1",
			HeaderAcceptDiff:  "binary-delta",
		},
	})
	require.NotNil(t, req.SessionID)
	assert.Equal(t, bpx.SessionId("sess_abc"), *req.SessionID)
	require.NotNil(t, req.BaseVersion)
	assert.Equal(t, bpx.Version("v:1"), *req.BaseVersion)
	assert.True(t, req.HasClientState())
}

func TestResponseHeadersFullBody(t *testing.T) {
	resp := &Response{
		Version:      bpx.NewVersion("v:2"),
		Body:         FullBody([]byte("hello")),
		SessionID:    bpx.NewSessionId("sess_1"),
		OriginalSize: 5,
	}
	headers := ResponseHeaders(resp)
	assert.Equal(t, "v:2", headers[HeaderResourceVer])
	assert.Equal(t, "sess_1", headers[HeaderSession])
	assert.Equal(t, DiffTypeFull, headers[HeaderDiffType])
	assert.Equal(t, "5", headers[HeaderOriginalSize])
	_, hasDiffSize := headers[HeaderDiffSize]
	assert.False(t, hasDiffSize)
}

func TestResponseHeadersDiffBody(t *testing.T) {
	resp := &Response{
		Version:      bpx.NewVersion("v:3"),
		Body:         DiffBody(bpx.BinaryDelta, []byte{0x04}),
		SessionID:    bpx.NewSessionId("sess_2"),
		OriginalSize: 100,
	}
	headers := ResponseHeaders(resp)
	assert.Equal(t, bpx.BinaryDelta.String(), headers[HeaderDiffType])
	assert.Equal(t, "100", headers[HeaderOriginalSize])
	assert.Equal(t, "1", headers[HeaderDiffSize])
}

func TestResponseHeadersCacheTTL(t *testing.T) {
	ttl := 30 * time.Second
	resp := &Response{
		Version:      bpx.NewVersion("v:4"),
		Body:         FullBody([]byte("x")),
		SessionID:    bpx.NewSessionId("sess_3"),
		OriginalSize: 1,
		CacheTTL:     &ttl,
	}
	headers := ResponseHeaders(resp)
	assert.Equal(t, "30", headers[HeaderCacheTTL])
}
