package bpx

import (
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
)

// SessionId identifies a client session. Equality is byte-exact.
type SessionId string

// NewSessionId wraps a client-supplied string verbatim.
func NewSessionId(id string) SessionId {
	return SessionId(id)
}

// GenerateSessionId mints a fresh session id, formatted sess_<hex>,
// seeded from the current time the way the original implementation
// seeds its DefaultHasher with SystemTime::now.
func GenerateSessionId() SessionId {
	h := xxhash.New()
	var buf [8]byte
	putUint64(buf[:], uint64(time.Now().UnixNano()))
	_, _ = h.Write(buf[:])
	return SessionId(fmt.Sprintf("sess_%x", h.Sum64()))
}

func (s SessionId) String() string {
	return string(s)
}

// ResourcePath is the HTTP request path identifying a resource.
// Equality is byte-exact; no normalization is performed.
type ResourcePath string

// NewResourcePath wraps a path string.
func NewResourcePath(path string) ResourcePath {
	return ResourcePath(path)
}

func (p ResourcePath) String() string {
	return string(p)
}

// Version identifies a resource revision. Equality is byte-exact;
// versions are server-minted and echoed back verbatim by clients.
type Version string

// NewVersion wraps a version string verbatim.
func NewVersion(v string) Version {
	return Version(v)
}

// VersionFromContent derives a version deterministically from content
// bytes: identical content always yields an identical version.
func VersionFromContent(content []byte) Version {
	return Version(fmt.Sprintf("v:%x", xxhash.Sum64(content)))
}

// VersionFromTimestamp derives a version from the current wall-clock
// second, for resources without a natural content hash.
func VersionFromTimestamp() Version {
	return Version(fmt.Sprintf("v:%d", time.Now().Unix()))
}

func (v Version) String() string {
	return string(v)
}

func putUint64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}
