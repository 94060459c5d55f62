package build

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"

	"github.com/legion-labs/databuild-go/internal/domain"
)

// Version is the engine's data-format version. It participates in every
// fingerprint, so bumping it is a deliberate cache-format break: all prior
// index entries become unreachable.
const Version = "2.0.0"

// The cache key of a compile node is the pair (context hash, source hash)
// folded with the unnamed compile path:
//
//   - the context hash covers everything that goes into a compilation
//     except the data itself: the transform, the compiler identity, the
//     compilation environment and the engine version;
//   - the source hash covers the data: the content closure of the node's
//     inputs (source steps) or the direct dependency's compiled checksum
//     (derived steps).
//
// Field encoding is length-prefixed, so adjacent fields can never alias.
// Any change to this composition must bump Version.

type canonicalHasher struct {
	h hash.Hash
}

func newCanonicalHasher() *canonicalHasher {
	return &canonicalHasher{h: sha256.New()}
}

func (c *canonicalHasher) writeField(data []byte) {
	var length [8]byte
	binary.BigEndian.PutUint64(length[:], uint64(len(data)))
	c.h.Write(length[:])
	c.h.Write(data)
}

func (c *canonicalHasher) writeString(s string) {
	c.writeField([]byte(s))
}

func (c *canonicalHasher) sum() string {
	return hex.EncodeToString(c.h.Sum(nil))
}

// compilerHash fingerprints a compiler's behavior for one transform in one
// environment.
func compilerHash(identity string, transform domain.Transform, env domain.CompilationEnv) string {
	h := newCanonicalHasher()
	h.writeString(identity)
	h.writeString(transform.String())
	h.writeString(env.Canonical())
	return h.sum()
}

// contextHash combines everything that goes into compiling a node except
// the node's data.
func contextHash(transform domain.Transform, compilerHash string, version string) string {
	h := newCanonicalHasher()
	h.writeString(transform.String())
	h.writeString(compilerHash)
	h.writeString(version)
	return h.sum()
}

// derivedSourceHash is the source hash of a path-derived node: a digest of
// its direct dependency's compiled checksum.
func derivedSourceHash(checksum domain.Checksum) string {
	h := newCanonicalHasher()
	h.writeString(string(checksum))
	return h.sum()
}

// fingerprint is the durable cache key for one compile node.
func fingerprint(unnamedPath domain.ResourcePathID, contextHash, sourceHash string) string {
	h := newCanonicalHasher()
	h.writeString(unnamedPath.String())
	h.writeString(contextHash)
	h.writeString(sourceHash)
	return h.sum()
}
