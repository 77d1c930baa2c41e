package object

import (
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"hash"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"

	"github.com/odvcencio/snap/pkg/fault"
)

// HashAlgorithm names the digest used to derive object ids. It is fixed for
// the lifetime of a repository.
type HashAlgorithm string

const (
	HashSHA1    HashAlgorithm = "sha1"
	HashSHA256  HashAlgorithm = "sha256"
	HashBlake2b HashAlgorithm = "blake2b"
	HashSHA3    HashAlgorithm = "sha3"
)

// DefaultHash is the 160-bit digest snap repositories use unless configured
// otherwise.
const DefaultHash = HashSHA1

// ParseHashAlgorithm validates a configured algorithm name. The empty
// string selects DefaultHash.
func ParseHashAlgorithm(name string) (HashAlgorithm, error) {
	switch HashAlgorithm(name) {
	case "":
		return DefaultHash, nil
	case HashSHA1, HashSHA256, HashBlake2b, HashSHA3:
		return HashAlgorithm(name), nil
	}
	return "", fault.InvalidInput("unknown hash algorithm %q", name)
}

// HexLen returns the length of a hex-encoded id produced by a.
func (a HashAlgorithm) HexLen() int {
	if a == HashSHA1 {
		return sha1.Size * 2
	}
	return 64
}

func (a HashAlgorithm) newHash() hash.Hash {
	switch a {
	case HashSHA256:
		return sha256.New()
	case HashBlake2b:
		// New256 only fails for an oversized key.
		h, _ := blake2b.New256(nil)
		return h
	case HashSHA3:
		return sha3.New256()
	default:
		return sha1.New()
	}
}

// Sum hashes data with a and returns the lowercase hex-encoded id.
func (a HashAlgorithm) Sum(data []byte) Hash {
	h := a.newHash()
	h.Write(data)
	return Hash(hex.EncodeToString(h.Sum(nil)))
}

// HashBytes computes the default-algorithm id of data.
func HashBytes(data []byte) Hash {
	return DefaultHash.Sum(data)
}

// IsHex reports whether s looks like a hex-encoded id of the given length.
func IsHex(s string, n int) bool {
	if len(s) != n {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
