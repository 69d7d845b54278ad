package fsum

import (
	"crypto/cipher"
	"crypto/des"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"

	"golang.org/x/crypto/ripemd160"
)

// Algorithm identifies one of the supported digest algorithms.
type Algorithm string

const (
	SHA1         Algorithm = "SHA1"
	SHA256       Algorithm = "SHA256"
	SHA384       Algorithm = "SHA384"
	SHA512       Algorithm = "SHA512"
	MD5          Algorithm = "MD5"
	MACTripleDES Algorithm = "MACTripleDES"
	RIPEMD160    Algorithm = "RIPEMD160"
)

// supportedAlgorithms is the fixed set, in canonical listing order.
var supportedAlgorithms = []Algorithm{SHA1, SHA256, SHA384, SHA512, MD5, MACTripleDES, RIPEMD160}

// DefaultAlgorithms is used when the caller requests none explicitly.
var DefaultAlgorithms = []Algorithm{SHA256}

// SupportedAlgorithms returns the supported set in canonical order.
func SupportedAlgorithms() []Algorithm {
	out := make([]Algorithm, len(supportedAlgorithms))
	copy(out, supportedAlgorithms)
	return out
}

// ParseAlgorithm validates a user-supplied algorithm name. Matching is
// case-insensitive; the returned value is canonical.
func ParseAlgorithm(name string) (Algorithm, error) {
	trimmed := strings.TrimSpace(name)
	for _, alg := range supportedAlgorithms {
		if strings.EqualFold(trimmed, string(alg)) {
			return alg, nil
		}
	}
	return "", fmt.Errorf("%w: %q (supported: %s)", ErrUnsupportedAlgorithm, name, joinAlgorithms(supportedAlgorithms))
}

// ParseAlgorithms accepts either a list of algorithm names or a single
// comma-joined string ("SHA1,MD5"). Mixing the joined form with additional
// elements is a ConfigError, as is any unknown name.
func ParseAlgorithms(values []string) ([]Algorithm, error) {
	if len(values) == 0 {
		return append([]Algorithm(nil), DefaultAlgorithms...), nil
	}

	var names []string
	for _, v := range values {
		if strings.Contains(v, ",") {
			if len(values) > 1 {
				return nil, configErrorf("algorithms may be given as a list or as one comma-joined string, not both: %q", values)
			}
			for _, part := range strings.Split(v, ",") {
				names = append(names, part)
			}
			break
		}
		names = append(names, v)
	}

	algs := make([]Algorithm, 0, len(names))
	for _, name := range names {
		alg, err := ParseAlgorithm(name)
		if err != nil {
			return nil, configErrorf("%v", err)
		}
		algs = append(algs, alg)
	}
	return algs, nil
}

func joinAlgorithms(algs []Algorithm) string {
	names := make([]string, len(algs))
	for i, a := range algs {
		names[i] = string(a)
	}
	return strings.Join(names, ", ")
}

// newHasher constructs the hash.Hash for an algorithm.
func newHasher(alg Algorithm) (hash.Hash, error) {
	switch alg {
	case SHA1:
		return sha1.New(), nil
	case SHA256:
		return sha256.New(), nil
	case SHA384:
		return sha512.New384(), nil
	case SHA512:
		return sha512.New(), nil
	case MD5:
		return md5.New(), nil
	case RIPEMD160:
		return ripemd160.New(), nil
	case MACTripleDES:
		return newTDESMAC(defaultMACKey)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, alg)
	}
}

// ComputeDigest streams the file at path through the selected algorithm and
// returns the digest as lowercase hex. This is the only place file bytes are
// read; it is intentionally opaque — no incremental progress is available.
func ComputeDigest(path string, alg Algorithm) (string, error) {
	hasher, err := newHasher(alg)
	if err != nil {
		return "", err
	}
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	if _, err := io.Copy(hasher, file); err != nil {
		return "", fmt.Errorf("failed during hashing of %s: %w", path, err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// defaultMACKey is the fixed 24-byte TripleDES key used when MACTripleDES is
// selected as a plain (unkeyed) digest. A selectable MAC needs a stable key
// to stay deterministic across runs.
var defaultMACKey = make([]byte, 24)

// tdesMAC is a CBC-MAC over TripleDES with a zero IV and zero-padding of the
// final partial block. The digest is the last cipher block (8 bytes).
type tdesMAC struct {
	block cipher.Block
	state [des.BlockSize]byte
	buf   []byte
}

// newTDESMAC builds the MAC hasher; key must be 24 bytes.
func newTDESMAC(key []byte) (hash.Hash, error) {
	block, err := des.NewTripleDESCipher(key)
	if err != nil {
		return nil, fmt.Errorf("MACTripleDES key setup: %w", err)
	}
	return &tdesMAC{block: block}, nil
}

func (m *tdesMAC) Write(p []byte) (int, error) {
	m.buf = append(m.buf, p...)
	for len(m.buf) >= des.BlockSize {
		m.absorb(m.buf[:des.BlockSize])
		m.buf = m.buf[des.BlockSize:]
	}
	return len(p), nil
}

func (m *tdesMAC) absorb(blockBytes []byte) {
	var xored [des.BlockSize]byte
	for i := range xored {
		xored[i] = m.state[i] ^ blockBytes[i]
	}
	m.block.Encrypt(m.state[:], xored[:])
}

func (m *tdesMAC) Sum(b []byte) []byte {
	// Work on a copy so Sum does not mutate the running state.
	final := *m
	if len(final.buf) > 0 {
		var padded [des.BlockSize]byte
		copy(padded[:], final.buf)
		final.absorb(padded[:])
	}
	return append(b, final.state[:]...)
}

func (m *tdesMAC) Reset() {
	m.state = [des.BlockSize]byte{}
	m.buf = nil
}

func (m *tdesMAC) Size() int      { return des.BlockSize }
func (m *tdesMAC) BlockSize() int { return des.BlockSize }
