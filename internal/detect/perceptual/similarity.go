package perceptual

import (
	"encoding/hex"
	"math"
	"math/bits"
	"strings"
)

// signature is a decoded perceptual signature ready for comparison.
type signature struct {
	bits []byte
}

// decodeSignature parses the hex form produced by the catalog. Signatures
// that are empty or not valid hex are unusable and the owning file is
// skipped by the detector.
func decodeSignature(value string) (signature, bool) {
	trimmed := strings.ToLower(strings.TrimSpace(value))
	if trimmed == "" {
		return signature{}, false
	}
	decoded, err := hex.DecodeString(trimmed)
	if err != nil || len(decoded) == 0 {
		return signature{}, false
	}
	return signature{bits: decoded}, true
}

// similarity returns the percentage (0-100) of matching bits between two
// signatures; 100 means identical. Signatures of different lengths were
// produced by incompatible pipelines and are incomparable.
func similarity(a, b signature) float64 {
	if len(a.bits) == 0 || len(a.bits) != len(b.bits) {
		return 0
	}
	distance := 0
	for i := range a.bits {
		distance += bits.OnesCount8(a.bits[i] ^ b.bits[i])
	}
	total := len(a.bits) * 8
	percent := float64(total-distance) / float64(total) * 100
	return math.Round(percent*10) / 10
}

// prefixBits is the width of the coarse bucket key. Bucketing keeps the
// pairwise comparison cost bounded: only signatures sharing the leading
// prefixBits bits are compared against each other.
const prefixBits = 16

// bucketKey returns the coarse prefix used to pre-bucket candidates.
func bucketKey(sig signature) string {
	chars := prefixBits / 4
	encoded := hex.EncodeToString(sig.bits)
	if len(encoded) < chars {
		return encoded
	}
	return encoded[:chars]
}
