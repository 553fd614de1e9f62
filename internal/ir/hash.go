package ir

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"reflect"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainSite      = "strtpl/site/v2"
	DomainFragments = "strtpl/fragments/v1"
	DomainValue     = "strtpl/value/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte (0x00) separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) [sha256.Size]byte {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	var sum [sha256.Size]byte
	copy(sum[:], h.Sum(nil))
	return sum
}

// SiteKey computes the cache key of a call site: the identity of the
// (fragments, signature) pair that the specialization factory memoizes on.
// Fragments are keyed by their exact bytes, so NFC-equivalent or invalid
// UTF-8 fragments never share a key.
// Returns error if the signature holds an unknown slot type.
func SiteKey(fragments []string, sig Signature) (string, error) {
	data := binary.AppendUvarint(nil, uint64(len(fragments)))
	for _, f := range fragments {
		data = binary.AppendUvarint(data, uint64(len(f)))
		data = append(data, f...)
	}
	for i, t := range sig {
		if !t.Valid() {
			return "", fmt.Errorf("SiteKey: slot %d: unknown type %d", i, uint8(t))
		}
		data = append(data, t.String()...)
		data = append(data, 0x00)
	}

	sum := hashWithDomain(DomainSite, data)
	return hex.EncodeToString(sum[:]), nil
}

// MustSiteKey is like SiteKey but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustSiteKey(fragments []string, sig Signature) string {
	key, err := SiteKey(fragments, sig)
	if err != nil {
		panic(err)
	}
	return key
}

// HashFragments returns a 64-bit hash of an ordered fragment list.
// Each fragment is length-prefixed so ["ab", "c"] and ["a", "bc"] differ.
func HashFragments(fragments []string) uint64 {
	var data []byte
	for _, f := range fragments {
		data = binary.AppendUvarint(data, uint64(len(f)))
		data = append(data, f...)
	}
	sum := hashWithDomain(DomainFragments, data)
	return binary.BigEndian.Uint64(sum[:8])
}

// HashValue returns a 64-bit hash of a value's dynamic type and, for scalar
// kinds, its canonical string form. Composite values hash by type only so
// that values equal under reflect.DeepEqual always hash equally. Negative
// zero hashes as zero for the same reason.
func HashValue(v any) uint64 {
	data := fmt.Appendf(nil, "%T", v)
	if isScalar(v) {
		data = append(data, 0x00)
		data = append(data, ToString(positiveZero(v))...)
	}
	sum := hashWithDomain(DomainValue, data)
	return binary.BigEndian.Uint64(sum[:8])
}

// positiveZero maps a float negative zero to positive zero, keeping the
// dynamic type.
func positiveZero(v any) any {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		if rv.Float() == 0 && math.Signbit(rv.Float()) {
			z := reflect.New(rv.Type()).Elem()
			return z.Interface()
		}
	}
	return v
}

func isScalar(v any) bool {
	if v == nil {
		return true
	}
	switch reflect.TypeOf(v).Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
