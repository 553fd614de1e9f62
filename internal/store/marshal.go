package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/strtpl/internal/ir"
)

// marshalStrings converts a string list to canonical JSON TEXT for storage.
// Uses RFC 8785 canonical JSON for deterministic serialization.
func marshalStrings(list []string) (string, error) {
	if list == nil {
		list = []string{}
	}
	data, err := ir.MarshalCanonical(list)
	if err != nil {
		return "", fmt.Errorf("marshal strings: %w", err)
	}
	return string(data), nil
}

// marshalSignature converts a signature to canonical JSON TEXT.
func marshalSignature(sig ir.Signature) (string, error) {
	if sig == nil {
		sig = ir.Signature{}
	}
	data, err := ir.MarshalCanonical(sig)
	if err != nil {
		return "", fmt.Errorf("marshal signature: %w", err)
	}
	return string(data), nil
}

// unmarshalStrings parses JSON TEXT to a string list.
// Returns an empty (non-nil) slice for empty input.
func unmarshalStrings(data string) ([]string, error) {
	list := []string{}
	if data == "" || data == "[]" {
		return list, nil
	}
	if err := json.Unmarshal([]byte(data), &list); err != nil {
		return nil, fmt.Errorf("unmarshal strings: %w", err)
	}
	return list, nil
}

// unmarshalSignature parses JSON TEXT to a signature.
// Type names are decoded through ir.Type's TextUnmarshaler.
func unmarshalSignature(data string) (ir.Signature, error) {
	sig := ir.Signature{}
	if data == "" || data == "[]" {
		return sig, nil
	}
	if err := json.Unmarshal([]byte(data), &sig); err != nil {
		return nil, fmt.Errorf("unmarshal signature: %w", err)
	}
	return sig, nil
}
