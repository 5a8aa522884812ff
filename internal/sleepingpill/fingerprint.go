package sleepingpill

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Fingerprinter hashes session records for change detection. Changing the
// generation makes every stored hash stale, forcing a full UPDATE fan-out.
type Fingerprinter struct {
	generation string
}

func NewFingerprinter(generation string) *Fingerprinter {
	return &Fingerprinter{generation: generation}
}

// Canonical serializes r as compact JSON with object keys sorted at every
// level. It is also the form stored as session data.
func Canonical(r Record) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(map[string]any(r)); err != nil {
		return nil, fmt.Errorf("failed to serialize session: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Fingerprint returns the hex SHA-256 of the canonical form, salted with the
// generation when one is set, together with the canonical bytes.
func (f *Fingerprinter) Fingerprint(r Record) (string, []byte, error) {
	canonical, err := Canonical(r)
	if err != nil {
		return "", nil, err
	}
	return f.Sum(canonical), canonical, nil
}

// Sum hashes already canonical bytes.
func (f *Fingerprinter) Sum(canonical []byte) string {
	h := sha256.New()
	if f.generation != "" {
		h.Write([]byte(f.generation))
		h.Write([]byte("\n"))
	}
	h.Write(canonical)
	return hex.EncodeToString(h.Sum(nil))
}
