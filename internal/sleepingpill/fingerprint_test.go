package sleepingpill

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(t *testing.T, s string) Record {
	t.Helper()
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()
	var r Record
	require.NoError(t, dec.Decode(&r))
	return r
}

func TestFingerprintIgnoresFieldOrder(t *testing.T) {
	fp := NewFingerprinter("")

	a := record(t, `{"title": "A", "room": "7", "speakers": [{"name": "Ada", "bio": "x"}], "length": 45}`)
	b := record(t, `{"length": 45, "speakers": [{"bio": "x", "name": "Ada"}], "room": "7", "title": "A"}`)

	hashA, canonA, err := fp.Fingerprint(a)
	require.NoError(t, err)
	hashB, canonB, err := fp.Fingerprint(b)
	require.NoError(t, err)

	assert.Equal(t, hashA, hashB)
	assert.Equal(t, canonA, canonB)
	assert.Equal(t, `{"length":45,"room":"7","speakers":[{"bio":"x","name":"Ada"}],"title":"A"}`, string(canonA))
	assert.Len(t, hashA, 64)
}

func TestFingerprintDetectsChange(t *testing.T) {
	fp := NewFingerprinter("")
	base := `{"title": "A", "room": "7", "length": 45, "abstract": "<b>&</b>"}`

	tcases := []struct {
		name    string
		changed string
	}{
		{name: "string field", changed: `{"title": "B", "room": "7", "length": 45, "abstract": "<b>&</b>"}`},
		{name: "number field", changed: `{"title": "A", "room": "7", "length": 46, "abstract": "<b>&</b>"}`},
		{name: "number formatting", changed: `{"title": "A", "room": "7", "length": 45.0, "abstract": "<b>&</b>"}`},
		{name: "added field", changed: `{"title": "A", "room": "7", "length": 45, "abstract": "<b>&</b>", "video": ""}`},
		{name: "removed field", changed: `{"title": "A", "length": 45, "abstract": "<b>&</b>"}`},
	}

	hash, canonical, err := fp.Fingerprint(record(t, base))
	require.NoError(t, err)
	assert.Contains(t, string(canonical), `"<b>&</b>"`, "html is not escaped")

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			other, _, err := fp.Fingerprint(record(t, tc.changed))
			require.NoError(t, err)
			assert.NotEqual(t, hash, other)
		})
	}
}

func TestFingerprintGeneration(t *testing.T) {
	r := record(t, `{"title": "A"}`)

	plain, canonical, err := NewFingerprinter("").Fingerprint(r)
	require.NoError(t, err)
	gen1, _, err := NewFingerprinter("2025-1").Fingerprint(r)
	require.NoError(t, err)
	gen1Again, _, err := NewFingerprinter("2025-1").Fingerprint(r)
	require.NoError(t, err)
	gen2, _, err := NewFingerprinter("2025-2").Fingerprint(r)
	require.NoError(t, err)

	assert.Equal(t, gen1, gen1Again)
	assert.NotEqual(t, plain, gen1)
	assert.NotEqual(t, gen1, gen2)
	assert.Equal(t, plain, NewFingerprinter("").Sum(canonical))
}
