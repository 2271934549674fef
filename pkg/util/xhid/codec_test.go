package xhid

import (
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlphabet_Sorted(t *testing.T) {
	assert.Len(t, Alphabet, base)
	assert.True(t, sort.SliceIsSorted([]byte(Alphabet), func(i, j int) bool {
		return Alphabet[i] < Alphabet[j]
	}))
	for i := range len(Alphabet) {
		assert.EqualValues(t, i, alphabetIndex[Alphabet[i]])
	}
	assert.EqualValues(t, -1, alphabetIndex['_'])
	assert.EqualValues(t, -1, alphabetIndex['-'])
}

func TestEncode_ZeroPadsToLength(t *testing.T) {
	for _, p := range BuiltinProfiles() {
		raw := newRawID(p)
		s := Encode(raw)
		assert.Equal(t, strings.Repeat("0", p.Length()), s, p.Name())
	}
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	for _, p := range BuiltinProfiles() {
		raw := newRawID(p)
		raw.setTimestamp(uint64(testEpoch.UnixMilli()))
		raw.setNode(MaxNodeValue)
		raw.setSequence(7)
		raw.setRandom(bytesOf(0xA5, randomBytes(p)))
		raw.seal()

		s := Encode(raw)
		require.Len(t, s, p.Length())

		back, err := Decode(s, p)
		require.NoError(t, err)
		assert.Equal(t, raw.Bytes(), back.Bytes(), p.Name())
	}
}

func TestEncode_MaxValueFillsLength(t *testing.T) {
	for _, p := range BuiltinProfiles() {
		raw := newRawID(p)
		setAllBits(raw)
		s := Encode(raw)
		assert.Len(t, s, p.Length(), p.Name())
		assert.NotEqual(t, byte('0'), s[0], "budget should reach the leading character")
	}
}

func TestDecode_Errors(t *testing.T) {
	p := builtinProfiles[1]
	tests := []struct {
		name string
		in   string
	}{
		{"short", strings.Repeat("0", p.Length()-1)},
		{"long", strings.Repeat("0", p.Length()+1)},
		{"charset", strings.Repeat("0", p.Length()-1) + "-"},
		{"non ascii", strings.Repeat("0", p.Length()-2) + "é"},
		{"over budget", strings.Repeat("z", p.Length())},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.in, p)
			assert.ErrorIs(t, err, ErrDecode)
		})
	}
	_, err := Decode("0", Profile{})
	assert.ErrorIs(t, err, ErrDecode)
}

func TestSwapCase(t *testing.T) {
	assert.Equal(t, "aZ09", swapCase("Az09"))
}

func bytesOf(b byte, n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = b
	}
	return out
}

// setAllBits 将 profile 预算内的所有位置 1
func setAllBits(raw RawID) {
	p := raw.profile
	for pos := p.tsPos; pos < p.bytes*8; pos++ {
		setBits(raw.buf, pos, 1, 1)
	}
}
