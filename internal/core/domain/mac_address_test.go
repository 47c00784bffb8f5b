package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMAC_Formats(t *testing.T) {
	for _, in := range []string{"00:09:0f:aa:bb:cc", "00-09-0F-AA-BB-CC", "00090FAABBCC", "0009.0faa.bbcc"} {
		mac, err := ParseMAC(in)
		require.NoError(t, err, in)
		assert.Equal(t, "00:09:0F", mac.OUI(), in)
		assert.Equal(t, "00:09:0F:AA:BB:CC", mac.String(), in)
	}
}

func TestParseMAC_Invalid(t *testing.T) {
	_, err := ParseMAC("not-a-mac")
	assert.ErrorIs(t, err, ErrInvalidMAC)

	_, err = ParseMAC("")
	assert.ErrorIs(t, err, ErrRequired)
}

func TestMACAddress_IsRandomized(t *testing.T) {
	assert.True(t, MustParseMAC("02:00:00:00:00:01").IsRandomized())
	assert.False(t, MustParseMAC("00:1B:63:00:00:01").IsRandomized())
}
