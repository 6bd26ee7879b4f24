package xnet

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClientAddr(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"203.0.113.5", "203.0.113.5"},
		{" 203.0.113.5 ", "203.0.113.5"},
		{"203.0.113.5:51234", "203.0.113.5"},
		{"::ffff:203.0.113.5", "203.0.113.5"},
		{"2001:db8::1", "2001:db8::1"},
		{"[2001:db8::1]:443", "2001:db8::1"},
		{"[2001:db8::1]", "2001:db8::1"},
		{"fe80::1%eth0", "fe80::1"},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := NormalizeAddr(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	for _, bad := range []string{"", "   ", "unknown", "999.1.1.1", "example.com:80"} {
		_, err := ParseClientAddr(bad)
		assert.ErrorIs(t, err, ErrInvalidAddress, bad)
	}
}

func TestFirstListEntry(t *testing.T) {
	assert.Equal(t, "1.1.1.1", FirstListEntry("1.1.1.1, 2.2.2.2"))
	assert.Equal(t, "2.2.2.2", FirstListEntry(" , 2.2.2.2"))
	assert.Empty(t, FirstListEntry(""))
	assert.Empty(t, FirstListEntry(" , "))
}

func TestParseRange(t *testing.T) {
	r, err := ParseRange("10.0.0.0/8")
	require.NoError(t, err)
	assert.True(t, r.Contains(netip.MustParseAddr("10.1.2.3")))

	r, err = ParseRange("192.168.1.10-192.168.1.20")
	require.NoError(t, err)
	assert.True(t, r.Contains(netip.MustParseAddr("192.168.1.15")))
	assert.False(t, r.Contains(netip.MustParseAddr("192.168.1.21")))

	r, err = ParseRange("127.0.0.1")
	require.NoError(t, err)
	assert.True(t, r.Contains(netip.MustParseAddr("127.0.0.1")))

	for _, bad := range []string{"fe80::1%eth0", "10.0.0.0/33", "1.1.1.9-1.1.1.1", "x-y", "nope"} {
		_, err := ParseRange(bad)
		assert.ErrorIs(t, err, ErrInvalidRange, bad)
	}
}

func TestParseRanges(t *testing.T) {
	set, err := ParseRanges([]string{"10.0.0.0/8", "::1"})
	require.NoError(t, err)
	assert.True(t, set.Contains(netip.MustParseAddr("10.9.9.9")))
	assert.True(t, set.Contains(netip.MustParseAddr("::1")))
	assert.False(t, set.Contains(netip.MustParseAddr("8.8.8.8")))

	empty, err := ParseRanges(nil)
	require.NoError(t, err)
	assert.False(t, empty.Contains(netip.MustParseAddr("10.0.0.1")))

	_, err = ParseRanges([]string{"bad"})
	assert.ErrorIs(t, err, ErrInvalidRange)
}
