package usecase

import (
	"fmt"
	"net/netip"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zinrai/grouppolicy-gen/internal/domain"
)

var subnet29 = netip.MustParsePrefix("10.0.0.0/29")

func TestAllocate(t *testing.T) {
	tests := []struct {
		name     string
		names    []string
		subnet   netip.Prefix
		lastUsed string
		want     map[string]string
	}{
		{
			name:   "From first host",
			names:  []string{"alice", "bob"},
			subnet: subnet29,
			want:   map[string]string{"alice": "10.0.0.1", "bob": "10.0.0.2"},
		},
		{
			name:     "Resume after last used",
			names:    []string{"carol"},
			subnet:   subnet29,
			lastUsed: "10.0.0.2",
			want:     map[string]string{"carol": "10.0.0.3"},
		},
		{
			name:   "Fill whole pool",
			names:  []string{"a", "b", "c", "d", "e", "f"},
			subnet: subnet29,
			want: map[string]string{
				"a": "10.0.0.1", "b": "10.0.0.2", "c": "10.0.0.3",
				"d": "10.0.0.4", "e": "10.0.0.5", "f": "10.0.0.6",
			},
		},
		{
			name:     "Resume on second to last host",
			names:    []string{"zed"},
			subnet:   subnet29,
			lastUsed: "10.0.0.5",
			want:     map[string]string{"zed": "10.0.0.6"},
		},
		{
			name:   "IPv6",
			names:  []string{"alice", "bob"},
			subnet: netip.MustParsePrefix("2001:db8:1::/64"),
			want:   map[string]string{"alice": "2001:db8:1::1", "bob": "2001:db8:1::2"},
		},
		{
			name:     "IPv6 resume",
			names:    []string{"carol"},
			subnet:   netip.MustParsePrefix("2001:db8:1::/64"),
			lastUsed: "2001:db8:1::ff",
			want:     map[string]string{"carol": "2001:db8:1::100"},
		},
		{
			name:   "Duplicate name rebinds to later address",
			names:  []string{"alice", "bob", "alice"},
			subnet: subnet29,
			want:   map[string]string{"alice": "10.0.0.3", "bob": "10.0.0.2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var lastUsed netip.Addr
			if tt.lastUsed != "" {
				lastUsed = netip.MustParseAddr(tt.lastUsed)
			}
			got, err := Allocate(tt.names, tt.subnet, lastUsed)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got.Map()); diff != "" {
				t.Errorf("assignment mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestAllocateOrderAndUniqueness(t *testing.T) {
	names := make([]string, 200)
	for i := range names {
		names[i] = fmt.Sprintf("user%03d", i)
	}

	got, err := Allocate(names, netip.MustParsePrefix("172.16.0.0/24"), netip.Addr{})
	require.NoError(t, err)
	require.Equal(t, len(names), got.Len())

	entries := got.Entries()
	seen := make(map[netip.Addr]bool, len(entries))
	for i, e := range entries {
		assert.Equal(t, names[i], e.Name)
		assert.False(t, seen[e.Address], "address %s reused", e.Address)
		seen[e.Address] = true
		if i > 0 {
			assert.True(t, entries[i-1].Address.Less(e.Address), "%s not after %s", e.Address, entries[i-1].Address)
		}
	}
}

func TestAllocateEmptyNames(t *testing.T) {
	got, err := Allocate(nil, subnet29, netip.Addr{})
	require.NoError(t, err)
	assert.Equal(t, 0, got.Len())

	got, err = Allocate([]string{}, netip.MustParsePrefix("10.0.0.1/32"), netip.MustParseAddr("10.0.0.1"))
	require.NoError(t, err)
	assert.Equal(t, 0, got.Len())
}

func TestAllocateExhaustion(t *testing.T) {
	tests := []struct {
		name     string
		names    []string
		subnet   netip.Prefix
		lastUsed string
		assigned int
	}{
		{"Subnet too small", []string{"a", "b", "c", "d", "e", "f", "g"}, subnet29, "", 6},
		{"Last used is second to last host", []string{"a", "b"}, subnet29, "10.0.0.5", 1},
		{"Last used is last host", []string{"a"}, subnet29, "10.0.0.6", 0},
		{"Last used outside subnet", []string{"a"}, subnet29, "10.0.1.1", 0},
		{"Last used is network address", []string{"a"}, subnet29, "10.0.0.0", 0},
		{"Slash 31", []string{"a"}, netip.MustParsePrefix("10.0.0.0/31"), "", 0},
		{"Slash 32", []string{"a"}, netip.MustParsePrefix("10.0.0.1/32"), "", 0},
		{"Slash 128", []string{"a"}, netip.MustParsePrefix("2001:db8::1/128"), "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var lastUsed netip.Addr
			if tt.lastUsed != "" {
				lastUsed = netip.MustParseAddr(tt.lastUsed)
			}
			got, err := Allocate(tt.names, tt.subnet, lastUsed)
			require.ErrorIs(t, err, domain.ErrPoolExhausted)
			assert.Nil(t, got)

			var exhausted *domain.PoolExhaustedError
			require.ErrorAs(t, err, &exhausted)
			assert.Equal(t, len(tt.names), exhausted.Requested)
			assert.Equal(t, tt.assigned, exhausted.Assigned)
		})
	}
}

func TestAllocateFamilyMismatch(t *testing.T) {
	_, err := Allocate([]string{"alice"}, subnet29, netip.MustParseAddr("2001:db8::1"))
	assert.ErrorIs(t, err, domain.ErrInvalidAddressFamily)

	_, err = Allocate([]string{"alice"}, netip.MustParsePrefix("2001:db8::/64"), netip.MustParseAddr("10.0.0.1"))
	assert.ErrorIs(t, err, domain.ErrInvalidAddressFamily)
}
