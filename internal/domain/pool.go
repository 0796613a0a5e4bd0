package domain

import (
	"net/netip"
)

type Family string

const (
	IPv4 Family = "IPv4"
	IPv6 Family = "IPv6"
)

// FamilyOf returns the family of addr. IPv4-mapped IPv6 addresses count as IPv6.
func FamilyOf(addr netip.Addr) Family {
	if addr.Is4() {
		return IPv4
	}
	return IPv6
}

// AddressPool yields the usable host addresses of a subnet in ascending
// order. For IPv4 the network and broadcast addresses are excluded. For IPv6
// only the subnet-router anycast address (the first one) is excluded. Blocks
// of two addresses or fewer (/31, /32, /127, /128) are empty.
//
// A pool is consumed once; build a new one for every allocation.
type AddressPool struct {
	next netip.Addr
	last netip.Addr
	done bool
}

func NewAddressPool(subnet netip.Prefix) *AddressPool {
	subnet = subnet.Masked()
	first := subnet.Addr()
	last := lastAddr(subnet)

	pool := &AddressPool{}
	switch {
	case !subnet.IsValid():
		pool.done = true
	case first.Is4() && subnet.Bits() >= 31:
		pool.done = true
	case first.Is4():
		pool.next = first.Next()
		pool.last = last.Prev()
	case subnet.Bits() >= 127:
		pool.done = true
	default:
		pool.next = first.Next()
		pool.last = last
	}
	return pool
}

func (p *AddressPool) Next() (netip.Addr, bool) {
	if p.done {
		return netip.Addr{}, false
	}
	addr := p.next
	if addr == p.last {
		p.done = true
	} else {
		p.next = addr.Next()
	}
	return addr, true
}

// SkipPast discards addresses up to and including addr. When addr is not one
// of the remaining addresses the whole pool is discarded, exactly as if it
// had been walked to the end looking for addr.
func (p *AddressPool) SkipPast(addr netip.Addr) {
	if p.done {
		return
	}
	if addr.BitLen() != p.next.BitLen() || addr.Less(p.next) || p.last.Less(addr) || addr == p.last {
		p.done = true
		return
	}
	p.next = addr.Next()
}

// lastAddr returns the highest address of the prefix (the IPv4 broadcast).
func lastAddr(subnet netip.Prefix) netip.Addr {
	addr := subnet.Addr()
	if addr.Is4() {
		b := addr.As4()
		setHostBits(b[:], subnet.Bits())
		return netip.AddrFrom4(b)
	}
	b := addr.As16()
	setHostBits(b[:], subnet.Bits())
	return netip.AddrFrom16(b)
}

func setHostBits(b []byte, bits int) {
	for i := range b {
		switch {
		case bits >= 8:
			bits -= 8
		case bits > 0:
			b[i] |= 0xff >> bits
			bits = 0
		default:
			b[i] = 0xff
		}
	}
}
