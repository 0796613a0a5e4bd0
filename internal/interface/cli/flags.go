package cli

import (
	"fmt"
	"net/netip"
	"strings"

	"github.com/spf13/pflag"
)

// prefixValue parses a CIDR subnet as soon as the flag is set. Prefixes with
// host bits set are rejected.
type prefixValue struct {
	prefix netip.Prefix
	set    bool
}

var _ pflag.Value = (*prefixValue)(nil)

func (v *prefixValue) String() string {
	if !v.set {
		return ""
	}
	return v.prefix.String()
}

func (v *prefixValue) Set(s string) error {
	p, err := netip.ParsePrefix(strings.TrimSpace(s))
	if err != nil {
		return err
	}
	if p != p.Masked() {
		return fmt.Errorf("host bits set, expected %s", p.Masked())
	}
	v.prefix, v.set = p, true
	return nil
}

func (v *prefixValue) Type() string { return "cidr" }

type addrValue struct {
	addr netip.Addr
}

var _ pflag.Value = (*addrValue)(nil)

func (v *addrValue) String() string {
	if !v.addr.IsValid() {
		return ""
	}
	return v.addr.String()
}

func (v *addrValue) Set(s string) error {
	a, err := netip.ParseAddr(strings.TrimSpace(s))
	if err != nil {
		return err
	}
	if a.Zone() != "" {
		return fmt.Errorf("zoned address not allowed")
	}
	v.addr = a
	return nil
}

func (v *addrValue) Type() string { return "ip" }
