package domain

import (
	"net/netip"
)

type Assignment struct {
	Name    string
	Address netip.Addr
}

// AddressAssignment maps names to addresses. Lookup is by name; iteration
// follows the order in which names were first bound.
type AddressAssignment struct {
	entries []Assignment
	index   map[string]int
}

func NewAddressAssignment() *AddressAssignment {
	return &AddressAssignment{index: make(map[string]int)}
}

// Bind sets the address for name. Binding a name again replaces its address
// but keeps its original position.
func (a *AddressAssignment) Bind(name string, addr netip.Addr) {
	if i, ok := a.index[name]; ok {
		a.entries[i].Address = addr
		return
	}
	a.index[name] = len(a.entries)
	a.entries = append(a.entries, Assignment{Name: name, Address: addr})
}

func (a *AddressAssignment) Lookup(name string) (netip.Addr, bool) {
	if a == nil {
		return netip.Addr{}, false
	}
	i, ok := a.index[name]
	if !ok {
		return netip.Addr{}, false
	}
	return a.entries[i].Address, true
}

func (a *AddressAssignment) Len() int {
	if a == nil {
		return 0
	}
	return len(a.entries)
}

// Entries returns a copy of the assignments in binding order.
func (a *AddressAssignment) Entries() []Assignment {
	if a == nil {
		return nil
	}
	out := make([]Assignment, len(a.entries))
	copy(out, a.entries)
	return out
}

func (a *AddressAssignment) Map() map[string]string {
	out := make(map[string]string, a.Len())
	for _, e := range a.Entries() {
		out[e.Name] = e.Address.String()
	}
	return out
}

type RenderVariables struct {
	Addresses      *AddressAssignment
	GroupPolicy    string
	AuthServerName string
	GatewayBaseURL string
}

// A zero LastUsed means allocation starts at the first usable host.
type GenerateRequest struct {
	Names          []string
	Subnet         netip.Prefix
	LastUsed       netip.Addr
	SiteCode       string
	GroupPolicy    string
	AuthServerName string
	GatewayBaseURL string
}

type GenerateResult struct {
	Assignment *AddressAssignment
	SetPath    string
	ClearPath  string
}

type TemplateRenderer interface {
	Render(templateDir, templateName string, vars RenderVariables) (string, error)
}

type ConfigWriter interface {
	WriteConfig(dir, name, contents string) (string, error)
}

// AllocationSource reports the highest address already handed out inside a
// subnet by an external address manager.
type AllocationSource interface {
	LastAllocatedAddress(subnet netip.Prefix) (netip.Addr, bool, error)
}
