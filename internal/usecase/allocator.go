package usecase

import (
	"net/netip"

	"github.com/zinrai/grouppolicy-gen/internal/domain"
)

// Allocate binds each name, in order, to the next usable host of subnet.
// When lastUsed is valid, allocation resumes right after it; a lastUsed that
// is not a host of subnet leaves nothing to allocate from. No partial result
// is returned on exhaustion.
func Allocate(names []string, subnet netip.Prefix, lastUsed netip.Addr) (*domain.AddressAssignment, error) {
	if lastUsed.IsValid() && domain.FamilyOf(lastUsed) != domain.FamilyOf(subnet.Addr()) {
		return nil, &domain.AddressFamilyError{Subnet: subnet, Address: lastUsed}
	}

	assignment := domain.NewAddressAssignment()
	if len(names) == 0 {
		return assignment, nil
	}

	pool := domain.NewAddressPool(subnet)
	if lastUsed.IsValid() {
		pool.SkipPast(lastUsed)
	}

	for i, name := range names {
		addr, ok := pool.Next()
		if !ok {
			return nil, &domain.PoolExhaustedError{
				Subnet:    subnet,
				LastUsed:  lastUsed,
				Requested: len(names),
				Assigned:  i,
			}
		}
		assignment.Bind(name, addr)
	}
	return assignment, nil
}
