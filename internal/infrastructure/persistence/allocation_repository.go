package persistence

import (
	"database/sql"
	"errors"
	"fmt"
	"net/netip"
	"strings"

	"github.com/lib/pq"

	"github.com/zinrai/grouppolicy-gen/internal/domain"
	"github.com/zinrai/grouppolicy-gen/internal/infrastructure/db"
)

// AllocationRepository reads address allocations from an IPAM database with
// an ip_addresses table (address inet, status text). It never writes.
type AllocationRepository struct {
	db *db.DB
}

var _ domain.AllocationSource = (*AllocationRepository)(nil)

func NewAllocationRepository(db *db.DB) *AllocationRepository {
	return &AllocationRepository{db: db}
}

// LastAllocatedAddress returns the highest allocated address inside subnet.
// The boolean is false when nothing in subnet is allocated yet.
func (r *AllocationRepository) LastAllocatedAddress(subnet netip.Prefix) (netip.Addr, bool, error) {
	query := `
		SELECT address::text
		FROM ip_addresses
		WHERE status = 'allocated' AND address <<= $1::inet
		ORDER BY address DESC
		LIMIT 1
	`
	var addressStr string
	err := r.db.QueryRow(query, subnet.String()).Scan(&addressStr)
	if err != nil {
		if err == sql.ErrNoRows {
			return netip.Addr{}, false, nil
		}
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "undefined_table" {
			return netip.Addr{}, false, fmt.Errorf("IPAM schema not found: %s", pqErr.Message)
		}
		return netip.Addr{}, false, fmt.Errorf("failed to get last allocated address: %w", err)
	}

	// inet renders as host/mask
	addr, err := netip.ParseAddr(strings.Split(addressStr, "/")[0])
	if err != nil {
		return netip.Addr{}, false, fmt.Errorf("failed to parse allocated IP address %s: %w", addressStr, err)
	}
	return addr, true, nil
}
