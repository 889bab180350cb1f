package ipam

import "context"

type IPAddressManager interface {
	// creates a host record whose address is allocated by the server from addressSpace
	// returns the reference of the new record, not the populated record
	CreateHost(ctx context.Context, name string, addressSpace IPSubnetStr, enableDNS bool, opts ...CreateOption) (Reference, error)

	// gets a host record by its reference
	GetHost(ctx context.Context, ref Reference) (*HostRecord, error)

	// finds all host records with exactly the given name, empty if there are none
	FindHosts(ctx context.Context, name string) ([]HostRecord, error)

	// deletes a host record, releasing its addresses back to the server
	DeleteHost(ctx context.Context, ref Reference) error
}
