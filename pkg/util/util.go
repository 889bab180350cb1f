package util

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"k8s.io/apimachinery/pkg/util/validation"
	utilnet "k8s.io/utils/net"

	"github.com/spectrocloud/ddi-ipam-automation/pkg/automate"
	"github.com/spectrocloud/ddi-ipam-automation/pkg/ipam"
)

// DetermineHostname returns the first registered hostname of the VM, or
// its name when it has none. Acquire and release must agree on this name.
func DetermineHostname(vm *automate.VM) string {
	if vm == nil {
		return ""
	}
	if h, ok := lo.Find(vm.Hostnames, func(h string) bool {
		return strings.TrimSpace(h) != ""
	}); ok {
		return strings.TrimSpace(h)
	}
	return strings.TrimSpace(vm.Name)
}

// ValidateAddressSpace checks that cidr is an IPv4 CIDR the IPAM server
// can allocate from and returns it without surrounding blanks.
func ValidateAddressSpace(cidr string) (ipam.IPSubnetStr, error) {
	trimmed := strings.TrimSpace(cidr)
	if !utilnet.IsIPv4CIDRString(trimmed) {
		return "", errors.Errorf("invalid address space %q, expected an IPv4 CIDR", cidr)
	}
	return ipam.IPSubnetStr(trimmed), nil
}

// ValidateHostname checks that name can be registered as a DNS name.
func ValidateHostname(name string) error {
	if msgs := validation.IsDNS1123Subdomain(strings.ToLower(name)); len(msgs) > 0 {
		return errors.Errorf("invalid hostname %q: %s", name, strings.Join(msgs, ", "))
	}
	return nil
}

// GetAddress returns the first IPv4 address of the record, or "".
func GetAddress(record *ipam.HostRecord) string {
	if record == nil {
		return ""
	}
	if ip, ok := record.FirstIPv4(); ok {
		return string(ip)
	}
	return ""
}

// GetAddresses returns every IPv4 address of the record.
func GetAddresses(record ipam.HostRecord) []string {
	addrs := []string{}
	for _, a := range record.IPv4Addrs {
		if a.Address != "" {
			addrs = append(addrs, string(a.Address))
		}
	}
	return addrs
}
