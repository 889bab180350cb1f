package infoblox

import (
	"github.com/spectrocloud/ddi-ipam-automation/pkg/ipam"
)

// wapiHostRecord is the record:host object as sent and returned by WAPI.
type wapiHostRecord struct {
	Ref             string         `json:"_ref,omitempty"`
	Name            string         `json:"name"`
	IPv4Addrs       []wapiIPv4Addr `json:"ipv4addrs"`
	Aliases         []string       `json:"aliases,omitempty"`
	View            string         `json:"view,omitempty"`
	Comment         string         `json:"comment,omitempty"`
	ConfigureForDNS *bool          `json:"configure_for_dns,omitempty"`
}

type wapiIPv4Addr struct {
	Ref              string `json:"_ref,omitempty"`
	IPv4Addr         string `json:"ipv4addr"`
	Host             string `json:"host,omitempty"`
	ConfigureForDHCP *bool  `json:"configure_for_dhcp,omitempty"`
	MAC              string `json:"mac,omitempty"`
}

// wapiError is the body WAPI sends along with a non-2xx status.
type wapiError struct {
	Error string `json:"Error"`
	Code  string `json:"code"`
	Text  string `json:"text"`
}

func newHostRecordRequest(name string, addressSpace ipam.IPSubnetStr, enableDNS bool, opts *ipam.CreateOptions) wapiHostRecord {
	return wapiHostRecord{
		Name: name,
		IPv4Addrs: []wapiIPv4Addr{
			{IPv4Addr: nextAvailableIP(addressSpace)},
		},
		Aliases:         opts.Aliases,
		View:            opts.View,
		Comment:         opts.Comment,
		ConfigureForDNS: &enableDNS,
	}
}

func convertToIpamHostRecord(r wapiHostRecord) ipam.HostRecord {
	// configure_for_dns is not a default return field, the server default is true
	dnsEnabled := true
	if r.ConfigureForDNS != nil {
		dnsEnabled = *r.ConfigureForDNS
	}

	return ipam.HostRecord{
		Reference:  ipam.Reference(r.Ref),
		Name:       r.Name,
		IPv4Addrs:  convertToIpamIPv4AddrArray(r.IPv4Addrs),
		Aliases:    r.Aliases,
		View:       r.View,
		DNSEnabled: dnsEnabled,
	}
}

func convertToIpamHostRecordArray(rArr []wapiHostRecord) []ipam.HostRecord {
	records := []ipam.HostRecord{}
	for _, r := range rArr {
		records = append(records, convertToIpamHostRecord(r))
	}

	return records
}

func convertToIpamIPv4AddrArray(aArr []wapiIPv4Addr) []ipam.IPv4Addr {
	addrs := []ipam.IPv4Addr{}
	for _, a := range aArr {
		addr := ipam.IPv4Addr{
			Reference: ipam.Reference(a.Ref),
			Address:   ipam.IPAddressStr(a.IPv4Addr),
			Host:      a.Host,
			MAC:       a.MAC,
		}
		if a.ConfigureForDHCP != nil {
			addr.ConfigureForDHCP = *a.ConfigureForDHCP
		}
		addrs = append(addrs, addr)
	}

	return addrs
}
