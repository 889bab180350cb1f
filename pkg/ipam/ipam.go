package ipam

import (
	"github.com/go-logr/logr"
)

// function to create a new IPAM
type NewIpamFunc func(cfg Config, log logr.Logger) (IPAddressManager, error)

type IpamType string

const (
	IpamTypeInfoblox IpamType = "infoblox"
)

type IPAddressStr string

type IPSubnetStr string

// Reference is the opaque, server assigned identifier of an IPAM object,
// e.g. "record:host/ZG5zLmhvc3QkLl9kZWZhdWx0LmNvbS5leGFtcGxlLmhvc3Qx:host1.example.com/default".
type Reference string

// HostRecord is a DNS+IP binding held by the IPAM server.
type HostRecord struct {
	Reference  Reference  `json:"reference"`
	Name       string     `json:"name"`
	IPv4Addrs  []IPv4Addr `json:"ipv4addrs"`
	Aliases    []string   `json:"aliases,omitempty"`
	View       string     `json:"view,omitempty"`
	DNSEnabled bool       `json:"dnsEnabled"`
}

// IPv4Addr is a single address entry of a host record.
type IPv4Addr struct {
	Reference        Reference    `json:"reference,omitempty"`
	Address          IPAddressStr `json:"address"`
	Host             string       `json:"host,omitempty"`
	ConfigureForDHCP bool         `json:"configureForDHCP,omitempty"`
	MAC              string       `json:"mac,omitempty"`
}

// FirstIPv4 returns the first assigned address of the record, if any.
func (h HostRecord) FirstIPv4() (IPAddressStr, bool) {
	if len(h.IPv4Addrs) == 0 || h.IPv4Addrs[0].Address == "" {
		return "", false
	}
	return h.IPv4Addrs[0].Address, true
}

// CreateOption is some configuration that modifies options for a create request.
type CreateOption interface {
	// ApplyToCreate applies this configuration to the given create options.
	ApplyToCreate(*CreateOptions)
}

// CreateOptions contains optional attributes of a new host record.
type CreateOptions struct {
	// Aliases are additional DNS names of the host.
	Aliases []string

	// Comment is stored on the record as free text.
	Comment string

	// View is the DNS view the record is created in. The server
	// default view is used when empty.
	View string
}

// ApplyOptions applies the given create options on these options,
// and then returns itself (for convenient chaining).
func (o *CreateOptions) ApplyOptions(opts []CreateOption) *CreateOptions {
	for _, opt := range opts {
		opt.ApplyToCreate(o)
	}
	return o
}

// ApplyToCreate implements CreateOption
func (o *CreateOptions) ApplyToCreate(co *CreateOptions) {
	if len(o.Aliases) > 0 {
		co.Aliases = o.Aliases
	}
	if o.Comment != "" {
		co.Comment = o.Comment
	}
	if o.View != "" {
		co.View = o.View
	}
}

var _ CreateOption = &CreateOptions{}

// WithAliases sets the DNS aliases of a new host record.
type WithAliases []string

// ApplyToCreate implements CreateOption
func (w WithAliases) ApplyToCreate(co *CreateOptions) {
	co.Aliases = append(co.Aliases, w...)
}

// WithComment sets the comment of a new host record.
type WithComment string

// ApplyToCreate implements CreateOption
func (w WithComment) ApplyToCreate(co *CreateOptions) {
	co.Comment = string(w)
}

// WithView sets the DNS view of a new host record.
type WithView string

// ApplyToCreate implements CreateOption
func (w WithView) ApplyToCreate(co *CreateOptions) {
	co.View = string(w)
}
