package ipam

import (
	"fmt"
	"strings"
)

const (
	// PlaceholderServer is the server name shipped with the default
	// configuration. It means the integration was never configured.
	PlaceholderServer = "infoblox.example.com"

	DefaultAPIVersion = "v2.7"
)

// Config holds the resolved, decrypted IPAM server settings.
type Config struct {
	Type       IpamType `json:"type,omitempty"`
	Server     string   `json:"server"`
	APIVersion string   `json:"apiVersion"`
	Username   string   `json:"username"`
	Password   string   `json:"-"`

	// VerifySSL enables TLS certificate verification of the IPAM server.
	// It is off unless explicitly enabled.
	VerifySSL bool `json:"verifySSL"`
}

// Validate returns ErrConfigurationMissing when the server is unset or
// still the placeholder value.
func (c Config) Validate() error {
	server := strings.TrimSpace(c.Server)
	if server == "" || strings.EqualFold(server, PlaceholderServer) {
		return ErrConfigurationMissing
	}
	return nil
}

// BaseURL returns the WAPI root every request path is joined under.
func (c Config) BaseURL() string {
	version := c.APIVersion
	if version == "" {
		version = DefaultAPIVersion
	}
	return fmt.Sprintf("https://%s/wapi/%s/", strings.TrimSpace(c.Server), version)
}

// IpamTypeOrDefault returns the configured backend type, infoblox if unset.
func (c Config) IpamTypeOrDefault() IpamType {
	if c.Type == "" {
		return IpamTypeInfoblox
	}
	return c.Type
}
