package ipam

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		server  string
		missing bool
	}{
		{"", true},
		{"   ", true},
		{PlaceholderServer, true},
		{"INFOBLOX.example.com", true},
		{"ipam.example.org", false},
	}
	for _, tt := range tests {
		err := Config{Server: tt.server}.Validate()
		assert.Equal(t, tt.missing, IsConfigurationMissing(err), "server %q", tt.server)
	}
}

func TestConfigBaseURL(t *testing.T) {
	assert.Equal(t, "https://ipam.example.org/wapi/v2.7/", Config{Server: "ipam.example.org"}.BaseURL())
	assert.Equal(t, "https://ipam.example.org/wapi/v2.12/", Config{Server: " ipam.example.org ", APIVersion: "v2.12"}.BaseURL())
}

func TestIpamTypeOrDefault(t *testing.T) {
	assert.Equal(t, IpamTypeInfoblox, Config{}.IpamTypeOrDefault())
	assert.Equal(t, IpamType("other"), Config{Type: "other"}.IpamTypeOrDefault())
}
