package netconfig

import (
	"context"
	"regexp"
	"strings"

	"github.com/pkg/errors"

	"github.com/spectrocloud/ddi-ipam-automation/pkg/cmdb"
)

const (
	// NetworkConfigurationPath is where network configuration objects live.
	NetworkConfigurationPath = "Infrastructure/Network/Configuration"

	// DVSPrefix is prepended to port group names of distributed switches.
	DVSPrefix = "dvs_"
)

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9_.\-]`)

// SanitizeName replaces every character other than letters, digits,
// '.', '-' and '_' by '_'.
func SanitizeName(name string) string {
	return unsafeNameChars.ReplaceAllString(name, "_")
}

// ConfigObjectStrategy reads the configuration object named after the
// sanitized network name. A "dvs_" network without an address space of
// its own falls back to the configuration of the name without the prefix.
type ConfigObjectStrategy struct {
	Store cmdb.ConfigStore
	Path  string
}

func NewConfigObjectStrategy(store cmdb.ConfigStore) *ConfigObjectStrategy {
	return &ConfigObjectStrategy{
		Store: store,
		Path:  NetworkConfigurationPath,
	}
}

func (s *ConfigObjectStrategy) Name() string {
	return "configuration-object"
}

func (s *ConfigObjectStrategy) Lookup(ctx context.Context, networkName string) (*NetworkConfig, error) {
	name := SanitizeName(networkName)
	config, err := s.instantiate(ctx, networkName, name)
	if err != nil {
		return nil, err
	}

	if strings.HasPrefix(name, DVSPrefix) && (config == nil || config.AddressSpace == "") {
		config, err = s.instantiate(ctx, networkName, strings.TrimPrefix(name, DVSPrefix))
		if err != nil {
			return nil, err
		}
	}

	if config == nil || config.AddressSpace == "" {
		return nil, notFound("no configuration object with an address space for network %s (escaped %s)", networkName, name)
	}
	return config, nil
}

// instantiate returns nil without error when the object does not exist.
func (s *ConfigObjectStrategy) instantiate(ctx context.Context, networkName, objectName string) (*NetworkConfig, error) {
	obj, err := s.Store.Instantiate(ctx, s.Path+"/"+objectName)
	if cmdb.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to instantiate network configuration %s", objectName)
	}

	return &NetworkConfig{
		Name:         networkName,
		AddressSpace: obj.Get("network_address_space"),
		Purpose:      obj.Get("network_purpose"),
		Gateway:      obj.Get("network_gateway"),
		Nameservers:  splitList(obj.Get("network_nameservers")),
		DDIProvider:  obj.Get("network_ddi_provider"),
	}, nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ';' || r == ' '
	})
}
