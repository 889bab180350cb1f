// Package netconfig resolves a network name to its address space and
// related attributes.
//
// Two strategies exist because lifecycle methods adopted different
// conventions: a configuration object per network, and a CMDB tag on the
// LAN pointing at a classification whose description is the CIDR. They
// are kept as separate strategies tried in order, configuration object
// first.
package netconfig

import (
	"context"
	"strings"

	"github.com/go-logr/logr"
	"github.com/pkg/errors"
)

// ErrNetworkConfigNotFound means no strategy yielded an address space.
var ErrNetworkConfigNotFound = errors.New("network configuration not found")

// IsNotFound checks if an error is a ErrNetworkConfigNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNetworkConfigNotFound)
}

func notFound(format string, args ...interface{}) error {
	return errors.Wrapf(ErrNetworkConfigNotFound, format, args...)
}

// NetworkConfig describes a network.
type NetworkConfig struct {
	Name         string   `json:"name"`
	AddressSpace string   `json:"addressSpace"`
	Purpose      string   `json:"purpose,omitempty"`
	Gateway      string   `json:"gateway,omitempty"`
	Nameservers  []string `json:"nameservers,omitempty"`
	DDIProvider  string   `json:"ddiProvider,omitempty"`
}

// Strategy is one source of network configurations.
type Strategy interface {
	// Name identifies the strategy in logs.
	Name() string

	// Lookup returns the configuration of the network, or an error
	// satisfying IsNotFound if the strategy has no address space for it.
	Lookup(ctx context.Context, networkName string) (*NetworkConfig, error)
}

type outcome struct {
	config *NetworkConfig
	err    error
}

// Resolver tries its strategies in order and remembers every outcome,
// successful or not, for its lifetime. A Resolver belongs to a single
// workflow invocation and must not be shared.
type Resolver struct {
	strategies []Strategy
	memo       map[string]outcome
	log        logr.Logger
}

func NewResolver(log logr.Logger, strategies ...Strategy) *Resolver {
	return &Resolver{
		strategies: strategies,
		memo:       map[string]outcome{},
		log:        log,
	}
}

// Resolve returns the configuration of networkName from the first strategy
// with a non-blank address space.
func (r *Resolver) Resolve(ctx context.Context, networkName string) (*NetworkConfig, error) {
	if o, ok := r.memo[networkName]; ok {
		return o.config, o.err
	}

	config, err := r.resolve(ctx, networkName)
	r.memo[networkName] = outcome{config: config, err: err}
	return config, err
}

func (r *Resolver) resolve(ctx context.Context, networkName string) (*NetworkConfig, error) {
	if strings.TrimSpace(networkName) == "" {
		return nil, notFound("no network name given")
	}

	for _, s := range r.strategies {
		log := r.log.WithValues("network", networkName, "strategy", s.Name())
		config, err := s.Lookup(ctx, networkName)
		if err != nil {
			if IsNotFound(err) {
				log.V(0).Info("no network configuration from strategy", "reason", err.Error())
				continue
			}
			return nil, errors.Wrapf(err, "failed to look up network %s with %s", networkName, s.Name())
		}
		if config == nil || strings.TrimSpace(config.AddressSpace) == "" {
			log.V(0).Info("network configuration has a blank address space")
			continue
		}
		log.V(1).Info("resolved network configuration", "config", config)
		return config, nil
	}

	return nil, notFound("no address space for network %s", networkName)
}
