package factory

import (
	"github.com/go-logr/logr"
	"github.com/pkg/errors"

	"github.com/spectrocloud/ddi-ipam-automation/pkg/ipam"
)

var IpamFactory = map[ipam.IpamType]ipam.NewIpamFunc{}

func Register(ipam ipam.IpamType, ipamfunc ipam.NewIpamFunc) {
	IpamFactory[ipam] = ipamfunc
}

// New builds the IPAM backend selected by cfg.Type.
func New(cfg ipam.Config, log logr.Logger) (ipam.IPAddressManager, error) {
	newIpamFunc, ok := IpamFactory[cfg.IpamTypeOrDefault()]
	if !ok {
		return nil, errors.Errorf("ipam type %q not supported", cfg.IpamTypeOrDefault())
	}
	return newIpamFunc(cfg, log)
}
