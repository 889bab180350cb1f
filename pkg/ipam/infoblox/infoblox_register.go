package infoblox

import (
	"github.com/spectrocloud/ddi-ipam-automation/pkg/ipam"
	"github.com/spectrocloud/ddi-ipam-automation/pkg/ipam/factory"
)

func init() {
	factory.Register(ipam.IpamTypeInfoblox, NewIpam)
}
