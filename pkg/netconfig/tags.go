package netconfig

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/spectrocloud/ddi-ipam-automation/pkg/cmdb"
)

// AddressSpaceCategory is the tag category linking a LAN to its CIDR.
const AddressSpaceCategory = "network_address_space"

// TagStrategy finds the LAN in the CMDB, reads its address space tag and
// takes the description of the matching classification as CIDR.
type TagStrategy struct {
	CMDB     cmdb.CMDB
	Category string
}

func NewTagStrategy(db cmdb.CMDB) *TagStrategy {
	return &TagStrategy{
		CMDB:     db,
		Category: AddressSpaceCategory,
	}
}

func (s *TagStrategy) Name() string {
	return "cmdb-tag"
}

func (s *TagStrategy) Lookup(ctx context.Context, networkName string) (*NetworkConfig, error) {
	lan, err := s.CMDB.FindLAN(ctx, networkName)
	if cmdb.IsNotFound(err) {
		return nil, notFound("no lan %s", networkName)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to find lan %s", networkName)
	}

	if !lan.HasTag(s.Category) {
		return nil, notFound("lan %s has no %s tag", networkName, s.Category)
	}
	values := lan.TagValues(s.Category)

	c, err := s.CMDB.FindClassification(ctx, s.Category, values[0])
	if cmdb.IsNotFound(err) {
		return nil, notFound("no classification %s/%s", s.Category, values[0])
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to find classification %s/%s", s.Category, values[0])
	}

	return &NetworkConfig{
		Name:         networkName,
		AddressSpace: strings.TrimSpace(c.Description),
	}, nil
}
