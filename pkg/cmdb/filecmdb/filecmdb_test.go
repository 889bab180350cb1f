package filecmdb

import (
	"context"
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spectrocloud/ddi-ipam-automation/pkg/cmdb"
)

const testDocument = `
lans:
- name: dvs_prod1
  tags:
  - /managed/network_address_space/prod1
classifications:
- category: network_address_space
  name: prod1
  description: 10.1.2.0/24
configurations:
  Infrastructure/Network/Configuration/prod1:
    network_address_space: 10.1.2.0/24
    network_gateway: 10.1.2.1
  Integration/Infoblox/Configuration/default:
    server: ipam.example.org
    verify_ssl: true
    retries: 3
`

func loadTestStore(t *testing.T) *Store {
	path := filepath.Join(t.TempDir(), "cmdb.yaml")
	require.NoError(t, ioutil.WriteFile(path, []byte(testDocument), 0o600))
	s, err := Load(path, nil)
	require.NoError(t, err)
	return s
}

func TestFindLAN(t *testing.T) {
	s := loadTestStore(t)
	ctx := context.Background()

	lan, err := s.FindLAN(ctx, "dvs_prod1")
	require.NoError(t, err)
	assert.Equal(t, []string{"prod1"}, lan.TagValues("network_address_space"))

	_, err = s.FindLAN(ctx, "missing")
	assert.True(t, cmdb.IsNotFound(err))
}

func TestFindClassification(t *testing.T) {
	s := loadTestStore(t)
	ctx := context.Background()

	c, err := s.FindClassification(ctx, "network_address_space", "prod1")
	require.NoError(t, err)
	assert.Equal(t, "10.1.2.0/24", c.Description)

	_, err = s.FindClassification(ctx, "environment", "prod1")
	assert.True(t, cmdb.IsNotFound(err))
}

func TestInstantiate(t *testing.T) {
	s := loadTestStore(t)
	ctx := context.Background()

	obj, err := s.Instantiate(ctx, "Integration/Infoblox/Configuration/default")
	require.NoError(t, err)
	assert.Equal(t, "ipam.example.org", obj.Get("server"))
	assert.True(t, obj.Bool("verify_ssl"))
	assert.Equal(t, "3", obj.Get("retries"))

	_, err = s.Instantiate(ctx, "Infrastructure/Network/Configuration/missing")
	assert.True(t, cmdb.IsNotFound(err))
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.Error(t, err)
}
