package netconfig

import (
	"context"
	"testing"

	"github.com/go-logr/logr"
	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spectrocloud/ddi-ipam-automation/pkg/cmdb"
	"github.com/spectrocloud/ddi-ipam-automation/pkg/cmdb/filecmdb"
)

func configPath(name string) string {
	return NetworkConfigurationPath + "/" + name
}

func testStore() *filecmdb.Store {
	return filecmdb.New(filecmdb.Document{
		LANs: []cmdb.LAN{
			{Name: "VM Network", Tags: []string{"/managed/network_address_space/lab"}},
			{Name: "untagged"},
			{Name: "dangling", Tags: []string{"/managed/network_address_space/gone"}},
			{Name: "prod1", Tags: []string{"/managed/network_address_space/prod1_tag"}},
			{Name: "padded", Tags: []string{"/managed/network_address_space/padded"}},
		},
		Classifications: []cmdb.Classification{
			{Category: "network_address_space", Name: "lab", Description: "192.168.10.0/24"},
			{Category: "network_address_space", Name: "prod1_tag", Description: "172.16.0.0/16"},
			{Category: "network_address_space", Name: "padded", Description: " 10.5.0.0/24\n"},
		},
		Configurations: map[string]map[string]interface{}{
			configPath("prod1"): {
				"network_address_space": "10.1.2.0/24",
				"network_purpose":       "production",
				"network_gateway":       "10.1.2.1",
				"network_nameservers":   "10.1.0.53, 10.1.1.53",
				"network_ddi_provider":  "infoblox",
			},
			configPath("dvs_prod1"): {
				"network_address_space": "  ",
				"network_gateway":       "10.1.2.254",
			},
			configPath("dvs_prod2"): {
				"network_address_space": "10.2.0.0/24",
			},
			configPath("prod2"): {
				"network_address_space": "10.99.0.0/24",
			},
			configPath("prod3"): {
				"network_address_space": "10.3.0.0/24",
			},
			configPath("VM_Network"): {
				"network_purpose": "lab",
			},
		},
	}, nil)
}

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"prod1", "prod1"},
		{"VM Network", "VM_Network"},
		{"dvs_prod.net-1", "dvs_prod.net-1"},
		{"a/b:c (d)", "a_b_c__d_"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeName(tt.in), tt.in)
	}
}

func TestConfigObjectStrategy(t *testing.T) {
	s := NewConfigObjectStrategy(testStore())
	ctx := context.Background()

	tests := []struct {
		name    string
		network string
		want    *NetworkConfig
	}{
		{
			name:    "direct lookup",
			network: "prod1",
			want: &NetworkConfig{
				Name:         "prod1",
				AddressSpace: "10.1.2.0/24",
				Purpose:      "production",
				Gateway:      "10.1.2.1",
				Nameservers:  []string{"10.1.0.53", "10.1.1.53"},
				DDIProvider:  "infoblox",
			},
		},
		{
			name:    "blank address space falls back to the name without dvs_",
			network: "dvs_prod1",
			want: &NetworkConfig{
				Name:         "dvs_prod1",
				AddressSpace: "10.1.2.0/24",
				Purpose:      "production",
				Gateway:      "10.1.2.1",
				Nameservers:  []string{"10.1.0.53", "10.1.1.53"},
				DDIProvider:  "infoblox",
			},
		},
		{
			name:    "own address space is kept",
			network: "dvs_prod2",
			want: &NetworkConfig{
				Name:         "dvs_prod2",
				AddressSpace: "10.2.0.0/24",
			},
		},
		{
			name:    "missing dvs_ object falls back too",
			network: "dvs_prod3",
			want: &NetworkConfig{
				Name:         "dvs_prod3",
				AddressSpace: "10.3.0.0/24",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Lookup(ctx, tt.network)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Lookup() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestConfigObjectStrategyNotFound(t *testing.T) {
	s := NewConfigObjectStrategy(testStore())
	ctx := context.Background()

	for _, network := range []string{"missing", "VM Network", "dvs_missing"} {
		_, err := s.Lookup(ctx, network)
		assert.True(t, IsNotFound(err), "%s: %v", network, err)
	}
}

func TestConfigObjectStrategyMatchesInstantiate(t *testing.T) {
	store := testStore()
	s := NewConfigObjectStrategy(store)
	ctx := context.Background()

	for _, network := range []string{"prod1", "dvs_prod2", "prod3"} {
		obj, err := store.Instantiate(ctx, configPath(network))
		require.NoError(t, err)
		got, err := s.Lookup(ctx, network)
		require.NoError(t, err)
		assert.Equal(t, obj.Get("network_address_space"), got.AddressSpace)
	}
}

func TestTagStrategy(t *testing.T) {
	s := NewTagStrategy(testStore())
	ctx := context.Background()

	got, err := s.Lookup(ctx, "VM Network")
	require.NoError(t, err)
	assert.Equal(t, &NetworkConfig{Name: "VM Network", AddressSpace: "192.168.10.0/24"}, got)

	// classification descriptions are free text
	got, err = s.Lookup(ctx, "padded")
	require.NoError(t, err)
	assert.Equal(t, "10.5.0.0/24", got.AddressSpace)

	for _, network := range []string{"missing", "untagged", "dangling"} {
		_, err := s.Lookup(ctx, network)
		assert.True(t, IsNotFound(err), "%s: %v", network, err)
	}
}

func TestResolverPrecedence(t *testing.T) {
	store := testStore()
	r := NewResolver(logr.Discard(), NewConfigObjectStrategy(store), NewTagStrategy(store))
	ctx := context.Background()

	// both strategies know prod1, the configuration object wins
	config, err := r.Resolve(ctx, "prod1")
	require.NoError(t, err)
	assert.Equal(t, "10.1.2.0/24", config.AddressSpace)

	// the configuration object has no address space, the tag answers
	config, err = r.Resolve(ctx, "VM Network")
	require.NoError(t, err)
	assert.Equal(t, "192.168.10.0/24", config.AddressSpace)

	_, err = r.Resolve(ctx, "untagged")
	assert.True(t, IsNotFound(err))

	_, err = r.Resolve(ctx, "")
	assert.True(t, IsNotFound(err))
}

type countingStore struct {
	cmdb.ConfigStore
	calls map[string]int
	err   error
}

func (s *countingStore) Instantiate(ctx context.Context, path string) (*cmdb.ConfigObject, error) {
	s.calls[path]++
	if s.err != nil {
		return nil, s.err
	}
	return s.ConfigStore.Instantiate(ctx, path)
}

func TestResolverMemoizes(t *testing.T) {
	store := &countingStore{ConfigStore: testStore(), calls: map[string]int{}}
	r := NewResolver(logr.Discard(), NewConfigObjectStrategy(store))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		config, err := r.Resolve(ctx, "prod1")
		require.NoError(t, err)
		assert.Equal(t, "10.1.2.0/24", config.AddressSpace)

		_, err = r.Resolve(ctx, "missing")
		assert.True(t, IsNotFound(err))
	}
	assert.Equal(t, 1, store.calls[configPath("prod1")])
	assert.Equal(t, 1, store.calls[configPath("missing")])

	// a new invocation starts empty
	r = NewResolver(logr.Discard(), NewConfigObjectStrategy(store))
	_, err := r.Resolve(ctx, "prod1")
	require.NoError(t, err)
	assert.Equal(t, 2, store.calls[configPath("prod1")])
}

func TestResolverStoreFailure(t *testing.T) {
	store := &countingStore{ConfigStore: testStore(), calls: map[string]int{}, err: errors.New("connection refused")}
	r := NewResolver(logr.Discard(), NewConfigObjectStrategy(store), NewTagStrategy(testStore()))

	_, err := r.Resolve(context.Background(), "VM Network")
	require.Error(t, err)
	assert.False(t, IsNotFound(err))
	assert.Contains(t, err.Error(), "connection refused")
}

func TestSelectableNetworks(t *testing.T) {
	r := NewResolver(logr.Discard(), NewTagStrategy(testStore()))

	values, err := r.SelectableNetworks(context.Background(), []string{"VM Network", " prod1 ", "untagged", "", "missing"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"VM Network": "VM Network: 192.168.10.0/24",
		"prod1":      "prod1: 172.16.0.0/16",
	}, values)
}
