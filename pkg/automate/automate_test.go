package automate

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testInvocation = `
vm:
  name: vm1
  hostnames:
  - vm1.example.com
inputs:
  network_name: ""
  ":result_key": infoblox_ip
stepOutput:
  dialog_network_name: from-step
object:
  enable_dns: false
root:
  dialog_network_name: from-root
  dialog_templates: rhel8
  vm_memory: 1024
stateVars:
  network_name: from-state
submitted:
  network_name: submitted
dialog:
  network_name: dialog
  dialog_templates: rhel9
`

func TestParseWorkspace(t *testing.T) {
	ws, err := ParseWorkspace([]byte(testInvocation))
	require.NoError(t, err)

	vm, err := ws.CurrentVM(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &VM{Name: "vm1", Hostnames: []string{"vm1.example.com"}}, vm)

	_, err = (&Workspace{}).CurrentVM(context.Background())
	assert.Error(t, err)
}

func TestOptionsLookupOrder(t *testing.T) {
	ws, err := ParseWorkspace([]byte(testInvocation))
	require.NoError(t, err)
	opts := ws.Options()

	tests := []struct {
		key    string
		value  string
		source string
	}{
		// blank inputs fall through to the next scope
		{key: "network_name", value: "from-state", source: SourceStateVars},
		{key: "dialog_network_name", value: "from-step", source: SourceStepOutput},
		{key: ":result_key", value: "infoblox_ip", source: SourceInputs},
		{key: "result_key", value: "infoblox_ip", source: SourceInputs},
		{key: "enable_dns", value: "false", source: SourceObject},
		{key: "vm_memory", value: "1024", source: SourceRoot},
	}
	for _, tt := range tests {
		value, source, ok := opts.Lookup(tt.key)
		require.True(t, ok, tt.key)
		assert.Equal(t, tt.value, value, tt.key)
		assert.Equal(t, tt.source, source, tt.key)
	}

	_, _, ok := opts.Lookup("missing")
	assert.False(t, ok)
	assert.Equal(t, "def", opts.GetOrDefault("missing", "def"))
}

func TestLookupIn(t *testing.T) {
	ws, err := ParseWorkspace([]byte(testInvocation))
	require.NoError(t, err)
	opts := ws.Options().With(ws.OptionsBag())

	// keys before sources
	value, source, ok := opts.LookupIn([]string{SourceStepOutput, SourceRoot, SourceOptions}, "network_name", "dialog_network_name")
	require.True(t, ok)
	assert.Equal(t, "submitted", value)
	assert.Equal(t, SourceOptions, source)

	value, source, ok = opts.LookupIn([]string{SourceStepOutput, SourceRoot}, "network_name", "dialog_network_name")
	require.True(t, ok)
	assert.Equal(t, "from-step", value)
	assert.Equal(t, SourceStepOutput, source)

	_, _, ok = opts.LookupIn([]string{SourceInputs}, "network_name")
	assert.False(t, ok)
}

func TestMergeOptions(t *testing.T) {
	got := MergeOptions(
		map[string]interface{}{":network_name": "submitted"},
		map[string]interface{}{"network_name": "dialog", "dialog_templates": "rhel9"},
		map[string]interface{}{"dialog_templates": "rhel8", "vm_memory": 1024},
	)
	want := map[string]interface{}{
		"network_name":     "submitted",
		"dialog_templates": "rhel9",
		"vm_memory":        1024,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("MergeOptions() mismatch (-want +got):\n%s", diff)
	}
}

func TestNewSourceKeyForms(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]interface{}
		want   string
	}{
		{name: "symbol wins", values: map[string]interface{}{":k": "symbol", "k": "string"}, want: "symbol"},
		{name: "blank symbol", values: map[string]interface{}{":k": "", "k": "string"}, want: "string"},
		{name: "string only", values: map[string]interface{}{"k": "string"}, want: "string"},
		{name: "nil symbol", values: map[string]interface{}{":k": nil, "k": "string"}, want: "string"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, _ := NewSource("s", tt.values).Get("k")
			assert.Equal(t, tt.want, v)
		})
	}
}

func TestStrings(t *testing.T) {
	tests := []struct {
		name  string
		value interface{}
		want  []string
	}{
		{name: "comma separated", value: "lan1, lan2,,lan3", want: []string{"lan1", "lan2", "lan3"}},
		{name: "flow sequence", value: "[lan1, lan2]", want: []string{"lan1", "lan2"}},
		{name: "block sequence", value: "- lan1\n- lan2\n", want: []string{"lan1", "lan2"}},
		{name: "list", value: []interface{}{"lan1", " lan2 "}, want: []string{"lan1", "lan2"}},
		{name: "single", value: "VM Network", want: []string{"VM Network"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := NewOptions(NewSource(SourceInputs, map[string]interface{}{"destination_lans": tt.value}))
			assert.Equal(t, tt.want, opts.Strings("destination_lans"))
		})
	}
	assert.Nil(t, NewOptions().Strings("destination_lans"))
}

func TestPublish(t *testing.T) {
	ws := &Workspace{}
	ws.SetObject("acquired_ip_address", "10.1.2.1")
	ws.SetStateVar("acquired_ip_address", "10.1.2.1")
	assert.False(t, ws.Failed())

	ws.SetRootError("IPAM configuration must be defined")
	assert.True(t, ws.Failed())
	assert.Equal(t, "IPAM configuration must be defined", ws.Reason())

	data, err := ws.Marshal()
	require.NoError(t, err)
	back, err := ParseWorkspace(data)
	require.NoError(t, err)
	assert.Equal(t, "10.1.2.1", back.StateVars["acquired_ip_address"])
	assert.Equal(t, ResultError, back.Root[ResultAttribute])
}
