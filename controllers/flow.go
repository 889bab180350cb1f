/*


Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package controllers

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/spectrocloud/ddi-ipam-automation/pkg/automate"
	"github.com/spectrocloud/ddi-ipam-automation/pkg/cmdb"
	"github.com/spectrocloud/ddi-ipam-automation/pkg/ipam"
	"github.com/spectrocloud/ddi-ipam-automation/pkg/ipam/factory"
	"github.com/spectrocloud/ddi-ipam-automation/pkg/metrics"
	"github.com/spectrocloud/ddi-ipam-automation/util"

	_ "github.com/spectrocloud/ddi-ipam-automation/pkg/ipam/infoblox"
)

const (
	FlowAcquire = "acquire"
	FlowRelease = "release"
	FlowDialog  = "network_dialog"

	OutcomeSuccess       = "success"
	OutcomeFailed        = "failed"
	OutcomeNoRecords     = "no_records"
	OutcomePartial       = "partial"
	OutcomeUnconfigured  = "unconfigured"
	OutcomeNetworkAbsent = "network_not_found"
)

// NetworkNamePolicy decides whether explicit parameters or the options
// bag are consulted first for the network name.
type NetworkNamePolicy string

const (
	ParameterFirst NetworkNamePolicy = "parameter-first"
	OptionsFirst   NetworkNamePolicy = "options-first"
)

// DefaultNetworkNameKeys are tried in order within each scope.
var DefaultNetworkNameKeys = []string{"network_name", "dialog_network_name"}

var parameterSources = []string{
	automate.SourceInputs,
	automate.SourceStepOutput,
	automate.SourceObject,
	automate.SourceRoot,
}

// ParseNetworkNamePolicy accepts "" as ParameterFirst.
func ParseNetworkNamePolicy(s string) (NetworkNamePolicy, error) {
	switch p := NetworkNamePolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return ParameterFirst, nil
	case ParameterFirst, OptionsFirst:
		return p, nil
	default:
		return "", errors.Errorf("unknown network name policy %q, expected %s or %s", s, ParameterFirst, OptionsFirst)
	}
}

// ParseNetworkNameKeys normalizes keys and drops blank ones. It returns
// nil when nothing remains so that DefaultNetworkNameKeys apply.
func ParseNetworkNameKeys(keys []string) []string {
	parsed := lo.Uniq(lo.Compact(lo.Map(keys, func(k string, _ int) string {
		return automate.NormalizeKey(k)
	})))
	if len(parsed) == 0 {
		return nil
	}
	return parsed
}

// NetworkName finds the network name in opts, which must include the
// options bag. State variables are always consulted last.
func (p NetworkNamePolicy) NetworkName(opts *automate.Options, keys ...string) (name string, source string, ok bool) {
	if len(keys) == 0 {
		keys = DefaultNetworkNameKeys
	}

	groups := [][]string{parameterSources, {automate.SourceOptions}}
	if p == OptionsFirst {
		groups = [][]string{{automate.SourceOptions}, parameterSources}
	}
	groups = append(groups, []string{automate.SourceStateVars})

	for _, g := range groups {
		if name, source, ok := opts.LookupIn(g, keys...); ok {
			return name, source, true
		}
	}
	return "", "", false
}

func newInvocationLogger(log logr.Logger, flow string) logr.Logger {
	return log.WithValues("flow", flow, "invocation", uuid.New().String())
}

func newIpam(fn ipam.NewIpamFunc, cfg ipam.Config, log logr.Logger) (ipam.IPAddressManager, error) {
	if fn != nil {
		return fn(cfg, log)
	}
	return factory.New(cfg, log)
}

// recoverFlow turns a panic of a flow into a fatal workflow error.
func recoverFlow(inv automate.Invocation, flow string, errp *error, log logr.Logger) {
	r := recover()
	if r == nil {
		return
	}
	err := errors.Errorf("unexpected failure: %v", r)
	log.Error(err, "flow panicked", "stack", string(debug.Stack()))
	util.FailWorkflow(inv, err, fmt.Sprintf("Error running %s flow", flow), log)
	metrics.ObserveFlow(flow, OutcomeFailed)
	*errp = err
}

// fail publishes a fatal error and returns it.
func fail(inv automate.Invocation, flow, outcome string, err error, msg string, log logr.Logger) error {
	util.FailWorkflow(inv, err, msg, log)
	metrics.ObserveFlow(flow, outcome)
	return errors.Wrap(err, msg)
}

func loadConfigAndIpam(ctx context.Context, inv automate.Invocation, s IpamSettings, flow string, log logr.Logger) (ipam.IPAddressManager, error) {
	cfg, err := LoadIpamConfig(ctx, s.ConfigStore, s.ConfigPath, s.Overrides)
	if err != nil {
		if ipam.IsConfigurationMissing(err) {
			return nil, fail(inv, flow, OutcomeUnconfigured, err, "IPAM configuration must be defined", log)
		}
		return nil, fail(inv, flow, OutcomeFailed, err, "Failed to load IPAM configuration", log)
	}

	m, err := newIpam(s.NewIpam, cfg, log)
	if err != nil {
		if ipam.IsConfigurationMissing(err) {
			return nil, fail(inv, flow, OutcomeUnconfigured, err, "IPAM configuration must be defined", log)
		}
		return nil, fail(inv, flow, OutcomeFailed, err, "Failed to create IPAM client", log)
	}
	return m, nil
}

// IpamSettings locate the IPAM server configuration.
type IpamSettings struct {
	ConfigStore cmdb.ConfigStore
	ConfigPath  string
	Overrides   ConfigOverrides

	// NewIpam builds the client, the factory is used if unset.
	NewIpam ipam.NewIpamFunc
}
