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
	"strconv"

	"github.com/go-logr/logr"
	"github.com/pkg/errors"

	"github.com/spectrocloud/ddi-ipam-automation/pkg/automate"
	"github.com/spectrocloud/ddi-ipam-automation/pkg/ipam"
	"github.com/spectrocloud/ddi-ipam-automation/pkg/metrics"
	"github.com/spectrocloud/ddi-ipam-automation/pkg/netconfig"
	pkgutil "github.com/spectrocloud/ddi-ipam-automation/pkg/util"
	"github.com/spectrocloud/ddi-ipam-automation/util"
)

const (
	// DefaultAcquireResultKey names the published address.
	DefaultAcquireResultKey = "acquired_ip_address"

	// Options read by the acquire flow besides the network name.
	EnableDNSOption = "configure_for_dns"
	AliasesOption   = "dns_aliases"
	CommentOption   = "ipam_comment"
	ViewOption      = "dns_view"
)

// AcquireIPReconciler creates a host record for the VM in the address
// space of the requested network and publishes the allocated address.
type AcquireIPReconciler struct {
	IpamSettings

	Log        logr.Logger
	Strategies []netconfig.Strategy

	NetworkNamePolicy NetworkNamePolicy
	NetworkNameKeys   []string

	// ResultKey defaults to DefaultAcquireResultKey.
	ResultKey string
}

// Reconcile runs the acquire flow once. A fatal error is published to the
// invocation and returned.
func (r *AcquireIPReconciler) Reconcile(ctx context.Context, inv automate.Invocation) (ip string, err error) {
	log := newInvocationLogger(r.Log, FlowAcquire)
	defer recoverFlow(inv, FlowAcquire, &err, log)

	m, err := loadConfigAndIpam(ctx, inv, r.IpamSettings, FlowAcquire, log)
	if err != nil {
		return "", err
	}

	vm, err := inv.CurrentVM(ctx)
	if err != nil {
		return "", fail(inv, FlowAcquire, OutcomeFailed, err, "Error creating IPAM host entry", log)
	}

	opts := inv.Options().With(inv.OptionsBag())
	networkName, source, _ := r.NetworkNamePolicy.NetworkName(opts, r.NetworkNameKeys...)
	log = log.WithValues("vm", vm.Name, "network", networkName)
	log.V(0).Info("acquire IP address", "networkNameSource", source, "policy", r.NetworkNamePolicy)

	resolver := netconfig.NewResolver(log, r.Strategies...)
	config, err := resolver.Resolve(ctx, networkName)
	if err != nil {
		outcome := OutcomeFailed
		if netconfig.IsNotFound(err) {
			outcome = OutcomeNetworkAbsent
		}
		return "", fail(inv, FlowAcquire, outcome, err, "Error creating IPAM host entry", log)
	}
	addressSpace, err := pkgutil.ValidateAddressSpace(config.AddressSpace)
	if err != nil {
		return "", fail(inv, FlowAcquire, OutcomeFailed, err, "Error creating IPAM host entry", log)
	}

	hostname := pkgutil.DetermineHostname(vm)
	if err := pkgutil.ValidateHostname(hostname); err != nil {
		log.V(0).Info("hostname may be rejected by the IPAM server", "hostname", hostname, "reason", err.Error())
	}

	ref, err := m.CreateHost(ctx, hostname, addressSpace, enableDNS(opts), createOptions(opts)...)
	if err != nil {
		return "", fail(inv, FlowAcquire, OutcomeFailed, err, "Error creating IPAM host entry", log)
	}

	record, err := m.GetHost(ctx, ref)
	if err != nil {
		return "", fail(inv, FlowAcquire, OutcomeFailed, err, "Error creating IPAM host entry", log)
	}
	log.V(1).Info("created host record", "record", record)

	ip = pkgutil.GetAddress(record)
	if ip == "" {
		err := errors.Errorf("host record %s has no IPv4 address", ref)
		return "", fail(inv, FlowAcquire, OutcomeFailed, err, "Failed to get IP from IPAM", log)
	}

	log.V(0).Info("acquired IP address", "hostname", hostname, "ip", ip, "addressSpace", addressSpace)
	util.PublishResult(inv, r.resultKey(), ip, log)
	metrics.ObserveFlow(FlowAcquire, OutcomeSuccess)
	return ip, nil
}

func (r *AcquireIPReconciler) resultKey() string {
	if r.ResultKey == "" {
		return DefaultAcquireResultKey
	}
	return r.ResultKey
}

// enableDNS defaults to true unless the option parses as false.
func enableDNS(opts *automate.Options) bool {
	v, _, ok := opts.Lookup(EnableDNSOption)
	if !ok {
		return true
	}
	b, err := strconv.ParseBool(v)
	return err != nil || b
}

func createOptions(opts *automate.Options) []ipam.CreateOption {
	o := []ipam.CreateOption{}
	if aliases := opts.Strings(AliasesOption); len(aliases) > 0 {
		o = append(o, ipam.WithAliases(aliases))
	}
	if comment := opts.Get(CommentOption); comment != "" {
		o = append(o, ipam.WithComment(comment))
	}
	if view := opts.Get(ViewOption); view != "" {
		o = append(o, ipam.WithView(view))
	}
	return o
}
