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

	"github.com/go-logr/logr"
	"github.com/pkg/errors"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	"github.com/spectrocloud/ddi-ipam-automation/pkg/automate"
	"github.com/spectrocloud/ddi-ipam-automation/pkg/metrics"
	pkgutil "github.com/spectrocloud/ddi-ipam-automation/pkg/util"
	"github.com/spectrocloud/ddi-ipam-automation/util"
)

const (
	// ReleasedResultKey holds the address of the last deleted record.
	ReleasedResultKey = "released_ip_address"

	// ReleasedListResultKey holds the addresses of every deleted record.
	ReleasedListResultKey = "released_ip_addresses"
)

// ReleaseIPReconciler deletes every host record registered under the
// VM's hostname.
type ReleaseIPReconciler struct {
	IpamSettings

	Log logr.Logger
}

// Reconcile runs the release flow once and returns the released addresses.
// Failing deletes are logged and skipped, they never abort the flow.
func (r *ReleaseIPReconciler) Reconcile(ctx context.Context, inv automate.Invocation) (released []string, err error) {
	log := newInvocationLogger(r.Log, FlowRelease)
	defer recoverFlow(inv, FlowRelease, &err, log)

	m, err := loadConfigAndIpam(ctx, inv, r.IpamSettings, FlowRelease, log)
	if err != nil {
		return nil, err
	}

	vm, err := inv.CurrentVM(ctx)
	if err != nil {
		return nil, fail(inv, FlowRelease, OutcomeFailed, err, "Error deleting IPAM DNS entry", log)
	}

	hostname := pkgutil.DetermineHostname(vm)
	log = log.WithValues("vm", vm.Name, "hostname", hostname)
	log.V(0).Info("delete IPAM records for hostname")

	records, err := m.FindHosts(ctx, hostname)
	if err != nil {
		return nil, fail(inv, FlowRelease, OutcomeFailed, err, "Error deleting IPAM DNS entry", log)
	}
	if len(records) == 0 {
		log.V(0).Info("WARN: no IPAM host record to delete found, skipping")
		metrics.ObserveFlow(FlowRelease, OutcomeNoRecords)
		return []string{}, nil
	}

	released = []string{}
	warnings := []error{}
	for _, record := range records {
		if err := m.DeleteHost(ctx, record.Reference); err != nil {
			log.V(0).Info("WARN: failed to delete IPAM host record, skipping", "reference", record.Reference, "error", err.Error())
			warnings = append(warnings, errors.Wrapf(err, "record %s", record.Reference))
			continue
		}
		log.V(0).Info("deleted IPAM host record", "reference", record.Reference)

		ip := pkgutil.GetAddress(&record)
		if ip == "" {
			log.V(0).Info("deleted IPAM host record has no IPv4 address, nothing to publish", "reference", record.Reference, "name", record.Name)
			continue
		}
		released = append(released, ip)
		util.PublishResult(inv, ReleasedResultKey, ip, log)
	}
	util.PublishResult(inv, ReleasedListResultKey, released, log)

	if agg := utilerrors.NewAggregate(warnings); agg != nil {
		log.V(0).Info("WARN: released IP addresses with failures", "released", released, "failures", agg.Error())
		metrics.ObserveFlow(FlowRelease, OutcomePartial)
		return released, nil
	}
	metrics.ObserveFlow(FlowRelease, OutcomeSuccess)
	return released, nil
}
