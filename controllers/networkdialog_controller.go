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
	"strings"

	"github.com/ghodss/yaml"
	"github.com/go-logr/logr"

	"github.com/spectrocloud/ddi-ipam-automation/pkg/automate"
	"github.com/spectrocloud/ddi-ipam-automation/pkg/cmdb"
	"github.com/spectrocloud/ddi-ipam-automation/pkg/metrics"
	"github.com/spectrocloud/ddi-ipam-automation/pkg/netconfig"
)

const (
	TemplatesOption       = "dialog_templates"
	DestinationLANsOption = "destination_lans"

	// InvalidSelection marks a templates option that has not been resolved yet.
	InvalidSelection = "INVALID SELECTION"
)

// NetworkDialogReconciler populates a dialog drop down with the LANs a VM
// can be placed on, labeled with their address space.
type NetworkDialogReconciler struct {
	CMDB cmdb.CMDB
	Log  logr.Logger
}

// Reconcile publishes the dialog element and returns its values.
func (r *NetworkDialogReconciler) Reconcile(ctx context.Context, inv automate.Invocation) (values map[string]string, err error) {
	log := newInvocationLogger(r.Log, FlowDialog)
	defer recoverFlow(inv, FlowDialog, &err, log)

	values = map[string]string{}
	opts := inv.Options().With(inv.OptionsBag())

	templates := opts.Get(TemplatesOption)
	if strings.Contains(templates, InvalidSelection) {
		log.V(0).Info("templates not selected yet, no networks to offer")
	} else {
		lans := destinationLANs(templates, opts)
		log.V(1).Info("destination lans", "lans", lans)

		resolver := netconfig.NewResolver(log, netconfig.NewTagStrategy(r.CMDB))
		values, err = resolver.SelectableNetworks(ctx, lans)
		if err != nil {
			return nil, fail(inv, FlowDialog, OutcomeFailed, err, "Error listing destination networks", log)
		}
	}

	inv.SetObject("sort_by", "value")
	inv.SetObject("data_type", "string")
	inv.SetObject("required", true)
	inv.SetObject("values", values)
	metrics.ObserveFlow(FlowDialog, OutcomeSuccess)
	return values, nil
}

// destinationLANs reads the LANs from the first entry of the templates
// option, a YAML list of template descriptions, or else from the
// destination_lans option.
func destinationLANs(templates string, opts *automate.Options) []string {
	if templates != "" {
		entries := []map[string]interface{}{}
		if err := yaml.Unmarshal([]byte(templates), &entries); err == nil && len(entries) > 0 {
			src := automate.NewSource(TemplatesOption, entries[0])
			if lans := automate.NewOptions(src).Strings(DestinationLANsOption); len(lans) > 0 {
				return lans
			}
		}
	}
	return opts.Strings(DestinationLANsOption)
}
