package automate

import (
	"context"
	"io/ioutil"

	"github.com/ghodss/yaml"
	"github.com/pkg/errors"
)

// Workspace is an in-memory Invocation. It is loaded from an invocation
// document and holds everything a flow published once it returns:
//
//	vm:
//	  name: vm1
//	  hostnames: [vm1.example.com]
//	inputs:
//	  network_name: dvs_prod1
//	submitted:
//	  vm_memory: "2048"
//	stateVars:
//	  ae_state_retries: 0
type Workspace struct {
	VM         *VM                    `json:"vm,omitempty"`
	Inputs     map[string]interface{} `json:"inputs,omitempty"`
	StepOutput map[string]interface{} `json:"stepOutput,omitempty"`
	Object     map[string]interface{} `json:"object,omitempty"`
	Root       map[string]interface{} `json:"root,omitempty"`
	StateVars  map[string]interface{} `json:"stateVars,omitempty"`

	// Submitted and Dialog are the request options merged into the options bag.
	Submitted map[string]interface{} `json:"submitted,omitempty"`
	Dialog    map[string]interface{} `json:"dialog,omitempty"`
}

var _ Invocation = &Workspace{}

// ParseWorkspace reads an invocation document.
func ParseWorkspace(data []byte) (*Workspace, error) {
	ws := &Workspace{}
	if err := yaml.Unmarshal(data, ws); err != nil {
		return nil, errors.Wrap(err, "failed to parse invocation")
	}
	return ws, nil
}

// LoadWorkspace reads the invocation document at path.
func LoadWorkspace(path string) (*Workspace, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read invocation %s", path)
	}
	return ParseWorkspace(data)
}

// Marshal renders the workspace as YAML.
func (w *Workspace) Marshal() ([]byte, error) {
	return yaml.Marshal(w)
}

func (w *Workspace) CurrentVM(ctx context.Context) (*VM, error) {
	if w.VM == nil || w.VM.Name == "" {
		return nil, errors.New("no vm in invocation")
	}
	return w.VM, nil
}

func (w *Workspace) Options() *Options {
	return NewOptions(
		NewSource(SourceInputs, w.Inputs),
		NewSource(SourceStepOutput, w.StepOutput),
		NewSource(SourceObject, w.Object),
		NewSource(SourceRoot, w.Root),
		NewSource(SourceStateVars, w.StateVars),
	)
}

func (w *Workspace) OptionsBag() Source {
	return Source{
		Name:   SourceOptions,
		Values: MergeOptions(w.Submitted, w.Dialog, w.Root),
	}
}

func (w *Workspace) SetObject(key string, value interface{}) {
	if w.Object == nil {
		w.Object = map[string]interface{}{}
	}
	w.Object[key] = value
}

func (w *Workspace) SetStateVar(key string, value interface{}) {
	if w.StateVars == nil {
		w.StateVars = map[string]interface{}{}
	}
	w.StateVars[key] = value
}

func (w *Workspace) SetRootError(reason string) {
	if w.Root == nil {
		w.Root = map[string]interface{}{}
	}
	w.Root[ResultAttribute] = ResultError
	w.Root[ReasonAttribute] = reason
}

// Failed reports whether the workflow was flagged as failed.
func (w *Workspace) Failed() bool {
	return stringify(w.Root[ResultAttribute]) == ResultError
}

// Reason returns the failure reason, if any.
func (w *Workspace) Reason() string {
	return stringify(w.Root[ReasonAttribute])
}
