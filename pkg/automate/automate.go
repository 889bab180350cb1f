// Package automate models one workflow method invocation: the VM it runs
// for, the option scopes it reads, and the state it publishes back.
package automate

import (
	"context"
	"fmt"
	"strings"

	"github.com/ghodss/yaml"
	"github.com/samber/lo"
)

// Option scopes in lookup order.
const (
	SourceInputs     = "inputs"
	SourceStepOutput = "step_output"
	SourceObject     = "object"
	SourceRoot       = "root"
	SourceStateVars  = "state_vars"

	// SourceOptions is the merged bag of submitted values, dialog values
	// and root attributes.
	SourceOptions = "options"
)

// Root attributes set on fatal failure.
const (
	ResultAttribute = "ae_result"
	ReasonAttribute = "ae_reason"
	ResultError     = "error"
)

// VM is the virtual machine a workflow runs for.
type VM struct {
	Name      string   `json:"name"`
	Hostnames []string `json:"hostnames,omitempty"`
}

type VMLookup interface {
	// returns the VM of the running workflow
	CurrentVM(ctx context.Context) (*VM, error)
}

// Publisher writes results back to the workflow.
type Publisher interface {
	// sets a value in the object store of the current step
	SetObject(key string, value interface{})

	// sets a state variable persisted across steps
	SetStateVar(key string, value interface{})

	// flags the workflow as failed with reason
	SetRootError(reason string)
}

// Invocation is everything a lifecycle flow consumes from the workflow engine.
type Invocation interface {
	VMLookup
	Publisher

	// Options returns the five option scopes in lookup order.
	Options() *Options

	// OptionsBag returns the merged options bag as a single source.
	OptionsBag() Source
}

// NormalizeKey maps the symbol form ":key" and the string form "key" to
// the same key.
func NormalizeKey(key string) string {
	return strings.TrimPrefix(strings.TrimSpace(key), ":")
}

// Source is one named scope of option values.
type Source struct {
	Name   string
	Values map[string]interface{}
}

// NewSource normalizes the keys of values. When both forms of a key are
// set, the symbol form wins unless its value is blank.
func NewSource(name string, values map[string]interface{}) Source {
	normalized := map[string]interface{}{}
	for k, v := range values {
		nk := NormalizeKey(k)
		if cur, exists := normalized[nk]; exists {
			symbol := strings.HasPrefix(strings.TrimSpace(k), ":")
			if stringify(v) == "" || (!symbol && stringify(cur) != "") {
				continue
			}
		}
		normalized[nk] = v
	}
	return Source{Name: name, Values: normalized}
}

// Get returns the value of key as a trimmed string, false when blank.
func (s Source) Get(key string) (string, bool) {
	v := stringify(s.Values[NormalizeKey(key)])
	return v, v != ""
}

// Options is an ordered list of option sources queried as one.
type Options struct {
	sources []Source
}

func NewOptions(sources ...Source) *Options {
	return &Options{sources: sources}
}

// Sources returns the sources in lookup order.
func (o *Options) Sources() []Source {
	return append([]Source{}, o.sources...)
}

// With returns options extended by src as the last source.
func (o *Options) With(src Source) *Options {
	return NewOptions(append(o.Sources(), src)...)
}

// Lookup returns the first non-blank value of key and the name of the
// source that held it.
func (o *Options) Lookup(key string) (value string, source string, ok bool) {
	for _, s := range o.sources {
		if v, ok := s.Get(key); ok {
			return v, s.Name, true
		}
	}
	return "", "", false
}

// Get returns the first non-blank value of key, or "".
func (o *Options) Get(key string) string {
	v, _, _ := o.Lookup(key)
	return v
}

// GetOrDefault returns the first non-blank value of key, or def.
func (o *Options) GetOrDefault(key, def string) string {
	if v, _, ok := o.Lookup(key); ok {
		return v
	}
	return def
}

// LookupIn tries every key in order against the named sources only. For
// each key all named sources are tried before the next key.
func (o *Options) LookupIn(sourceNames []string, keys ...string) (value string, source string, ok bool) {
	for _, key := range keys {
		for _, s := range o.sources {
			if !lo.Contains(sourceNames, s.Name) {
				continue
			}
			if v, ok := s.Get(key); ok {
				return v, s.Name, true
			}
		}
	}
	return "", "", false
}

// Strings returns the first non-blank value of key as a list. Lists,
// YAML flow or block sequences and comma separated strings are accepted.
func (o *Options) Strings(key string) []string {
	for _, s := range o.sources {
		raw, ok := s.Values[NormalizeKey(key)]
		if !ok || stringify(raw) == "" {
			continue
		}
		return toStrings(raw)
	}
	return nil
}

// MergeOptions merges the options bag. Submitted values take precedence
// over dialog values, dialog values over root attributes.
func MergeOptions(submitted, dialog, attributes map[string]interface{}) map[string]interface{} {
	return lo.Assign(
		NewSource(SourceRoot, attributes).Values,
		NewSource("dialog", dialog).Values,
		NewSource("submitted", submitted).Values,
	)
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

func toStrings(v interface{}) []string {
	var items []string
	switch t := v.(type) {
	case []string:
		items = t
	case []interface{}:
		items = lo.Map(t, func(item interface{}, _ int) string {
			return stringify(item)
		})
	default:
		s := stringify(t)
		list := []string{}
		if (strings.HasPrefix(s, "[") || strings.HasPrefix(s, "- ")) && yaml.Unmarshal([]byte(s), &list) == nil {
			items = list
		} else {
			items = strings.Split(s, ",")
		}
	}
	return lo.Compact(lo.Map(items, func(item string, _ int) string {
		return strings.TrimSpace(item)
	}))
}
