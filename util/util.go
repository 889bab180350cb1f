package util

import (
	"github.com/go-logr/logr"

	"github.com/spectrocloud/ddi-ipam-automation/pkg/automate"
)

// PublishResult writes value under key to both the step's object store
// and the state variables, downstream steps read either.
func PublishResult(pub automate.Publisher, key string, value interface{}, log logr.Logger) {
	pub.SetObject(key, value)
	pub.SetStateVar(key, value)
	log.V(0).Info("published result", "key", key, "value", value)
}

// FailWorkflow flags the workflow as failed, halting it.
func FailWorkflow(pub automate.Publisher, err error, msg string, log logr.Logger) {
	log.Error(err, msg)
	reason := msg
	if err != nil {
		reason = msg + ": " + err.Error()
	}
	pub.SetRootError(reason)
}
