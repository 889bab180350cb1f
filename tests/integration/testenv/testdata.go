package testenv

import (
	"fmt"
	"io/ioutil"

	"github.com/ghodss/yaml"
	corev1 "k8s.io/api/core/v1"

	"github.com/spectrocloud/ddi-ipam-automation/pkg/automate"
	"github.com/spectrocloud/ddi-ipam-automation/pkg/cmdb/filecmdb"
)

type TestData struct {
	CMDB           *filecmdb.Document
	Invocation     *automate.Workspace
	IpamConfigMap  *corev1.ConfigMap
	DialogWorkflow *automate.Workspace
}

func GetTestData() (*TestData, error) {
	td := &TestData{
		CMDB:           &filecmdb.Document{},
		Invocation:     &automate.Workspace{},
		IpamConfigMap:  &corev1.ConfigMap{},
		DialogWorkflow: &automate.Workspace{},
	}
	all := map[string]interface{}{
		"cmdb.yaml":              td.CMDB,
		"invocation.yaml":        td.Invocation,
		"ipam_configmap.yaml":    td.IpamConfigMap,
		"dialog_invocation.yaml": td.DialogWorkflow,
	}

	for file, v := range all {
		data, err := ioutil.ReadFile("testenv/testdata/" + file)
		if err != nil {
			fmt.Println(err)
			return nil, err
		}
		if err = yaml.Unmarshal(data, v); err != nil {
			fmt.Println(err)
			return nil, err
		}
	}

	return td, nil
}
