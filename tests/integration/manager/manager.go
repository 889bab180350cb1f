package manager

import (
	"context"
	"strings"

	"github.com/go-logr/logr"
	. "github.com/onsi/gomega"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"

	"github.com/spectrocloud/ddi-ipam-automation/pkg/automate"
	"github.com/spectrocloud/ddi-ipam-automation/pkg/cmdb"
	"github.com/spectrocloud/ddi-ipam-automation/pkg/cmdb/filecmdb"
	"github.com/spectrocloud/ddi-ipam-automation/pkg/cmdb/kubecmdb"
	"github.com/spectrocloud/ddi-ipam-automation/pkg/ipam"
	"github.com/spectrocloud/ddi-ipam-automation/pkg/ipam/infoblox/infobloxtest"
	"github.com/spectrocloud/ddi-ipam-automation/tests/integration/testenv"
)

type TestManager interface {
	LoadTestEnv()
	InitEnvironment(input InitEnvironmentInput)
}

type Manager struct {
	*testenv.TestData
	env Env
}

type Env struct {
	wapi      *infobloxtest.TestServer
	client    client.Client
	cmdb      *filecmdb.Store
	namespace string
	log       logr.Logger
}

func (m *Manager) LoadTestEnv() {
	// init test data
	testData, err := testenv.GetTestData()
	Expect(err).NotTo(HaveOccurred())

	m.TestData = testData
}

type InitEnvironmentInput struct {
	Name string
	Log  logr.Logger
}

// InitEnvironment starts the WAPI fake and serves the IPAM configuration
// object from a ConfigMap pointing at it.
func (m *Manager) InitEnvironment(input InitEnvironmentInput) {
	wapi := infobloxtest.NewTestServer()

	s := runtime.NewScheme()
	err := clientgoscheme.AddToScheme(s)
	Expect(err).NotTo(HaveOccurred())

	cm := m.IpamConfigMap.DeepCopy()
	cm.Data["server"] = strings.TrimPrefix(wapi.URL, "https://")

	m.env = Env{
		wapi:      wapi,
		client:    fake.NewClientBuilder().WithScheme(s).WithObjects(cm).Build(),
		cmdb:      filecmdb.New(*m.CMDB, nil),
		namespace: cm.Namespace,
		log:       input.Log.WithName(input.Name),
	}
}

func (m *Manager) GetClient() client.Client {
	return m.env.client
}

func (m *Manager) GetWAPI() *infobloxtest.TestServer {
	return m.env.wapi
}

func (m *Manager) GetCMDB() *filecmdb.Store {
	return m.env.cmdb
}

// ConfigStore serves configuration objects from the ConfigMaps.
func (m *Manager) ConfigStore() cmdb.ConfigStore {
	return kubecmdb.New(m.env.client, m.env.namespace, nil, m.env.log)
}

// SetIpamServer changes the server of the IPAM configuration object.
func (m *Manager) SetIpamServer(server string) {
	cm := &corev1.ConfigMap{}
	key := client.ObjectKey{Namespace: m.IpamConfigMap.Namespace, Name: m.IpamConfigMap.Name}
	Expect(m.env.client.Get(context.Background(), key, cm)).To(Succeed())
	cm.Data["server"] = server
	Expect(m.env.client.Update(context.Background(), cm)).To(Succeed())
}

// WAPIServer returns the server name of the WAPI fake.
func (m *Manager) WAPIServer() string {
	return strings.TrimPrefix(m.env.wapi.URL, "https://")
}

// NewInvocation returns a fresh copy of the invocation test data.
func (m *Manager) NewInvocation() *automate.Workspace {
	return copyWorkspace(m.Invocation)
}

// NewDialogInvocation returns a fresh copy of the dialog invocation test data.
func (m *Manager) NewDialogInvocation() *automate.Workspace {
	return copyWorkspace(m.DialogWorkflow)
}

func copyWorkspace(ws *automate.Workspace) *automate.Workspace {
	data, err := ws.Marshal()
	Expect(err).NotTo(HaveOccurred())
	out, err := automate.ParseWorkspace(data)
	Expect(err).NotTo(HaveOccurred())
	return out
}

// Hosts returns the host records stored by the WAPI fake under name.
func (m *Manager) Hosts(name string) []ipam.HostRecord {
	return m.env.wapi.Hosts(name)
}

func (m *Manager) DestroyEnvironment() {
	if m.env.wapi != nil {
		m.env.wapi.Close()
	}
}

func NewTestManager() *Manager {
	env := Env{}
	return &Manager{
		env: env,
	}
}
