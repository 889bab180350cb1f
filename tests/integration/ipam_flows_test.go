package integration

import (
	"net"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	ctrl "sigs.k8s.io/controller-runtime"

	"github.com/spectrocloud/ddi-ipam-automation/controllers"
	"github.com/spectrocloud/ddi-ipam-automation/pkg/automate"
	"github.com/spectrocloud/ddi-ipam-automation/pkg/ipam"
	"github.com/spectrocloud/ddi-ipam-automation/pkg/netconfig"
)

const hostname = "vm-integration-1.lab.example.com"

func logInfoLine(info string) {
	ctrl.Log.V(0).Info("########################################################", "info", info)
}

func ipamSettings() controllers.IpamSettings {
	return controllers.IpamSettings{ConfigStore: tm.ConfigStore()}
}

func acquireReconciler(policy controllers.NetworkNamePolicy) *controllers.AcquireIPReconciler {
	return &controllers.AcquireIPReconciler{
		IpamSettings: ipamSettings(),
		Log:          ctrl.Log.WithName("controllers").WithName("AcquireIP"),
		Strategies: []netconfig.Strategy{
			netconfig.NewConfigObjectStrategy(tm.GetCMDB()),
			netconfig.NewTagStrategy(tm.GetCMDB()),
		},
		NetworkNamePolicy: policy,
	}
}

func releaseReconciler() *controllers.ReleaseIPReconciler {
	return &controllers.ReleaseIPReconciler{
		IpamSettings: ipamSettings(),
		Log:          ctrl.Log.WithName("controllers").WithName("ReleaseIP"),
	}
}

func expectInNetwork(ip, cidr string) {
	_, network, err := net.ParseCIDR(cidr)
	Expect(err).NotTo(HaveOccurred())
	Expect(network.Contains(net.ParseIP(ip))).To(BeTrue(), "%s not in %s", ip, cidr)
}

var _ = Describe("IPAM lifecycle flows", func() {
	AfterEach(func() {
		tm.SetIpamServer(tm.WAPIServer())
	})

	Context("acquire and release", func() {
		It("should allocate, publish and release addresses for the VM", func() {
			logInfoLine("acquire two addresses")
			acquired := []string{}
			for i := 0; i < 2; i++ {
				ws := tm.NewInvocation()
				ip, err := acquireReconciler(controllers.ParameterFirst).Reconcile(ctx, ws)
				Expect(err).NotTo(HaveOccurred())
				Expect(ws.Failed()).To(BeFalse())
				expectInNetwork(ip, "10.1.2.0/28")
				Expect(ws.StateVars).To(HaveKeyWithValue(controllers.DefaultAcquireResultKey, ip))
				Expect(ws.Object).To(HaveKeyWithValue(controllers.DefaultAcquireResultKey, ip))
				acquired = append(acquired, ip)
			}
			Expect(acquired[0]).NotTo(Equal(acquired[1]))
			Expect(tm.Hosts(hostname)).To(HaveLen(2))

			logInfoLine("release every address of the VM")
			ws := tm.NewInvocation()
			released, err := releaseReconciler().Reconcile(ctx, ws)
			Expect(err).NotTo(HaveOccurred())
			Expect(ws.Failed()).To(BeFalse())
			Expect(released).To(ConsistOf(acquired))
			Expect(ws.StateVars).To(HaveKeyWithValue(controllers.ReleasedResultKey, acquired[1]))
			Expect(tm.Hosts(hostname)).To(BeEmpty())

			logInfoLine("release again finds nothing and succeeds")
			ws = tm.NewInvocation()
			released, err = releaseReconciler().Reconcile(ctx, ws)
			Expect(err).NotTo(HaveOccurred())
			Expect(ws.Failed()).To(BeFalse())
			Expect(released).To(BeEmpty())
		})

		It("should resolve the network through the options bag first", func() {
			ws := tm.NewInvocation()
			ws.Inputs = map[string]interface{}{"network_name": "VM Network"}

			ip, err := acquireReconciler(controllers.OptionsFirst).Reconcile(ctx, ws)
			Expect(err).NotTo(HaveOccurred())
			expectInNetwork(ip, "10.1.2.0/28")

			ws = tm.NewInvocation()
			ws.Inputs = map[string]interface{}{"network_name": "VM Network"}
			ip, err = acquireReconciler(controllers.ParameterFirst).Reconcile(ctx, ws)
			Expect(err).NotTo(HaveOccurred())
			expectInNetwork(ip, "192.168.10.0/24")

			_, err = releaseReconciler().Reconcile(ctx, tm.NewInvocation())
			Expect(err).NotTo(HaveOccurred())
			Expect(tm.Hosts(hostname)).To(BeEmpty())
		})

		It("should fail on a network without address space", func() {
			ws := tm.NewInvocation()
			ws.Submitted = map[string]interface{}{"network_name": "isolated"}
			requests := len(tm.GetWAPI().Requests())

			_, err := acquireReconciler(controllers.ParameterFirst).Reconcile(ctx, ws)
			Expect(netconfig.IsNotFound(err)).To(BeTrue())
			Expect(ws.Failed()).To(BeTrue())
			Expect(ws.Root).To(HaveKeyWithValue(automate.ResultAttribute, automate.ResultError))
			Expect(tm.GetWAPI().Requests()).To(HaveLen(requests))
		})
	})

	Context("unconfigured IPAM", func() {
		It("should halt both flows without calling the server", func() {
			tm.SetIpamServer(ipam.PlaceholderServer)
			requests := len(tm.GetWAPI().Requests())

			ws := tm.NewInvocation()
			_, err := acquireReconciler(controllers.ParameterFirst).Reconcile(ctx, ws)
			Expect(ipam.IsConfigurationMissing(err)).To(BeTrue())
			Expect(ws.Failed()).To(BeTrue())
			Expect(ws.Reason()).To(ContainSubstring("IPAM configuration must be defined"))

			ws = tm.NewInvocation()
			_, err = releaseReconciler().Reconcile(ctx, ws)
			Expect(ipam.IsConfigurationMissing(err)).To(BeTrue())
			Expect(ws.Failed()).To(BeTrue())

			Expect(tm.GetWAPI().Requests()).To(HaveLen(requests))
		})
	})

	Context("network dialog", func() {
		It("should offer the tagged destination networks", func() {
			ws := tm.NewDialogInvocation()
			values, err := (&controllers.NetworkDialogReconciler{
				CMDB: tm.GetCMDB(),
				Log:  ctrl.Log.WithName("controllers").WithName("NetworkDialog"),
			}).Reconcile(ctx, ws)
			Expect(err).NotTo(HaveOccurred())
			Expect(values).To(Equal(map[string]string{
				"dvs_prod1":  "dvs_prod1: 10.1.2.0/28",
				"VM Network": "VM Network: 192.168.10.0/24",
			}))
			Expect(ws.Object).To(HaveKeyWithValue("required", true))
		})
	})
})
