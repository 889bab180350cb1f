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

package main

import (
	"context"
	goflag "flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-logr/logr"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"k8s.io/apimachinery/pkg/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	"k8s.io/klog/v2"
	"k8s.io/klog/v2/klogr"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/spectrocloud/ddi-ipam-automation/controllers"
	"github.com/spectrocloud/ddi-ipam-automation/pkg/automate"
	"github.com/spectrocloud/ddi-ipam-automation/pkg/cmdb"
	"github.com/spectrocloud/ddi-ipam-automation/pkg/cmdb/filecmdb"
	"github.com/spectrocloud/ddi-ipam-automation/pkg/cmdb/kubecmdb"
	"github.com/spectrocloud/ddi-ipam-automation/pkg/cmdb/sqlcmdb"
	"github.com/spectrocloud/ddi-ipam-automation/pkg/metrics"
	"github.com/spectrocloud/ddi-ipam-automation/pkg/netconfig"
)

var (
	scheme   = runtime.NewScheme()
	setupLog = ctrl.Log.WithName("setup")
	cfgFile  string
)

func init() {
	_ = clientgoscheme.AddToScheme(scheme)
}

var rootCmd = &cobra.Command{
	Use:           "ddi-ipam",
	Short:         "acquire and release IPAM host records for VM lifecycle workflows",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		ctrl.SetLogger(klogr.New())
		return initConfig()
	},
}

var acquireCmd = &cobra.Command{
	Use:   "acquire",
	Short: "create a host record for the VM and publish the allocated address",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runFlow(cmd.Context(), func(ctx context.Context, b *backends, ws *automate.Workspace) error {
			policy, err := controllers.ParseNetworkNamePolicy(viper.GetString("network-name-policy"))
			if err != nil {
				return err
			}
			strategies := []netconfig.Strategy{netconfig.NewConfigObjectStrategy(b.configStore)}
			if b.cmdb != nil {
				strategies = append(strategies, netconfig.NewTagStrategy(b.cmdb))
			}
			_, err = (&controllers.AcquireIPReconciler{
				IpamSettings:      ipamSettings(b),
				Log:               ctrl.Log.WithName("controllers").WithName("AcquireIP"),
				Strategies:        strategies,
				NetworkNamePolicy: policy,
				NetworkNameKeys:   controllers.ParseNetworkNameKeys(viper.GetStringSlice("network-name-keys")),
				ResultKey:         viper.GetString("result-key"),
			}).Reconcile(ctx, ws)
			return err
		})
	},
}

var releaseCmd = &cobra.Command{
	Use:   "release",
	Short: "delete every host record of the VM",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runFlow(cmd.Context(), func(ctx context.Context, b *backends, ws *automate.Workspace) error {
			_, err := (&controllers.ReleaseIPReconciler{
				IpamSettings: ipamSettings(b),
				Log:          ctrl.Log.WithName("controllers").WithName("ReleaseIP"),
			}).Reconcile(ctx, ws)
			return err
		})
	},
}

var networksCmd = &cobra.Command{
	Use:   "networks",
	Short: "populate the destination network dialog element",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runFlow(cmd.Context(), func(ctx context.Context, b *backends, ws *automate.Workspace) error {
			if b.cmdb == nil {
				return errors.New("the network dialog needs a file or postgres cmdb")
			}
			_, err := (&controllers.NetworkDialogReconciler{
				CMDB: b.cmdb,
				Log:  ctrl.Log.WithName("controllers").WithName("NetworkDialog"),
			}).Reconcile(ctx, ws)
			return err
		})
	},
}

var encryptCmd = &cobra.Command{
	Use:   "encrypt VALUE",
	Short: "seal a value for a configuration object attribute",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := cmdb.LoadSecretboxKey(viper.GetString("secret-key-file"))
		if err != nil {
			return err
		}
		sealed, err := key.Encrypt(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), sealed)
		return nil
	},
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		setupLog.Error(err, "failed executing command")
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	addKlogFlags(flags)
	flags.StringVarP(&cfgFile, "config", "c", "", "alternative path to config file")
	flags.String("invocation", "invocation.yaml", "the invocation document holding the vm, options and state of the workflow")

	flags.String("cmdb", "file", "the cmdb backend serving lans, classifications and configuration objects (file or postgres)")
	flags.String("cmdb-file", "cmdb.yaml", "the cmdb document used by the file backend")
	flags.String("db-dsn", "", "the postgres connection string used by the postgres backend")
	flags.String("config-store", "", "serve configuration objects from another backend (kubernetes), defaults to the cmdb")
	flags.String("kube-namespace", "default", "the namespace of configuration object ConfigMaps")
	flags.String("secret-key-file", "", "hex encoded key file opening v2: encrypted attributes")
	flags.String("ipam-config-path", controllers.IpamConfigurationPath, "the configuration object holding the IPAM server settings")

	flags.String("ipam-server", "", "override the IPAM server")
	flags.String("ipam-api-version", "", "override the WAPI version")
	flags.String("ipam-username", "", "override the IPAM username")
	flags.String("ipam-password", "", "override the IPAM password")
	flags.Bool("verify-ssl", false, "verify the TLS certificate of the IPAM server, overrides verify_ssl of the configuration object when set")

	flags.String("network-name-policy", string(controllers.ParameterFirst), "where the network name is looked up first (parameter-first or options-first)")
	flags.StringSlice("network-name-keys", controllers.DefaultNetworkNameKeys, "the option keys holding the network name, tried in order (e.g. dialog_subnet)")
	flags.String("result-key", controllers.DefaultAcquireResultKey, "the key the acquired address is published under")
	flags.String("metrics-textfile", "", "write the run's metrics to this node exporter textfile")

	_ = viper.BindPFlags(flags)
	rootCmd.AddCommand(acquireCmd, releaseCmd, networksCmd, encryptCmd)
}

func addKlogFlags(flags *pflag.FlagSet) {
	fs := goflag.NewFlagSet("klog", goflag.ExitOnError)
	klog.InitFlags(fs)
	flags.AddGoFlagSet(fs)
}

func initConfig() error {
	viper.SetEnvPrefix("DDI_IPAM")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			return errors.Wrapf(err, "config file %s set explicitly, but unreadable", cfgFile)
		}
		setupLog.Info("read config file", "config-file", viper.ConfigFileUsed())
	}
	return nil
}

type backends struct {
	cmdb        cmdb.CMDB
	configStore cmdb.ConfigStore
	close       func() error
}

func openBackends(ctx context.Context, log logr.Logger) (*backends, error) {
	var dec cmdb.Decrypter
	if path := viper.GetString("secret-key-file"); path != "" {
		key, err := cmdb.LoadSecretboxKey(path)
		if err != nil {
			return nil, err
		}
		dec = key
	}

	b := &backends{close: func() error { return nil }}
	switch viper.GetString("cmdb") {
	case "file":
		store, err := filecmdb.Load(viper.GetString("cmdb-file"), dec)
		if err != nil {
			return nil, err
		}
		b.cmdb, b.configStore = store, store
	case "postgres":
		store, err := sqlcmdb.Open(ctx, viper.GetString("db-dsn"), dec)
		if err != nil {
			return nil, err
		}
		b.cmdb, b.configStore, b.close = store, store, store.Close
	default:
		return nil, errors.Errorf("unsupported cmdb backend %q", viper.GetString("cmdb"))
	}

	switch viper.GetString("config-store") {
	case "":
	case "kubernetes":
		restConfig, err := ctrl.GetConfig()
		if err != nil {
			return nil, errors.Wrap(err, "failed to load kubeconfig")
		}
		cli, err := client.New(restConfig, client.Options{Scheme: scheme})
		if err != nil {
			return nil, errors.Wrap(err, "failed to create kubernetes client")
		}
		b.configStore = kubecmdb.New(cli, viper.GetString("kube-namespace"), dec, log.WithName("kubecmdb"))
	default:
		return nil, errors.Errorf("unsupported config store %q", viper.GetString("config-store"))
	}
	return b, nil
}

func ipamSettings(b *backends) controllers.IpamSettings {
	o := controllers.ConfigOverrides{
		Server:     viper.GetString("ipam-server"),
		APIVersion: viper.GetString("ipam-api-version"),
		Username:   viper.GetString("ipam-username"),
		Password:   viper.GetString("ipam-password"),
	}
	if viper.IsSet("verify-ssl") {
		verify := viper.GetBool("verify-ssl")
		o.VerifySSL = &verify
	}
	return controllers.IpamSettings{
		ConfigStore: b.configStore,
		ConfigPath:  viper.GetString("ipam-config-path"),
		Overrides:   o,
	}
}

type flowFunc func(ctx context.Context, b *backends, ws *automate.Workspace) error

// runFlow loads the invocation, runs one flow and prints the workspace.
// The workflow error flag decides the exit status, not the returned error.
func runFlow(ctx context.Context, fn flowFunc) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ws, err := automate.LoadWorkspace(viper.GetString("invocation"))
	if err != nil {
		return err
	}

	b, err := openBackends(ctx, setupLog)
	if err != nil {
		return err
	}
	defer b.close()

	if err := fn(ctx, b, ws); err != nil {
		setupLog.V(1).Info("flow finished with error", "error", err.Error())
	}

	if path := viper.GetString("metrics-textfile"); path != "" {
		if err := metrics.WriteTextfile(path); err != nil {
			setupLog.Error(err, "failed to write metrics", "path", path)
		}
	}

	if err := printWorkspace(os.Stdout, ws); err != nil {
		return err
	}
	if ws.Failed() {
		return errors.Errorf("workflow failed: %s", ws.Reason())
	}
	return nil
}

func printWorkspace(w io.Writer, ws *automate.Workspace) error {
	data, err := ws.Marshal()
	if err != nil {
		return errors.Wrap(err, "failed to render workspace")
	}
	_, err = w.Write(data)
	return err
}
