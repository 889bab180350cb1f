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

	"github.com/pkg/errors"

	"github.com/spectrocloud/ddi-ipam-automation/pkg/cmdb"
	"github.com/spectrocloud/ddi-ipam-automation/pkg/ipam"
)

// IpamConfigurationPath is the configuration object holding the IPAM server settings.
const IpamConfigurationPath = "Integration/Infoblox/Configuration/default"

// ConfigOverrides replace settings of the configuration object when set.
type ConfigOverrides struct {
	Server     string
	APIVersion string
	Username   string
	Password   string
	VerifySSL  *bool
}

func (o ConfigOverrides) apply(cfg *ipam.Config) {
	if o.Server != "" {
		cfg.Server = o.Server
	}
	if o.APIVersion != "" {
		cfg.APIVersion = o.APIVersion
	}
	if o.Username != "" {
		cfg.Username = o.Username
	}
	if o.Password != "" {
		cfg.Password = o.Password
	}
	if o.VerifySSL != nil {
		cfg.VerifySSL = *o.VerifySSL
	}
}

// LoadIpamConfig instantiates the configuration object at path and
// decrypts the password. A missing object, an unset server or the
// placeholder server all yield ipam.ErrConfigurationMissing.
func LoadIpamConfig(ctx context.Context, store cmdb.ConfigStore, path string, overrides ConfigOverrides) (ipam.Config, error) {
	cfg := ipam.Config{}
	if path == "" {
		path = IpamConfigurationPath
	}

	obj, err := store.Instantiate(ctx, path)
	switch {
	case cmdb.IsNotFound(err):
		// overrides may still carry a complete configuration
	case err != nil:
		return cfg, errors.Wrapf(err, "failed to instantiate IPAM configuration %s", path)
	default:
		password, err := obj.Decrypt("password")
		if err != nil {
			return cfg, err
		}
		cfg = ipam.Config{
			Type:       ipam.IpamType(strings.ToLower(obj.Get("type"))),
			Server:     obj.Get("server"),
			APIVersion: obj.Get("api_version"),
			Username:   obj.Get("username"),
			Password:   password,
			VerifySSL:  obj.Bool("verify_ssl"),
		}
	}

	overrides.apply(&cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, errors.Wrapf(err, "configuration %s", path)
	}
	return cfg, nil
}
