// Package kubecmdb serves configuration objects from ConfigMaps. A ConfigMap
// is a configuration object when it carries the ConfigObjectLabel, its path
// is held by the PathAnnotation since paths are not valid object names.
package kubecmdb

import (
	"context"

	"github.com/go-logr/logr"
	"github.com/pkg/errors"
	corev1 "k8s.io/api/core/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/spectrocloud/ddi-ipam-automation/pkg/cmdb"
)

const (
	ConfigObjectLabel = "automate.spectrocloud.com/config-object"
	PathAnnotation    = "automate.spectrocloud.com/path"
)

type Store struct {
	client.Client
	namespace string
	decrypter cmdb.Decrypter
	log       logr.Logger
}

var _ cmdb.ConfigStore = &Store{}

func New(cli client.Client, namespace string, decrypter cmdb.Decrypter, log logr.Logger) *Store {
	return &Store{
		Client:    cli,
		namespace: namespace,
		decrypter: decrypter,
		log:       log,
	}
}

func (s *Store) Instantiate(ctx context.Context, path string) (*cmdb.ConfigObject, error) {
	cms := &corev1.ConfigMapList{}
	if err := s.List(ctx, cms,
		client.InNamespace(s.namespace),
		client.MatchingLabels{ConfigObjectLabel: "true"}); err != nil {
		return nil, errors.Wrapf(err, "failed to list configuration objects in %s", s.namespace)
	}

	for i := range cms.Items {
		cm := cms.Items[i]
		if cm.Annotations[PathAnnotation] != path {
			continue
		}
		s.log.V(1).Info("instantiated configuration object", "path", path, "configmap", cm.Name)
		attributes := map[string]string{}
		for k, v := range cm.Data {
			attributes[k] = v
		}
		return cmdb.NewConfigObject(path, attributes, s.decrypter), nil
	}

	return nil, cmdb.NotFound("configuration object %s", path)
}
