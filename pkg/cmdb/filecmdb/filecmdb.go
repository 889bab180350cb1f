// Package filecmdb serves CMDB and configuration objects from a YAML document.
package filecmdb

import (
	"context"
	"fmt"
	"io/ioutil"

	"github.com/ghodss/yaml"
	"github.com/pkg/errors"

	"github.com/spectrocloud/ddi-ipam-automation/pkg/cmdb"
)

// Document is the YAML layout:
//
//	lans:
//	- name: dvs_prod1
//	  tags: [network_address_space/prod1]
//	classifications:
//	- category: network_address_space
//	  name: prod1
//	  description: 10.1.2.0/24
//	configurations:
//	  Infrastructure/Network/Configuration/prod1:
//	    network_address_space: 10.1.2.0/24
type Document struct {
	LANs            []cmdb.LAN                        `json:"lans,omitempty"`
	Classifications []cmdb.Classification             `json:"classifications,omitempty"`
	Configurations  map[string]map[string]interface{} `json:"configurations,omitempty"`
}

type Store struct {
	doc       Document
	decrypter cmdb.Decrypter
}

var (
	_ cmdb.CMDB        = &Store{}
	_ cmdb.ConfigStore = &Store{}
)

func New(doc Document, decrypter cmdb.Decrypter) *Store {
	return &Store{
		doc:       doc,
		decrypter: decrypter,
	}
}

func Load(path string, decrypter cmdb.Decrypter) (*Store, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read cmdb file %s", path)
	}
	doc := Document{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrapf(err, "failed to parse cmdb file %s", path)
	}
	return New(doc, decrypter), nil
}

func (s *Store) FindLAN(ctx context.Context, name string) (*cmdb.LAN, error) {
	for i := range s.doc.LANs {
		if s.doc.LANs[i].Name == name {
			lan := s.doc.LANs[i]
			return &lan, nil
		}
	}
	return nil, cmdb.NotFound("lan %s", name)
}

func (s *Store) FindClassification(ctx context.Context, category, name string) (*cmdb.Classification, error) {
	for i := range s.doc.Classifications {
		c := s.doc.Classifications[i]
		if c.Category == category && c.Name == name {
			return &c, nil
		}
	}
	return nil, cmdb.NotFound("classification %s/%s", category, name)
}

func (s *Store) Instantiate(ctx context.Context, path string) (*cmdb.ConfigObject, error) {
	raw, ok := s.doc.Configurations[path]
	if !ok {
		return nil, cmdb.NotFound("configuration object %s", path)
	}
	attributes := map[string]string{}
	for k, v := range raw {
		if v == nil {
			continue
		}
		attributes[k] = fmt.Sprint(v)
	}
	return cmdb.NewConfigObject(path, attributes, s.decrypter), nil
}
