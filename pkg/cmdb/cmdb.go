package cmdb

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

var errNotFound = fmt.Errorf("NotFound")

// NotFound creates a new notfound error with a given error message.
func NotFound(format string, args ...interface{}) error {
	return errors.Wrapf(errNotFound, format, args...)
}

// IsNotFound checks if an error is a notfound error.
func IsNotFound(e error) bool {
	return errors.Cause(e) == errNotFound
}

// LAN is a network object of the CMDB.
type LAN struct {
	Name string   `json:"name"`
	Tags []string `json:"tags,omitempty"`
}

// HasTag reports whether the LAN carries any tag of category.
func (l LAN) HasTag(category string) bool {
	return NewTags(l.Tags).HasPrefix(category + "/")
}

// TagValues returns the names of the tags the LAN carries in category.
func (l LAN) TagValues(category string) []string {
	return NewTags(l.Tags).Values(category + "/")
}

// Classification is an entry of the tag taxonomy.
type Classification struct {
	Category    string `json:"category"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// CMDB looks up network and classification objects.
type CMDB interface {
	// finds the LAN named name
	FindLAN(ctx context.Context, name string) (*LAN, error)

	// finds the classification entry category/name
	FindClassification(ctx context.Context, category, name string) (*Classification, error)
}

// ConfigStore instantiates named configuration objects.
type ConfigStore interface {
	Instantiate(ctx context.Context, path string) (*ConfigObject, error)
}

// ConfigObject is an instantiated configuration object. Attributes may be
// encrypted and are only readable in clear text through Decrypt.
type ConfigObject struct {
	Path       string
	Attributes map[string]string

	decrypter Decrypter
}

func NewConfigObject(path string, attributes map[string]string, decrypter Decrypter) *ConfigObject {
	if attributes == nil {
		attributes = map[string]string{}
	}
	return &ConfigObject{
		Path:       path,
		Attributes: attributes,
		decrypter:  decrypter,
	}
}

// Get returns the trimmed raw attribute value.
func (o *ConfigObject) Get(key string) string {
	return strings.TrimSpace(o.Attributes[key])
}

// Bool parses the attribute as a boolean, false when unset or unparsable.
func (o *ConfigObject) Bool(key string) bool {
	b, err := strconv.ParseBool(o.Get(key))
	return err == nil && b
}

// Decrypt returns the clear text of an encrypted attribute. Values without
// an encryption prefix are returned as they are.
func (o *ConfigObject) Decrypt(key string) (string, error) {
	v := o.Get(key)
	if !IsEncrypted(v) {
		return v, nil
	}
	if o.decrypter == nil {
		return "", errors.Errorf("attribute %s of %s is encrypted but no key is configured", key, o.Path)
	}
	clear, err := o.decrypter.Decrypt(v)
	if err != nil {
		return "", errors.Wrapf(err, "failed to decrypt attribute %s of %s", key, o.Path)
	}
	return clear, nil
}
