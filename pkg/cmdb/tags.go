package cmdb

import (
	"strings"
)

// Tags are CMDB tag names of the form "category/name". A leading
// "/managed/" namespace is ignored.
type Tags struct {
	tags []string
}

func NewTags(tags []string) *Tags {
	normalized := []string{}
	for _, t := range tags {
		normalized = append(normalized, strings.TrimPrefix(t, "/managed/"))
	}
	return &Tags{
		tags: normalized,
	}
}

func (t *Tags) HasPrefix(prefix string) bool {
	for _, t := range t.tags {
		if strings.HasPrefix(t, prefix) {
			return true
		}
	}
	return false
}

func (t *Tags) Values(prefix string) []string {
	values := []string{}
	for _, t := range t.tags {
		if strings.HasPrefix(t, prefix) {
			values = append(values, strings.TrimPrefix(t, prefix))
		}
	}
	return values
}
