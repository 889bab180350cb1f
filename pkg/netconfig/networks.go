package netconfig

import (
	"context"
	"fmt"
	"strings"
)

// SelectableNetworks maps every resolvable network of names to a
// "name: address space" label. Unresolvable networks are left out.
func (r *Resolver) SelectableNetworks(ctx context.Context, names []string) (map[string]string, error) {
	values := map[string]string{}
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		config, err := r.Resolve(ctx, name)
		if IsNotFound(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		values[name] = fmt.Sprintf("%s: %s", name, config.AddressSpace)
	}
	return values, nil
}
