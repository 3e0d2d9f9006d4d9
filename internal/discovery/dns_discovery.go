// Package discovery resolves Valkey cache nodes from DNS, typically a
// Kubernetes headless service.
package discovery

import (
	"context"
	"fmt"
	"net"
	"sort"
	"strconv"
	"strings"
)

// DNSConfig defines a simple DNS-based discovery target
type DNSConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Service string `mapstructure:"service" yaml:"service"` // e.g. valkey-headless.cache.svc.cluster.local
	Port    int    `mapstructure:"port" yaml:"port"`
	UseSRV  bool   `mapstructure:"use_srv" yaml:"use_srv"` // if true, query _redis._tcp.<service>
}

// Resolver is the subset of *net.Resolver used here.
type Resolver interface {
	LookupSRV(ctx context.Context, service, proto, name string) (string, []*net.SRV, error)
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// ResolveNodes returns the host:port list behind cfg.Service, de-duplicated
// and sorted. A nil resolver uses net.DefaultResolver.
func ResolveNodes(ctx context.Context, cfg DNSConfig, r Resolver) ([]string, error) {
	if cfg.Service == "" {
		return nil, fmt.Errorf("discovery: empty service name")
	}
	if r == nil {
		r = net.DefaultResolver
	}

	var out []string
	if cfg.UseSRV {
		service := cfg.Service
		if !strings.HasPrefix(service, "_") {
			service = "_redis._tcp." + service
		}
		_, addrs, err := r.LookupSRV(ctx, "", "", service)
		if err != nil {
			return nil, fmt.Errorf("discovery: SRV lookup %s: %w", service, err)
		}
		for _, a := range addrs {
			out = append(out, net.JoinHostPort(strings.TrimSuffix(a.Target, "."), strconv.Itoa(int(a.Port))))
		}
	} else {
		if cfg.Port <= 0 {
			return nil, fmt.Errorf("discovery: port required for A/AAAA lookup of %s", cfg.Service)
		}
		// A/AAAA records (works with headless services to list pods)
		hosts, err := r.LookupHost(ctx, cfg.Service)
		if err != nil {
			return nil, fmt.Errorf("discovery: lookup %s: %w", cfg.Service, err)
		}
		for _, h := range hosts {
			out = append(out, net.JoinHostPort(h, strconv.Itoa(cfg.Port)))
		}
	}

	// de-duplicate + stable order
	seen := map[string]struct{}{}
	uniq := make([]string, 0, len(out))
	for _, e := range out {
		if _, ok := seen[e]; ok {
			continue
		}
		seen[e] = struct{}{}
		uniq = append(uniq, e)
	}
	sort.Strings(uniq)
	return uniq, nil
}
