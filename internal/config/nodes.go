// Package config builds the pool node topology from flags or a TOML file.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/goodnatureofminers/pool-coordinator/internal/model"
	"github.com/pelletier/go-toml"
)

var ErrNoNodes = errors.New("no pool nodes configured")

// nodesFile is the on-disk shape:
//
//	[[node]]
//	url  = "http://core.example.com:4243"
//	role = "upstream"
type nodesFile struct {
	Nodes []struct {
		URL  string `toml:"url"`
		Role string `toml:"role"`
	} `toml:"node"`
}

// LoadNodesFile reads the node list from a TOML file. A missing role means downstream.
func LoadNodesFile(path string) ([]model.PoolNode, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var file nodesFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	nodes := make([]model.PoolNode, 0, len(file.Nodes))
	for i, n := range file.Nodes {
		role, err := parseRole(n.Role)
		if err != nil {
			return nil, fmt.Errorf("%s: node %d: %w", path, i, err)
		}
		nodes = append(nodes, model.PoolNode{URL: normalizeURL(n.URL), Role: role})
	}
	if err := ValidateNodes(nodes); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return nodes, nil
}

// BuildNodes turns flag values into nodes. Each upstream identifier must select
// exactly one node: a full URL matches that URL, host:port matches the node's
// host and port, and a bare hostname is accepted only when a single node runs
// on that host.
func BuildNodes(urls, upstreams []string) ([]model.PoolNode, error) {
	nodes := make([]model.PoolNode, 0, len(urls))
	for _, raw := range urls {
		raw = normalizeURL(raw)
		if raw == "" {
			continue
		}
		nodes = append(nodes, model.PoolNode{URL: raw, Role: model.Downstream})
	}
	if err := ValidateNodes(nodes); err != nil {
		return nil, err
	}
	for _, id := range upstreams {
		id = normalizeURL(id)
		if id == "" {
			continue
		}
		idx, err := matchNode(nodes, id)
		if err != nil {
			return nil, err
		}
		nodes[idx].Role = model.Upstream
	}
	return nodes, nil
}

// ResolveNodes prefers the nodes file when one is given and falls back to flag values.
func ResolveNodes(path string, urls, upstreams []string) ([]model.PoolNode, error) {
	if path != "" {
		return LoadNodesFile(path)
	}
	return BuildNodes(urls, upstreams)
}

// ValidateNodes rejects an empty list, non-http URLs and duplicates.
func ValidateNodes(nodes []model.PoolNode) error {
	if len(nodes) == 0 {
		return ErrNoNodes
	}
	seen := make(map[string]struct{}, len(nodes))
	for _, n := range nodes {
		u, err := url.Parse(n.URL)
		if err != nil {
			return fmt.Errorf("node %q: %w", n.URL, err)
		}
		if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("node %q: want http(s)://host[:port]", n.URL)
		}
		if _, dup := seen[n.URL]; dup {
			return fmt.Errorf("node %q listed twice", n.URL)
		}
		seen[n.URL] = struct{}{}
	}
	return nil
}

// ValidateSnapshotTTL requires the snapshot to outlive one cycle.
func ValidateSnapshotTTL(interval, ttl time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("interval must be positive, got %s", interval)
	}
	if ttl <= interval {
		return fmt.Errorf("snapshot ttl %s must exceed the interval %s", ttl, interval)
	}
	return nil
}

func parseRole(s string) (model.Role, error) {
	switch model.Role(strings.ToLower(strings.TrimSpace(s))) {
	case "", model.Downstream:
		return model.Downstream, nil
	case model.Upstream:
		return model.Upstream, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

func matchNode(nodes []model.PoolNode, id string) (int, error) {
	match := func(u *url.URL) bool { return u.Hostname() == id }
	switch {
	case strings.Contains(id, "://"):
		match = func(u *url.URL) bool { return u.String() == id }
	case strings.Contains(id, ":"):
		match = func(u *url.URL) bool { return u.Host == id }
	}

	found := -1
	for i, n := range nodes {
		u, err := url.Parse(n.URL)
		if err != nil || !match(u) {
			continue
		}
		if found >= 0 {
			return 0, fmt.Errorf("upstream %q matches %s and %s: use host:port or the full url", id, nodes[found].URL, n.URL)
		}
		found = i
	}
	if found < 0 {
		return 0, fmt.Errorf("upstream %q matches no configured node", id)
	}
	return found, nil
}

func normalizeURL(s string) string {
	return strings.TrimRight(strings.TrimSpace(s), "/")
}
