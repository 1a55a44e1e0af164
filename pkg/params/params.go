// Package params holds the workshop parameters that are injected into every
// values document under the "workshopctl" key.
package params

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"strconv"
	"strings"
)

const (
	// ValuesKey is the values document key the parameters are stored under.
	ValuesKey = "workshopctl"

	DefaultClusterNumber ClusterNumber = 1
	DefaultDomain                      = "kubernetesfinland.com"
	DefaultGitRepo                     = "https://github.com/luxas/workshopctl"
	DefaultProvider                    = "digitalocean"

	clustersDir = "clusters"
)

// ClusterNumber identifies a workshop cluster; it is rendered as two digits.
type ClusterNumber uint16

// ParseClusterNumber parses "1", "01" or "007".
func ParseClusterNumber(s string) (ClusterNumber, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid cluster number %q: %w", s, err)
	}

	return ClusterNumber(n), nil
}

func (n ClusterNumber) String() string {
	return fmt.Sprintf("%02d", uint16(n))
}

// Subdomain returns "cluster-NN".
func (n ClusterNumber) Subdomain() string {
	return "cluster-" + n.String()
}

// Domain returns "cluster-NN.<root>".
func (n ClusterNumber) Domain(root string) string {
	return n.Subdomain() + "." + root
}

// Dir returns the output directory of the cluster, "clusters/NN".
func (n ClusterNumber) Dir() string {
	return path.Join(clustersDir, n.String())
}

// Parameters are the per-cluster settings exposed to values mutators.
type Parameters struct {
	ClusterNumber ClusterNumber `json:"clusterNumber" mapstructure:"cluster-number"`
	Domain        string        `json:"domain"        mapstructure:"domain"`
	GitRepo       string        `json:"gitRepo"       mapstructure:"git-repo"`
	Provider      string        `json:"provider"      mapstructure:"provider"`
}

// Defaults returns the parameters used when nothing else is configured.
func Defaults() Parameters {
	return Parameters{
		ClusterNumber: DefaultClusterNumber,
		Domain:        DefaultDomain,
		GitRepo:       DefaultGitRepo,
		Provider:      DefaultProvider,
	}
}

// WithCluster returns a copy of p for cluster n.
func (p Parameters) WithCluster(n ClusterNumber) Parameters {
	p.ClusterNumber = n

	return p
}

// Validate reports every invalid field.
func (p Parameters) Validate() error {
	var errs []error

	if p.ClusterNumber == 0 {
		errs = append(errs, errors.New("cluster number must be greater than zero"))
	}
	if strings.TrimSpace(p.Domain) == "" {
		errs = append(errs, errors.New("domain is required"))
	}
	if strings.TrimSpace(p.Provider) == "" {
		errs = append(errs, errors.New("provider is required"))
	}
	if p.GitRepo != "" {
		if u, err := url.Parse(p.GitRepo); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("git repository %q is not an absolute URL", p.GitRepo))
		}
	}

	return errors.Join(errs...)
}

// ToMap returns the parameters as they appear in a values document. All
// values are strings and the cluster number keeps its leading zero.
func (p Parameters) ToMap() map[string]any {
	return map[string]any{
		"clusterNumber": p.ClusterNumber.String(),
		"domain":        p.Domain,
		"gitRepo":       p.GitRepo,
		"provider":      p.Provider,
	}
}
