package params

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultClusterUsername is the login used for the cluster basic auth.
const DefaultClusterUsername = "workshopctl"

// Keys of the generator parameters, as charts reference them below
// .workshopctl in values files.
const (
	KeyCloudProvider             = "CLOUD_PROVIDER"
	KeyExternalDNSProvider       = "EXTERNAL_DNS_PROVIDER"
	KeyTraefikDNSProvider        = "TRAEFIK_DNS_PROVIDER"
	KeyDNSProviderServiceAccount = "DNS_PROVIDER_SERVICEACCOUNT"
	KeyRootDomain                = "ROOT_DOMAIN"
	KeyClusterDomain             = "CLUSTER_DOMAIN"
	KeyTutorialsRepo             = "TUTORIALS_REPO"
	KeyTutorialsDir              = "TUTORIALS_DIR"
	KeyLetsEncryptEmail          = "LETSENCRYPT_EMAIL"
	KeyClusterPassword           = "CLUSTER_PASSWORD"
	KeyClusterBasicAuth          = "CLUSTER_BASIC_AUTH_BCRYPT"
)

var externalDNSProviders = map[string]string{
	"digitalocean": "digitalocean",
	"gke":          "google",
	"google":       "google",
	"scaleway":     "scaleway",
	"aws":          "aws",
	"cloudflare":   "cloudflare",
}

var traefikDNSProviders = map[string]string{
	"digitalocean": "digitalocean",
	"gke":          "gcloud",
	"google":       "gcloud",
	"scaleway":     "scaleway",
	"aws":          "route53",
	"cloudflare":   "cloudflare",
}

// Generator holds the settings that only the chart generator needs. They
// are exposed to charts next to the pipe parameters.
type Generator struct {
	LetsEncryptEmail          string `mapstructure:"letsencrypt-email"`
	TutorialsRepo             string `mapstructure:"tutorials-repo"`
	TutorialsDir              string `mapstructure:"tutorials-dir"`
	ClusterUsername           string `mapstructure:"cluster-username"`
	ClusterPassword           string `mapstructure:"cluster-password"`
	DNSProviderServiceAccount string `mapstructure:"dns-provider-serviceaccount"`
}

// GeneratorValues returns the generator parameters of the cluster described
// by p. DNS provider names are mapped to what external-dns and traefik
// expect; unknown providers map to "". The bcrypt basic auth entry is only
// computed when a password is set.
func (p Parameters) GeneratorValues(g Generator) (map[string]any, error) {
	basicAuth := ""

	if g.ClusterPassword != "" {
		username := g.ClusterUsername
		if username == "" {
			username = DefaultClusterUsername
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(g.ClusterPassword), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("unable to hash cluster password: %w", err)
		}

		basicAuth = username + ":" + string(hash)
	}

	return map[string]any{
		KeyCloudProvider:             p.Provider,
		KeyExternalDNSProvider:       externalDNSProviders[p.Provider],
		KeyTraefikDNSProvider:        traefikDNSProviders[p.Provider],
		KeyDNSProviderServiceAccount: g.DNSProviderServiceAccount,
		KeyRootDomain:                p.Domain,
		KeyClusterDomain:             p.ClusterNumber.Domain(p.Domain),
		KeyTutorialsRepo:             g.TutorialsRepo,
		KeyTutorialsDir:              g.TutorialsDir,
		KeyLetsEncryptEmail:          g.LetsEncryptEmail,
		KeyClusterPassword:           g.ClusterPassword,
		KeyClusterBasicAuth:          basicAuth,
	}, nil
}
