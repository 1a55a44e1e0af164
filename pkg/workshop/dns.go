package workshop

import (
	corev1 "k8s.io/api/core/v1"
	kyaml "sigs.k8s.io/kustomize/kyaml/yaml"
	"sigs.k8s.io/yaml"

	"github.com/lburgazzoli/kpipe/pkg/pipe"
	"github.com/lburgazzoli/kpipe/pkg/transformer/container/env"
)

const (
	// DigitalOcean is the only DNS provider with chart processors.
	DigitalOcean = "digitalocean"

	dnsSecretKey = "DNS_PROVIDER_SERVICEACCOUNT"
)

// ChartProcessors returns the node functions provider needs on every chart.
func ChartProcessors(provider string) ([]pipe.NodeFunc, error) {
	switch provider {
	case DigitalOcean:
		fn, err := DNSProcessor()
		if err != nil {
			return nil, err
		}

		return []pipe.NodeFunc{fn}, nil
	default:
		return nil, nil
	}
}

// DNSProcessor gives traefik and external-dns in the workshop namespace the
// DigitalOcean token they solve DNS challenges and manage records with.
func DNSProcessor() (pipe.NodeFunc, error) {
	traefik, err := envMatch("traefik", env.SecretKeyRef("DO_AUTH_TOKEN", Secret, dnsSecretKey))
	if err != nil {
		return nil, err
	}

	externalDNS, err := envMatch("external-dns", env.SecretKeyRef("DO_TOKEN", Secret, dnsSecretKey))
	if err != nil {
		return nil, err
	}

	return pipe.MatchFunc(traefik, externalDNS), nil
}

// envMatch appends envVars to the container named after the Deployment.
func envMatch(name string, envVars ...corev1.EnvVar) (pipe.Match, error) {
	data, err := yaml.Marshal(envVars)
	if err != nil {
		return pipe.Match{}, err
	}

	entries, err := kyaml.Parse(string(data))
	if err != nil {
		return pipe.Match{}, err
	}

	return pipe.Match{
		Kind:      "Deployment",
		Name:      name,
		Namespace: Namespace,
		Func: func(node *kyaml.RNode) error {
			return node.PipeE(
				kyaml.LookupCreate(kyaml.SequenceNode, "spec", "template", "spec", "containers", "[name="+name+"]", "env"),
				kyaml.Append(entries.Copy().YNode().Content...),
			)
		},
	}, nil
}
