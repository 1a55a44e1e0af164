package workshop

import (
	"context"
	"fmt"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/utils/ptr"

	"github.com/lburgazzoli/kpipe/pkg/mutator"
	"github.com/lburgazzoli/kpipe/pkg/params"
	"github.com/lburgazzoli/kpipe/pkg/transformer/container/env"
	"github.com/lburgazzoli/kpipe/pkg/transformer/meta/labels"
	"github.com/lburgazzoli/kpipe/pkg/types"
	"github.com/lburgazzoli/kpipe/pkg/values"
)

const (
	CoreWorkshopInfra   = "core-workshop-infra"
	KubernetesDashboard = "kubernetes-dashboard"
	Flux                = "flux"
)

func init() {
	for _, p := range []Preset{coreWorkshopInfra(), kubernetesDashboard(), flux()} {
		if err := Register(p); err != nil {
			panic(err)
		}
	}
}

func coreWorkshopInfra() Preset {
	return Preset{
		Name:      CoreWorkshopInfra,
		Namespace: Namespace,
		Mutators: []mutator.Mutator{
			mutator.Kube(
				ptr.To(appsv1.SchemeGroupVersion.WithKind("Deployment")),
				"external-dns",
				env.Append("", env.SecretKeyRef("DO_TOKEN", "external-dns", "DO_TOKEN")),
			),
		},
	}
}

func kubernetesDashboard() Preset {
	return Preset{
		Name:      KubernetesDashboard,
		Namespace: "kube-system",
		Mutators: []mutator.Mutator{
			mutator.Kube(
				ptr.To(corev1.SchemeGroupVersion.WithKind("Service")),
				"workshopctl-kubernetes-dashboard",
				labels.Remove("kubernetes.io/cluster-service"),
			),
		},
		ValuesMutators: []mutator.ValuesMutator{
			mutator.Values(withParameters(func(ctx context.Context, v map[string]any, p map[string]string) (map[string]any, error) {
				host := "cluster-" + p["clusterNumber"] + "." + p["domain"]
				return values.Set([]string{host}, "ingress", "hosts")(ctx, v)
			})),
		},
	}
}

func flux() Preset {
	return Preset{
		Name: Flux,
		ValuesMutators: []mutator.ValuesMutator{
			mutator.Values(withParameters(func(ctx context.Context, v map[string]any, p map[string]string) (map[string]any, error) {
				v, err := values.Set(p["gitRepo"], "git", "url")(ctx, v)
				if err != nil {
					return nil, err
				}

				return values.Set("clusters/"+p["clusterNumber"]+"/", "git", "path")(ctx, v)
			})),
		},
	}
}

// withParameters hands fn the workshop parameters found in the values.
func withParameters(fn func(context.Context, map[string]any, map[string]string) (map[string]any, error)) types.ValuesTransformer {
	return func(ctx context.Context, v map[string]any) (map[string]any, error) {
		raw, ok := v[params.ValuesKey].(map[string]any)
		if !ok {
			return nil, fmt.Errorf("values have no %s parameters", params.ValuesKey)
		}

		p := make(map[string]string, len(raw))
		for k, val := range raw {
			s, ok := val.(string)
			if !ok {
				return nil, fmt.Errorf("parameter %s.%s is a %T, not a string", params.ValuesKey, k, val)
			}

			p[k] = s
		}

		return fn(ctx, v, p)
	}
}
