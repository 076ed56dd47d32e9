// Package discovery resolves Kubernetes Service references in suite
// configuration to cluster-internal base URLs.
package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/giantswarm/load-testing/internal/testcase"
)

// Resolver looks up Services through the Kubernetes API.
type Resolver struct {
	client    kubernetes.Interface
	namespace string
}

// NewResolver creates a resolver from in-cluster credentials or a kubeconfig.
// An empty kubeconfig uses the default loading rules.
func NewResolver(namespace string, kubeconfig string, inCluster bool) (*Resolver, error) {
	var config *rest.Config
	var err error

	if inCluster {
		config, err = rest.InClusterConfig()
	} else {
		loadingRules := clientcmd.NewDefaultClientConfigLoadingRules()
		if kubeconfig != "" {
			loadingRules.ExplicitPath = kubeconfig
		}
		config, err = clientcmd.NewNonInteractiveDeferredLoadingClientConfig(
			loadingRules, &clientcmd.ConfigOverrides{},
		).ClientConfig()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create kubernetes config: %w", err)
	}

	client, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create kubernetes client: %w", err)
	}

	return NewResolverWithClient(client, namespace), nil
}

// NewResolverWithClient creates a Resolver with an existing client (for testing).
func NewResolverWithClient(client kubernetes.Interface, namespace string) *Resolver {
	if namespace == "" {
		namespace = "default"
	}
	return &Resolver{client: client, namespace: namespace}
}

// ResolveBaseURL returns scheme://name.namespace.svc:port for the referenced
// Service. Without an explicit port the Service must expose exactly one, or
// one named after the scheme.
func (r *Resolver) ResolveBaseURL(ctx context.Context, ref testcase.ServiceRef) (string, error) {
	if ref.Name == "" {
		return "", fmt.Errorf("service reference has no name")
	}
	ns := ref.Namespace
	if ns == "" {
		ns = r.namespace
	}
	scheme := ref.Scheme
	if scheme == "" {
		scheme = "http"
	}

	svc, err := r.client.CoreV1().Services(ns).Get(ctx, ref.Name, metav1.GetOptions{})
	if err != nil {
		if apierrors.IsNotFound(err) {
			return "", fmt.Errorf("service %s/%s not found", ns, ref.Name)
		}
		return "", fmt.Errorf("failed to get service %s/%s: %w", ns, ref.Name, err)
	}

	port, err := pickPort(svc, ref.Port, scheme)
	if err != nil {
		return "", fmt.Errorf("service %s/%s: %w", ns, ref.Name, err)
	}

	url := fmt.Sprintf("%s://%s.%s.svc:%d", scheme, svc.Name, ns, port)
	slog.Debug("resolved service", "service", ns+"/"+ref.Name, "url", url)
	return url, nil
}

func pickPort(svc *corev1.Service, want int, scheme string) (int32, error) {
	ports := svc.Spec.Ports
	if len(ports) == 0 {
		return 0, fmt.Errorf("exposes no ports")
	}

	if want != 0 {
		for _, p := range ports {
			if int(p.Port) == want {
				return p.Port, nil
			}
		}
		return 0, fmt.Errorf("does not expose port %d", want)
	}

	if len(ports) == 1 {
		return ports[0].Port, nil
	}
	for _, p := range ports {
		if strings.EqualFold(p.Name, scheme) {
			return p.Port, nil
		}
	}
	return 0, fmt.Errorf("exposes %d ports and none is named %q; set an explicit port", len(ports), scheme)
}
