package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/giantswarm/load-testing/internal/discovery"
	"github.com/giantswarm/load-testing/internal/testcase"
)

// targetURLEnv overrides the base URL of every test case without a service
// reference.
const targetURLEnv = "TARGET_URL"

// suiteFlags are the flags shared by every command that loads a suite.
type suiteFlags struct {
	suitesDir       string
	targetURL       string
	resolveServices bool
	inCluster       bool
}

func (f *suiteFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.suitesDir, "suites-dir", "", "External test suites directory")
	cmd.Flags().StringVar(&f.targetURL, "target-url", "", "Base URL for every test case without a service reference (or set "+targetURLEnv+")")
	cmd.Flags().BoolVar(&f.resolveServices, "resolve-services", false, "Resolve service references through the Kubernetes API")
	cmd.Flags().BoolVar(&f.inCluster, "in-cluster", false, "Use in-cluster Kubernetes authentication")
}

func (f *suiteFlags) loadOptions(cmd *cobra.Command) ([]testcase.LoadOption, error) {
	var opts []testcase.LoadOption

	targetURL := f.targetURL
	if targetURL == "" {
		targetURL = os.Getenv(targetURLEnv)
	}
	if targetURL != "" {
		opts = append(opts, testcase.WithTargetURL(targetURL))
	}

	if f.resolveServices {
		resolver, err := newResolver(cmd, f.inCluster)
		if err != nil {
			return nil, err
		}
		opts = append(opts, testcase.WithServiceResolver(resolver))
	}
	return opts, nil
}

func (f *suiteFlags) load(ctx context.Context, cmd *cobra.Command, name string) (*testcase.Suite, error) {
	opts, err := f.loadOptions(cmd)
	if err != nil {
		return nil, err
	}
	suite, err := testcase.Load(ctx, name, f.suitesDir, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load test suite: %w", err)
	}
	return suite, nil
}

func newResolver(cmd *cobra.Command, inCluster bool) (*discovery.Resolver, error) {
	namespace, _ := cmd.Flags().GetString("namespace")
	kubeconfig, _ := cmd.Flags().GetString("kubeconfig")
	return discovery.NewResolver(namespace, kubeconfig, inCluster)
}
