package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fx147/operator-dispatcher/internal/operator"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"k8s.io/klog/v2"
)

// version 在构建时通过 -ldflags 注入
var version = "dev"

func newRunCmd() *cobra.Command {
	defaults := operator.NewOptions()

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the operator",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := optionsFromViper()
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if opts.KubeMode() {
				klog.InfoS("Starting operator in Kubernetes mode", "kubeconfig", opts.Kubeconfig, "gvk", opts.GroupVersionKind())
				k, err := operator.NewKubeFromConfig(opts)
				if err != nil {
					return err
				}
				return k.Run(ctx)
			}

			klog.InfoS("Starting operator in local mode", "store", opts.Store, "finalizer", opts.Finalizer)
			local, err := operator.NewLocal(opts)
			if err != nil {
				return err
			}
			return local.Run(ctx)
		},
	}

	flags := cmd.Flags()
	flags.String("store", defaults.Store, "Local store backend (bolt or file)")
	flags.String("db-path", defaults.DBPath, "Path of the bolt database")
	flags.String("data-dir", defaults.DataDir, "Directory of the file store")
	flags.String("finalizer", defaults.Finalizer, "Finalizer owned by the dispatcher")
	flags.String("namespace", defaults.Namespace, "Namespace to watch (all namespaces if empty)")
	flags.Duration("resync-period", defaults.ResyncPeriod, "Interval of the informer resync")
	flags.String("listen-address", defaults.ListenAddress, "Address of the API server (local mode) or metrics endpoint")
	flags.String("kubeconfig", "", "Path to a kubeconfig; enables Kubernetes mode")
	flags.String("group", defaults.Group, "API group of the watched resource (Kubernetes mode)")
	flags.String("version", defaults.Version, "API version of the watched resource (Kubernetes mode)")
	flags.String("resource", defaults.Resource, "Plural resource name of the watched resource (Kubernetes mode)")

	for _, name := range []string{
		"store", "db-path", "data-dir", "finalizer", "namespace", "resync-period",
		"listen-address", "kubeconfig", "group", "version", "resource",
	} {
		viper.BindPFlag(name, flags.Lookup(name))
	}

	return cmd
}

func optionsFromViper() operator.Options {
	return operator.Options{
		Store:         viper.GetString("store"),
		DBPath:        viper.GetString("db-path"),
		DataDir:       viper.GetString("data-dir"),
		Finalizer:     viper.GetString("finalizer"),
		Namespace:     viper.GetString("namespace"),
		ResyncPeriod:  viper.GetDuration("resync-period"),
		ListenAddress: viper.GetString("listen-address"),
		Kubeconfig:    viper.GetString("kubeconfig"),
		Group:         viper.GetString("group"),
		Version:       viper.GetString("version"),
		Resource:      viper.GetString("resource"),
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the operator version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}
