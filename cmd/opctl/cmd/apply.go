package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/fx147/operator-dispatcher/internal/opctl/util"
	"github.com/spf13/cobra"
)

// newApplyCmd 创建 apply 命令
func newApplyCmd() *cobra.Command {
	var filename string

	cmd := &cobra.Command{
		Use:   "apply -f FILENAME",
		Short: "Create or update resources from a manifest",
		Long: `Creates the CustomService objects in the manifest, or updates the spec,
labels and annotations of the ones that already exist. Use "-f -" to read
the manifest from stdin.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var in io.Reader = os.Stdin
			if filename != "-" {
				f, err := os.Open(filename)
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}

			items, err := util.DecodeCustomServices(in)
			if err != nil {
				return err
			}

			cs, err := util.NewClientsetFromFlags()
			if err != nil {
				return err
			}
			for _, svc := range items {
				result, err := util.Apply(context.Background(), cs.CustomServices(), svc)
				if err != nil {
					return fmt.Errorf("failed to apply %s/%s: %w", svc.Namespace, svc.Name, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "customservice/%s %s\n", svc.Name, result)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&filename, "filename", "f", "", "Manifest file to apply")
	cmd.MarkFlagRequired("filename")
	return cmd
}
