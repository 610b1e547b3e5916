package cmd

import (
	"context"
	"os"

	"github.com/fx147/operator-dispatcher/internal/opctl/util"
	"github.com/spf13/cobra"
)

// newDescribeCmd 创建 describe 命令
func newDescribeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "describe [resource] [name]",
		Short: "Show detailed information about a resource",
		Long:  `Prints a detailed description of the specified resource.`,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:     "customservice NAME",
		Short:   "Show detailed information about a CustomService",
		Aliases: []string{"customservices", "cs"},
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cs, err := util.NewClientsetFromFlags()
			if err != nil {
				return err
			}
			svc, err := cs.CustomServices().Get(context.Background(), namespace, args[0])
			if err != nil {
				return err
			}
			util.PrintCustomServiceDetails(os.Stdout, svc)
			return nil
		},
	})
	return cmd
}
