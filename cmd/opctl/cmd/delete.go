package cmd

import (
	"context"
	"fmt"

	"github.com/fx147/operator-dispatcher/internal/opctl/util"
	"github.com/spf13/cobra"
)

// newDeleteCmd 创建 delete 命令
func newDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete [resource] [name]",
		Short: "Delete resources by name",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:     "customservice NAME...",
		Short:   "Delete CustomService objects",
		Aliases: []string{"customservices", "cs"},
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cs, err := util.NewClientsetFromFlags()
			if err != nil {
				return err
			}
			for _, name := range args {
				if err := cs.CustomServices().Delete(context.Background(), namespace, name); err != nil {
					return err
				}
				// 对象可能因为 finalizer 还会保留一段时间
				fmt.Fprintf(cmd.OutOrStdout(), "customservice/%s deleted\n", name)
			}
			return nil
		},
	})
	return cmd
}
