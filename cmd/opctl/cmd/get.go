package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/fx147/operator-dispatcher/internal/opctl/util"
	samplev1 "github.com/fx147/operator-dispatcher/pkg/apis/sample/v1"
	"github.com/spf13/cobra"
)

// newGetCmd 创建 get 命令
func newGetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get [resource]",
		Short: "Display one or many resources",
		Long:  `Prints a table of the most important information about the specified resources.`,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}

	cmd.AddCommand(newGetCustomServicesCmd())
	return cmd
}

// newGetCustomServicesCmd 创建 "get customservices" 子命令
func newGetCustomServicesCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:     "customservices [NAME]",
		Short:   "Display CustomService objects",
		Aliases: resourceAliases,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cs, err := util.NewClientsetFromFlags()
			if err != nil {
				return err
			}
			ctx := context.Background()

			if len(args) == 1 {
				svc, err := cs.CustomServices().Get(ctx, namespace, args[0])
				if err != nil {
					return err
				}
				if output != "" {
					return util.PrintObject(os.Stdout, svc, output)
				}
				util.PrintCustomServicesTable(os.Stdout, []samplev1.CustomService{*svc}, false)
				return nil
			}

			list, err := cs.CustomServices().List(ctx, listNamespace())
			if err != nil {
				return err
			}
			if output != "" {
				return util.PrintObject(os.Stdout, list, output)
			}
			if len(list.Items) == 0 {
				fmt.Println("No resources found.")
				return nil
			}
			util.PrintCustomServicesTable(os.Stdout, list.Items, allNamespaces)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output format: yaml or json (default is a table)")
	return cmd
}
