package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"k8s.io/klog/v2"
)

var (
	cfgFile string

	// namespace 和 allNamespaces 对所有子命令有效
	namespace     string
	allNamespaces bool

	rootCmd = &cobra.Command{
		Use:   "opctl",
		Short: "A CLI for the operator's local API server",
		Long: `opctl reads and writes CustomService objects stored in the operator's
local registry. Deleting an object only marks it for deletion; it disappears
once the operator has finished its cleanup and removed the finalizer.`,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}
)

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.opctl.yaml)")

	// API Server 连接相关的标志
	rootCmd.PersistentFlags().String("host", "localhost", "The host of the operator API server")
	rootCmd.PersistentFlags().String("port", "8080", "The port of the operator API server")
	rootCmd.PersistentFlags().String("protocol", "http", "The protocol to use (http or https)")
	rootCmd.PersistentFlags().StringVarP(&namespace, "namespace", "n", "default", "Namespace of the objects")
	rootCmd.PersistentFlags().BoolVarP(&allNamespaces, "all-namespaces", "A", false, "List objects across all namespaces")

	viper.BindPFlag("host", rootCmd.PersistentFlags().Lookup("host"))
	viper.BindPFlag("port", rootCmd.PersistentFlags().Lookup("port"))
	viper.BindPFlag("protocol", rootCmd.PersistentFlags().Lookup("protocol"))

	rootCmd.AddCommand(newGetCmd())
	rootCmd.AddCommand(newDescribeCmd())
	rootCmd.AddCommand(newApplyCmd())
	rootCmd.AddCommand(newDeleteCmd())
}

// initConfig 读取配置文件和环境变量（如果设置了的话）。
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(".")
		viper.AddConfigPath(home)
		viper.SetConfigName(".opctl")
		viper.SetConfigType("yaml")
	}

	// 例如 OPCTL_HOST
	viper.SetEnvPrefix("OPCTL")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			klog.Warningf("Error reading config file: %v", err)
		}
	}
}

// GetRootCmd 导出 rootCmd 以便 main.go 可以添加 klog 标志
func GetRootCmd() *cobra.Command {
	return rootCmd
}

// resourceAliases 是 customservices 可以使用的名称
var resourceAliases = []string{"customservice", "cs"}

func listNamespace() string {
	if allNamespaces {
		return ""
	}
	return namespace
}
