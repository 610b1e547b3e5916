package main

import (
	"flag"

	"github.com/fx147/operator-dispatcher/cmd/opctl/cmd"
	"k8s.io/klog/v2"
)

func main() {
	fs := flag.NewFlagSet("klog", flag.ContinueOnError)
	klog.InitFlags(fs)
	cmd.GetRootCmd().PersistentFlags().AddGoFlagSet(fs)

	cmd.Execute()
}
