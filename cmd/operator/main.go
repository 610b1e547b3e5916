package main

import (
	"flag"

	"github.com/fx147/operator-dispatcher/cmd/operator/cmd"
	"k8s.io/klog/v2"
)

func main() {
	// 把 klog 的 -v、--logtostderr 等参数挂到 cobra 的根命令上
	fs := flag.NewFlagSet("klog", flag.ContinueOnError)
	klog.InitFlags(fs)
	cmd.GetRootCmd().PersistentFlags().AddGoFlagSet(fs)

	defer klog.Flush()
	cmd.Execute()
}
