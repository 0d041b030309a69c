package main

import (
	"os"

	"github.com/grovetools/phlux/cli"
	"github.com/grovetools/phlux/cmd"
	"github.com/grovetools/phlux/logging"
	"github.com/grovetools/phlux/pkg/profiling"
)

func main() {
	rootCmd := cli.NewStandardCommand(
		"phlux",
		"Keyed reactive state store with resumable scopes",
	)

	profiling.NewCobraProfiler(logging.NewLogger("phlux-cli")).Attach(rootCmd)

	rootCmd.AddCommand(cli.NewVersionCommand("phlux"))
	rootCmd.AddCommand(cmd.NewServeCmd())
	rootCmd.AddCommand(cmd.NewDemoCmd())
	rootCmd.AddCommand(cmd.NewConfigCmd())
	rootCmd.AddCommand(cmd.NewScopesCmd())

	if err := rootCmd.Execute(); err != nil {
		verbose, _ := rootCmd.PersistentFlags().GetBool("verbose")
		_ = cli.NewErrorHandler(verbose).Handle(err)
		os.Exit(1)
	}
}
