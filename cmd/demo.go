package cmd

import (
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/grovetools/phlux/cli"
	"github.com/grovetools/phlux/internal/demo"
	"github.com/grovetools/phlux/logging"
	"github.com/grovetools/phlux/pkg/phlux"
	"github.com/spf13/cobra"
)

func NewDemoCmd() *cobra.Command {
	var (
		resume string
		delay  int
	)

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run the interactive counter",
		Long: `Opens a counter scope in the terminal. Press esc to detach, which saves the
scope so 'phlux demo --resume <key>' can continue it later. Press q to quit and
discard it.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cli.LoadConfig(cmd)
			if err != nil {
				return err
			}
			rt, err := newRuntime(cfg, logging.NewLogger("phlux-store"))
			if err != nil {
				return err
			}
			defer rt.Close()

			// Log lines would tear the alt screen.
			logging.SetGlobalOutput(io.Discard)
			outcome, err := demo.Run(cmd.Context(), demo.Options{
				Store:       rt.store,
				Codec:       rt.codec,
				Repo:        rt.repo,
				Resume:      phlux.Key(resume),
				TickDelayMS: delay,
			}, tea.WithAltScreen())
			logging.SetGlobalOutput(os.Stderr)
			if err != nil {
				return err
			}

			pretty := logging.NewPrettyLogger().WithWriter(cmd.OutOrStdout())
			if outcome.Detached {
				pretty.Success(fmt.Sprintf("Detached from scope %s", outcome.Key))
				pretty.Code(fmt.Sprintf("phlux demo --resume %s", outcome.Key))
				return nil
			}
			pretty.Success(fmt.Sprintf("Scope %s discarded", outcome.Key))
			return nil
		},
	}

	cmd.Flags().StringVar(&resume, "resume", "", "Key of a detached scope to continue")
	cmd.Flags().IntVar(&delay, "tick-delay", 1000, "Delay of the background increment in milliseconds")
	return cmd
}
