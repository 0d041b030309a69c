package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/grovetools/phlux/cli"
	"github.com/grovetools/phlux/errors"
	"github.com/grovetools/phlux/internal/counter"
	"github.com/grovetools/phlux/logging"
	"github.com/grovetools/phlux/pkg/persist"
	"github.com/grovetools/phlux/pkg/phlux"
	"github.com/spf13/cobra"
)

func NewScopesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scopes",
		Short: "Manage saved scopes",
	}
	cmd.AddCommand(newScopesListCmd(), newScopesShowCmd(), newScopesDeleteCmd())
	return cmd
}

func openRuntime(cmd *cobra.Command) (*runtime, error) {
	cfg, err := cli.LoadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return newRuntime(cfg, cli.GetLogger(cmd))
}

func newScopesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved scopes",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			lister, ok := rt.repo.(persist.Lister)
			if !ok {
				return errors.New(errors.ErrCodeNotImplemented, "the configured backend cannot list saved scopes")
			}
			keys, err := lister.Keys(cmd.Context())
			if err != nil {
				return err
			}

			if cli.GetOptions(cmd).JSONOutput {
				if keys == nil {
					keys = []phlux.Key{}
				}
				data, err := json.MarshalIndent(keys, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			}
			if len(keys) == 0 {
				logging.NewPrettyLogger().WithWriter(cmd.OutOrStdout()).WarnPretty("No saved scopes")
				return nil
			}
			for _, key := range keys {
				fmt.Fprintln(cmd.OutOrStdout(), key)
			}
			return nil
		},
	}
}

func newScopesShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <key>",
		Short: "Decode and print a saved scope",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			key := phlux.Key(args[0])
			bundle, err := persist.Load(cmd.Context(), rt.repo, rt.codec, key)
			if err != nil {
				return err
			}
			rec, err := rt.codec.Decode(bundle.Scope)
			if err != nil {
				return err
			}

			if cli.GetOptions(cmd).JSONOutput {
				data, err := json.MarshalIndent(bundle, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			}

			pretty := logging.NewPrettyLogger().WithWriter(cmd.OutOrStdout())
			pretty.Field("key", bundle.Key)
			pretty.Field("kind", bundle.Scope.StateKind)
			pretty.Field("state", rec.State())
			for _, id := range rec.TaskIDs() {
				task, _ := rec.Task(id)
				label := fmt.Sprintf("task %d", id)
				if tick, ok := task.(counter.Tick); ok {
					pretty.Field(label, fmt.Sprintf("tick +%d after %dms", tick.Step, tick.DelayMS))
					continue
				}
				pretty.Field(label, fmt.Sprintf("%T", task))
			}
			return nil
		},
	}
}

func newScopesDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <key>...",
		Short: "Delete saved scopes",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			pretty := logging.NewPrettyLogger().WithWriter(cmd.OutOrStdout())
			for _, arg := range args {
				if err := rt.repo.Delete(cmd.Context(), phlux.Key(arg)); err != nil {
					return err
				}
				pretty.Success(fmt.Sprintf("Deleted %s", arg))
			}
			return nil
		},
	}
}
