package ledger

import (
	"context"

	"github.com/spf13/cobra"

	entrypoint "github.com/louisbranch/objectledger/internal/platform/cmd"
)

type configKey struct{}

// NewRootCommand builds the ledger command tree.
func NewRootCommand() *cobra.Command {
	flags := &flagValues{}
	root := &cobra.Command{
		Use:           "ledger",
		Short:         "Transactional object ledger with a voting workload",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := LoadConfig(cmd, flags)
			if err != nil {
				return err
			}
			if err := entrypoint.ConfigureLogging(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr()); err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			cmd.SetContext(context.WithValue(ctx, configKey{}, cfg))
			return nil
		},
	}
	flags.register(root)

	root.AddCommand(
		newServeCommand(),
		newSubmitCommand(),
		newSimulateCommand(),
		newReplayCommand(),
		newVerifyCommand(),
		newMCPCommand(),
		newTokenCommand(),
		newKeygenCommand(),
	)
	return root
}

// configFrom returns the config loaded by the root pre-run hook.
func configFrom(cmd *cobra.Command) Config {
	cfg, _ := cmd.Context().Value(configKey{}).(Config)
	return cfg
}
