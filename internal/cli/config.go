package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/growtree/internal/config"
)

// configCommand creates the config command that prints the effective
// configuration.
func (c *CLI) configCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: fmt.Sprintf(`Print the configuration after merging the config file and environment.

Environment variables: %s, %s, %s, %s, %s, %s, %s, %s.`,
			config.EnvNeo4jURI, config.EnvNeo4jUser, config.EnvNeo4jPassword, config.EnvNeo4jDatabase,
			config.EnvRedisURL, config.EnvNATSURL, config.EnvAddr, config.EnvSeed),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, err := config.Load(c.configPath)
			if err != nil {
				return err
			}
			if path == "" {
				path = "(defaults)"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "# %s\n%s", path, cfg)
			return nil
		},
	}
}
