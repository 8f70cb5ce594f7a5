package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aryankumar/coalesce/internal/config"
)

const defaultInitPath = ".coalesce.yaml"

func newInitCmd(opts *rootOptions) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter configuration file",
		Long: `Write a configuration file with a single section that checks Go files for
long lines, trailing whitespace and TODO markers.

The file is written to the path given by --config, or .coalesce.yaml in the
current directory. Existing files are kept unless --force is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := opts.cfgFile
			if path == "" {
				path = defaultInitPath
			}

			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists, use --force to overwrite", path)
			}

			m := config.NewManager(path)
			// Jobs stays zero so that it follows the machine's CPU count
			m.GetConfig().Defaults = config.DefaultsConfig{
				PollInterval: config.DefaultPollInterval,
				Timeout:      config.DefaultTimeout,
				OutputFormat: config.DefaultOutputFormat,
			}
			m.SetSection(config.DefaultSectionName, config.DefaultSection())

			if err := m.Save(); err != nil {
				return err
			}

			opts.logger.Debug("wrote configuration", "path", path)
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing configuration file")

	return cmd
}
