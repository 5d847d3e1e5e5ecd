package main

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/vango-dev/runtimelink/internal/config"
	"github.com/vango-dev/runtimelink/internal/errors"
)

func initCmd() *cobra.Command {
	var (
		dir     string
		address string
		force   bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default runtimelink.json",
		Long: `Write runtimelink.json with every default filled in.

Examples:
  runtimelink init
  runtimelink init --address 192.168.0.10`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if config.Exists(dir) && !force {
				return errors.New("E044").
					WithDetail(config.ConfigFileName + " already exists in " + dir).
					WithSuggestion("Use --force to overwrite it")
			}

			cfg := config.New()
			if address != "" {
				cfg.Runtime.Address = address
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			path := filepath.Join(dir, config.ConfigFileName)
			if err := cfg.SaveTo(path); err != nil {
				return err
			}
			success("Wrote %s", path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&dir, "dir", "d", ".", "Directory to write into")
	cmd.Flags().StringVarP(&address, "address", "a", "", "Runtime address")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing file")

	return cmd
}
