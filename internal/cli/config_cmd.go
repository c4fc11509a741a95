package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fastertools/placeops/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage user preferences",
	}

	cmd.AddCommand(
		newConfigInitCmd(),
		&cobra.Command{
			Use:   "show",
			Short: "Show the preferences file",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := loadUserConfig()
				if err != nil {
					return err
				}
				kvb := NewKeyValueBuilder("Preferences")
				kvb.Add("Path", configFilePath())
				kvb.AddIf(cfg.GetDefaultExperienceID() != 0, "Default experience", cfg.GetDefaultExperienceID())
				kvb.Add("Confirm delete", strconv.FormatBool(cfg.Preferences.ConfirmDelete))
				kvb.Add("Color output", strconv.FormatBool(cfg.Preferences.ColorOutput))
				return kvb.Write(NewDataWriter(colorOutput, OutputFormatTable), cfg)
			},
		},
		&cobra.Command{
			Use:   "set-experience <experience-id>",
			Short: "Set the experience used when none is given",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := strconv.ParseInt(args[0], 10, 64)
				if err != nil || id <= 0 {
					return fmt.Errorf("invalid experience id %q: must be a positive integer", args[0])
				}
				cfg, err := loadUserConfig()
				if err != nil {
					return err
				}
				if err := cfg.SetDefaultExperienceID(id); err != nil {
					return err
				}
				Success("Default experience set to %d", id)
				return nil
			},
		},
		&cobra.Command{
			Use:   "reset",
			Short: "Restore the default preferences",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := loadUserConfig()
				if err != nil {
					return err
				}
				if err := cfg.Reset(); err != nil {
					return err
				}
				Success("Preferences reset")
				return nil
			},
		},
	)

	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var format string
	var force bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Write a project file with the current non-secret inputs",
		Long: `Write placeops.yaml (or .toml, .json) into a directory, filled from the
experience, place, file and timeout inputs. Credentials are never written.`,
		Example: `  placeops config init --experience-id 123456 --place-id 987654 --file-path build/game.rbxl
  placeops config init --experience-id 123456 --format toml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			return runConfigInit(dir, format, force)
		},
	}

	cmd.Flags().String("place-id", "", "default place id")
	cmd.Flags().String("file-path", "", "default place file")
	cmd.Flags().String("version-type", "", "default version type")
	cmd.Flags().StringVar(&format, "format", "yaml", "file format (yaml, toml, json)")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing project file")

	return cmd
}

// Allow overriding for tests
var runConfigInit = runConfigInitImpl

func runConfigInitImpl(dir, format string, force bool) error {
	switch format {
	case "yaml", "toml", "json":
	default:
		return fmt.Errorf("invalid format: %s (use 'yaml', 'toml' or 'json')", format)
	}

	if existing := config.DetectConfigFile(dir); existing != nil && !force {
		return fmt.Errorf("%s already exists. Use --force to overwrite", existing.Path)
	}

	in := config.LoadInputs(viper.GetViper())
	if err := in.Err(config.KeyExperienceID, config.KeyPlaceID, config.KeyVersionType, config.KeyTimeout); err != nil {
		return err
	}

	project := &config.ProjectFile{
		ExperienceID: in.ExperienceID,
		PlaceID:      in.PlaceID,
		FilePath:     in.FilePath,
	}
	if viper.GetString(config.KeyVersionType) != "" {
		project.VersionType = string(in.VersionType)
	}
	if in.Timeout > 0 {
		project.Timeout = in.Timeout.String()
	}

	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	path := filepath.Join(dir, "placeops."+format)
	if err := project.Save(path); err != nil {
		return err
	}

	Success("Wrote %s", path)
	return nil
}
