package cli

import (
	"context"
	"fmt"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/fastertools/placeops/internal/action"
)

func newDeleteCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete [place-id]",
		Short: "Delete a place from an experience",
		Long: `Delete a place from an experience.

The place is looked up first and its details shown. Unless --force is given,
deletion must be confirmed by typing the place name.`,
		Example: `  placeops delete 987654 --experience-id 123456
  placeops delete --place-id 987654 --experience-id 123456 --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			setPlaceIDArg(args)
			return runDelete(context.Background(), force)
		},
	}

	cmd.Flags().String("place-id", "", "place to delete")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Force deletion without confirmation")

	return cmd
}

// Allow overriding for tests
var runDelete = runDeleteImpl

func runDeleteImpl(ctx context.Context, force bool) error {
	in := resolveInputs(action.Delete)
	req, err := in.Request()
	if err != nil {
		return err
	}

	client, err := newPlaceClient(in, true)
	if err != nil {
		return err
	}

	place, err := client.GetPlace(ctx, req.PlaceID)
	if err != nil {
		return err
	}
	if err := writePlace(NewDataWriter(colorOutput, OutputFormatTable), place); err != nil {
		return err
	}
	if place.IsRootPlace {
		Warn("Place %d is the start place of the experience", place.ID)
	}

	if !force && confirmDeletes() {
		if !interactive() {
			return fmt.Errorf("deletion requires confirmation. Use --force to skip confirmation in non-interactive mode")
		}

		name := place.Name
		if name == "" {
			name = fmt.Sprintf("%d", place.ID)
		}
		var answer string
		prompt := &survey.Input{
			Message: fmt.Sprintf("Type '%s' to confirm deletion:", name),
		}
		if err := askOne(prompt, &answer); err != nil {
			return fmt.Errorf("failed to get confirmation: %w", err)
		}
		if answer != name {
			Info("Deletion cancelled")
			return nil
		}
	}

	Info("Deleting place %d", req.PlaceID)
	if err := client.DeletePlace(ctx, req.ExperienceID, req.PlaceID); err != nil {
		return err
	}

	Success("Deleted place: %d", req.PlaceID)
	return nil
}

// confirmDeletes reads the confirm_delete preference. It defaults to on
// when the preferences file cannot be read.
func confirmDeletes() bool {
	cfg, err := loadUserConfig()
	if err != nil {
		return true
	}
	return cfg.Preferences.ConfirmDelete
}
