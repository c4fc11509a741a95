package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fastertools/placeops/internal/config"
)

func newUpdateCmd() *cobra.Command {
	var description string

	cmd := &cobra.Command{
		Use:   "update [place-id]",
		Short: "Update the name or description of a place",
		Long: `Update place settings through Open Cloud. Needs an API key.

Only the fields given on the command line are changed.`,
		Example: `  placeops update 987654 --experience-id 123456 --place-name "Arena"
  placeops update 987654 --experience-id 123456 --description ""`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			setPlaceIDArg(args)
			fields := map[string]any{}
			if cmd.Flags().Changed("place-name") {
				name, _ := cmd.Flags().GetString("place-name")
				fields["displayName"] = name
			}
			if cmd.Flags().Changed("description") {
				fields["description"] = description
			}
			return runUpdate(context.Background(), fields)
		},
	}

	cmd.Flags().String("place-id", "", "place to update")
	cmd.Flags().String("place-name", "", "new display name")
	cmd.Flags().StringVar(&description, "description", "", "new description")

	return cmd
}

// Allow overriding for tests
var runUpdate = runUpdateImpl

func runUpdateImpl(ctx context.Context, fields map[string]any) error {
	if len(fields) == 0 {
		return fmt.Errorf("nothing to update. Use --place-name or --description")
	}

	in := resolveInputs("")
	if err := in.Err(config.KeyExperienceID, config.KeyPlaceID, config.KeyTimeout); err != nil {
		return err
	}
	if in.ExperienceID == 0 {
		return fmt.Errorf("input required and not supplied: %s", config.KeyExperienceID)
	}
	if in.PlaceID == 0 {
		return fmt.Errorf("input required and not supplied: %s", config.KeyPlaceID)
	}

	client, err := newPlaceClient(in, true)
	if err != nil {
		return err
	}

	if err := client.UpdatePlace(ctx, in.ExperienceID, in.PlaceID, fields); err != nil {
		return err
	}
	Success("Updated place: %d", in.PlaceID)
	return nil
}
