package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/fastertools/placeops/internal/action"
)

func newCreateCmd() *cobra.Command {
	var open bool

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a place in an experience",
		Long: `Create a new place in an experience from the baseplate template.

Naming the place with --place-name needs an Open Cloud API key. The place is
created first and named afterwards; if naming fails the place still exists.`,
		Example: `  placeops create --experience-id 123456
  placeops create --experience-id 123456 --place-name "Lobby" --open`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCreate(context.Background(), open)
		},
	}

	cmd.Flags().String("place-name", "", "display name for the new place")
	cmd.Flags().BoolVar(&open, "open", false, "open the place's settings page after creating it")

	return cmd
}

// Allow overriding for tests
var runCreate = runCreateImpl

func runCreateImpl(ctx context.Context, open bool) error {
	in := resolveInputs(action.Create)
	req, err := in.Request()
	if err != nil {
		return err
	}

	client, err := newPlaceClient(in, true)
	if err != nil {
		return err
	}

	Info("Creating place in experience %d", req.ExperienceID)
	placeID, err := client.CreatePlace(ctx, req.ExperienceID, req.PlaceName)
	if err != nil {
		if placeID != 0 {
			Warn("Place %d exists but is still unnamed", placeID)
		}
		return err
	}

	Success("Created place: %d", placeID)
	if open {
		openInBrowser(placeConfigureURL(req.ExperienceID, placeID))
	}
	return nil
}
