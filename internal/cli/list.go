package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/fastertools/placeops/internal/action"
)

func newListCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the places of an experience",
		Long: `List every place of an experience.

All pages are fetched and every place is looked up for its details before
anything is printed. A failure part way through prints nothing.`,
		Example: `  placeops list --experience-id 123456
  placeops list --experience-id 123456 -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(context.Background(), output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "table", "Output format (table, json, yaml)")

	return cmd
}

// Allow overriding for tests
var runList = runListImpl

func runListImpl(ctx context.Context, output string) error {
	format, err := ParseOutputFormat(output)
	if err != nil {
		return err
	}

	in := resolveInputs(action.List)
	req, err := in.Request()
	if err != nil {
		return err
	}

	client, err := newPlaceClient(in, true)
	if err != nil {
		return err
	}

	stop := startSpinner(" Listing places...")
	places, err := client.ListPlaces(ctx, req.ExperienceID)
	stop()
	if err != nil {
		return err
	}

	if err := writePlaces(NewDataWriter(colorOutput, format), places); err != nil {
		return err
	}
	if format == OutputFormatTable {
		Info("Found %d place(s)", len(places))
	}
	return nil
}
