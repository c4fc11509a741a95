package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fastertools/placeops/internal/config"
)

func newGetCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "get [place-id]",
		Short: "Show the details of a place",
		Example: `  placeops get 987654
  placeops get --place-id 987654 -o yaml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			setPlaceIDArg(args)
			return runGet(context.Background(), output)
		},
	}

	cmd.Flags().String("place-id", "", "place to show")
	cmd.Flags().StringVarP(&output, "output", "o", "table", "Output format (table, json, yaml)")

	return cmd
}

// Allow overriding for tests
var runGet = runGetImpl

func runGetImpl(ctx context.Context, output string) error {
	format, err := ParseOutputFormat(output)
	if err != nil {
		return err
	}

	in := resolveInputs("")
	if err := in.Err(config.KeyPlaceID, config.KeyTimeout); err != nil {
		return err
	}
	if in.PlaceID == 0 {
		return fmt.Errorf("input required and not supplied: %s", config.KeyPlaceID)
	}

	client, err := newPlaceClient(in, true)
	if err != nil {
		return err
	}

	place, err := client.GetPlace(ctx, in.PlaceID)
	if err != nil {
		return err
	}
	return writePlace(NewDataWriter(colorOutput, format), place)
}

// setPlaceIDArg lets a positional place id take the place of --place-id
func setPlaceIDArg(args []string) {
	if len(args) > 0 {
		viper.Set(config.KeyPlaceID, args[0])
	}
}
