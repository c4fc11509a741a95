package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/fastertools/placeops/internal/action"
	"github.com/fastertools/placeops/internal/api"
)

func newPublishCmd() *cobra.Command {
	var open bool

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Upload a place file as a new version",
		Long: `Upload a .rbxl or .rbxlx file to a place. Needs an API key.

With --version-type Saved the upload is stored without going live.`,
		Example: `  placeops publish --experience-id 123456 --place-id 987654 --file-path build/game.rbxl
  placeops publish --experience-id 123456 --place-id 987654 --file-path game.rbxlx --version-type Saved`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPublish(context.Background(), open)
		},
	}

	cmd.Flags().String("place-id", "", "place to publish to")
	cmd.Flags().String("file-path", "", "place file to upload")
	cmd.Flags().String("version-type", "", "Saved or Published (default Published)")
	cmd.Flags().BoolVar(&open, "open", false, "open the place's settings page after publishing")

	return cmd
}

// Allow overriding for tests
var runPublish = runPublishImpl

func runPublishImpl(ctx context.Context, open bool) error {
	in := resolveInputs(action.Publish)
	req, err := in.Request()
	if err != nil {
		return err
	}

	client, err := newPlaceClient(in, true)
	if err != nil {
		return err
	}
	if !client.HasAPIKey() {
		return &api.ConfigurationError{Operation: "publish place"}
	}

	path, err := validatePlaceFile(req.FilePath)
	if err != nil {
		return err
	}

	stop := startSpinner(fmt.Sprintf(" Uploading %s...", filepath.Base(path)))
	resp, err := client.PublishPlace(ctx, req.ExperienceID, req.PlaceID, path, req.VersionType)
	stop()
	if err != nil {
		return err
	}

	if resp.VersionNumber != 0 {
		Success("Published place %d as version %d", req.PlaceID, resp.VersionNumber)
	} else {
		Success("Published place %d", req.PlaceID)
	}
	if open {
		openInBrowser(placeConfigureURL(req.ExperienceID, req.PlaceID))
	}
	return nil
}
