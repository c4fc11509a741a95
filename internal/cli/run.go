package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fastertools/placeops/internal/action"
	"github.com/fastertools/placeops/internal/actions"
	"github.com/fastertools/placeops/internal/config"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one action from GitHub Actions step inputs",
		Long: `Run one place action the way a GitHub Actions step does.

Inputs are read from flags, PLACEOPS_<INPUT> or the runner's INPUT_<INPUT>
variables. Outputs are appended to the file named by $GITHUB_OUTPUT, and a
failure is reported with an ::error:: workflow command.

Actions:
  create    create a place, optionally named with place_name (needs api_key)
  delete    delete place_id
  list      list every place of the experience as JSON
  publish   upload file_path to place_id (needs api_key)`,
		Example: `  # Inside a workflow step the inputs come from the environment
  placeops run

  # Locally
  placeops run --action list --experience-id 123456`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAction(context.Background(), actions.FromEnvironment(colorOutput))
		},
	}

	cmd.Flags().String("action", "", "action to perform (create, delete, list, publish)")
	cmd.Flags().String("place-id", "", "target place id (delete, publish)")
	cmd.Flags().String("place-name", "", "display name for a created place")
	cmd.Flags().String("file-path", "", "place file to upload (publish)")
	cmd.Flags().String("version-type", "", "Saved or Published (default Published)")

	return cmd
}

// Allow overriding for tests
var runAction = runActionImpl

// runActionImpl executes one action and reports the outcome to the runner.
// It never consults the keyring: a step only ever uses its own inputs.
func runActionImpl(ctx context.Context, reporter *actions.Reporter) error {
	err := func() error {
		in := config.LoadInputs(viper.GetViper())
		for _, secret := range in.Secrets() {
			reporter.Mask(secret)
		}

		req, err := in.Request()
		if err != nil {
			return err
		}
		if in.Roblosecurity == "" {
			return fmt.Errorf("input required and not supplied: %s", config.KeyRoblosecurity)
		}

		client, err := newPlaceClient(in, false)
		if err != nil {
			return err
		}
		logger.Debug("running action", "action", string(req.Action), "experience_id", req.ExperienceID)
		return action.Run(ctx, client, req, reporter)
	}()

	if err != nil {
		reporter.SetFailed(err)
	}
	return err
}
