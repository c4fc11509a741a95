package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/briandowns/spinner"
	"github.com/pkg/browser"
	"github.com/spf13/viper"

	"github.com/fastertools/placeops/internal/action"
	"github.com/fastertools/placeops/internal/api"
	"github.com/fastertools/placeops/internal/auth"
	"github.com/fastertools/placeops/internal/config"
)

// Allow overriding for tests
var (
	newCredentialStore = func() auth.CredentialStore { return auth.NewKeyringStore() }
	loadUserConfig     = config.Load
	configFilePath     = config.Path
	openURL            = browser.OpenURL
	interactive        = isInteractive
	askOne             = survey.AskOne
)

// resolveInputs loads the inputs of a subcommand. The stored default
// experience fills in a missing experience id.
func resolveInputs(name action.Name) *config.Inputs {
	in := config.LoadInputs(viper.GetViper())
	if name != "" {
		in.Action = string(name)
	}

	if in.ExperienceID == 0 {
		if cfg, err := loadUserConfig(); err == nil && in.Err(config.KeyExperienceID) == nil {
			in.ExperienceID = cfg.GetDefaultExperienceID()
		}
	}
	return in
}

// newPlaceClient builds a platform client. With useStore the keyring fills
// in credentials the inputs left empty.
func newPlaceClient(in *config.Inputs, useStore bool) (*api.Client, error) {
	roblosecurity, apiKey := in.Roblosecurity, in.APIKey
	if useStore {
		creds, err := auth.NewManager(newCredentialStore()).Resolve(roblosecurity, apiKey)
		if err != nil {
			return nil, err
		}
		roblosecurity, apiKey = creds.Roblosecurity, creds.APIKey
	}

	client, err := api.NewClient(roblosecurity, api.Options{
		APIKey:    apiKey,
		Endpoints: in.Endpoints,
		Timeout:   in.Timeout,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}
	Debug("Request id: %s", client.RequestID())
	return client, nil
}

// isInteractive checks if we're running in an interactive terminal
func isInteractive() bool {
	fileInfo, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	// Check if stdin is a terminal (not a pipe or file)
	return fileInfo.Mode()&os.ModeCharDevice != 0
}

// startSpinner shows progress on an interactive terminal and returns the
// function that stops it
func startSpinner(suffix string) func() {
	if !interactive() || IsVerbose() {
		return func() {}
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(errOutput))
	s.Suffix = suffix
	s.Start()
	return s.Stop
}

// placeConfigureURL is the creator dashboard page of a place
func placeConfigureURL(experienceID, placeID int64) string {
	return fmt.Sprintf("https://create.roblox.com/dashboard/creations/experiences/%d/places/%d/configure", experienceID, placeID)
}

// openInBrowser opens url, falling back to printing it
func openInBrowser(url string) {
	if err := openURL(url); err != nil {
		Warn("Could not open browser: %v", err)
		Info("Open %s", url)
	}
}
