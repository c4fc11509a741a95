package cli

import (
	"fmt"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fastertools/placeops/internal/auth"
	"github.com/fastertools/placeops/internal/config"
)

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage stored credentials",
		Long: `Manage the credentials stored in the system keyring.

Stored credentials are used by the interactive subcommands when no
--roblosecurity or --api-key is given. 'placeops run' never reads them.`,
	}

	cmd.AddCommand(
		newAuthLoginCmd(),
		newAuthLogoutCmd(),
		newAuthStatusCmd(),
	)

	return cmd
}

func newAuthLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Store a session cookie and API key",
		Long: `Store a .ROBLOSECURITY session cookie and, optionally, an Open Cloud
API key in the system keyring.

Values come from --roblosecurity and --api-key, their environment
variables, or an interactive prompt.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuthLogin()
		},
	}
}

// Allow overriding for tests
var runAuthLogin = runAuthLoginImpl

func runAuthLoginImpl() error {
	cookie := strings.TrimSpace(viper.GetString(config.KeyRoblosecurity))
	apiKey := strings.TrimSpace(viper.GetString(config.KeyAPIKey))

	if cookie == "" {
		if !interactive() {
			return fmt.Errorf("no session cookie supplied. Pass --roblosecurity or set PLACEOPS_ROBLOSECURITY")
		}
		if err := askOne(&survey.Password{Message: ".ROBLOSECURITY cookie:"}, &cookie, survey.WithValidator(survey.Required)); err != nil {
			return fmt.Errorf("failed to read session cookie: %w", err)
		}
		if apiKey == "" {
			if err := askOne(&survey.Password{Message: "Open Cloud API key (optional):"}, &apiKey); err != nil {
				return fmt.Errorf("failed to read API key: %w", err)
			}
		}
	}

	creds, err := auth.NewManager(newCredentialStore()).Login(cookie, apiKey)
	if err != nil {
		return err
	}

	Success("Credentials saved to the system keyring")
	if !creds.HasAPIKey() {
		Warn("No API key stored; update and publish will need --api-key")
	}
	return nil
}

func newAuthLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove stored credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			manager := auth.NewManager(newCredentialStore())
			if !manager.Status().LoggedIn {
				Info("Not logged in")
				return nil
			}
			if err := manager.Logout(); err != nil {
				return fmt.Errorf("failed to remove credentials: %w", err)
			}
			Success("Logged out")
			return nil
		},
	}
}

func newAuthStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show what credentials are stored",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			status := auth.NewManager(newCredentialStore()).Status()
			if status.Error != nil {
				return fmt.Errorf("failed to read credentials: %w", status.Error)
			}
			if !status.LoggedIn {
				Info("Not logged in. Run 'placeops auth login'")
				return nil
			}

			Success("Logged in")
			kvb := NewKeyValueBuilder("Credentials")
			kvb.Add("Session cookie", "stored")
			if status.HasAPIKey {
				kvb.Add("API key", "stored")
			} else {
				kvb.Add("API key", "not stored")
			}
			kvb.AddIf(!status.SavedAt.IsZero(), "Saved", status.SavedAt.Local().Format("2006-01-02 15:04:05"))
			return kvb.Write(NewDataWriter(colorOutput, OutputFormatTable), status)
		},
	}
}
