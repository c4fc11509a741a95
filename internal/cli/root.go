package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/fastertools/placeops/internal/config"
	"github.com/fastertools/placeops/internal/logging"
)

var (
	// Version information
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"

	// Colors
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	infoColor    = color.New(color.FgCyan)
	warnColor    = color.New(color.FgYellow)

	// For testing - allows redirecting output
	colorOutput io.Writer = os.Stdout
	errOutput   io.Writer = os.Stderr

	// logger is rebuilt for every invocation from --log-level and --log-format
	logger = logging.NewDiscard()
)

// NewRootCmd builds the command tree
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "placeops",
		Short: "placeops - place lifecycle operations for CI pipelines",
		Long: `placeops creates, lists, deletes and publishes the places of an experience.

It authenticates with a .ROBLOSECURITY session cookie and, for updates and
publishing, an Open Cloud API key. Inside a GitHub Actions step use
'placeops run', which reads the step inputs and writes the step outputs.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setup(cmd, viper.GetViper())
		},
		Version: versionString(),
	}

	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "config file (default is ./placeops.yaml)")
	flags.BoolP("verbose", "v", false, "verbose output")
	flags.Bool("no-color", false, "disable colored output")
	flags.String("log-level", "info", "diagnostic log level (debug, info, warn, error)")
	flags.String("log-format", "text", "diagnostic log format (text, json)")
	flags.String("roblosecurity", "", "session cookie value (prefer PLACEOPS_ROBLOSECURITY)")
	flags.String("api-key", "", "Open Cloud API key (prefer PLACEOPS_API_KEY)")
	flags.String("experience-id", "", "experience (universe) id")
	flags.String("timeout", "", "HTTP timeout per request, e.g. 30s (default: none)")

	rootCmd.AddCommand(
		newRunCmd(),
		newCreateCmd(),
		newDeleteCmd(),
		newListCmd(),
		newGetCmd(),
		newUpdateCmd(),
		newPublishCmd(),
		newAuthCmd(),
		newConfigCmd(),
	)

	return rootCmd
}

// Execute runs the root command
func Execute() error {
	err := NewRootCmd().Execute()
	if err != nil {
		Error("%s", err)
	}
	return err
}

// SetVersion sets the version information
func SetVersion(v, c, b string) {
	version = v
	commit = c
	buildDate = b
}

func versionString() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate)
}

// setup binds flags, reads the config file and builds the logger
func setup(cmd *cobra.Command, v *viper.Viper) error {
	if err := bindFlags(cmd, v); err != nil {
		return err
	}
	if err := initConfig(v); err != nil {
		return err
	}

	if v.GetBool("no_color") || os.Getenv("GITHUB_ACTIONS") == "true" {
		color.NoColor = true
	}

	level, err := logging.ParseLevel(v.GetString("log_level"))
	if err != nil {
		return err
	}
	if v.GetBool("verbose") {
		level = slog.LevelDebug
	}
	format, err := logging.ParseFormat(v.GetString("log_format"))
	if err != nil {
		return err
	}

	logger = logging.New(logging.Config{
		Level:  level,
		Format: format,
		Output: errOutput,
		Secrets: []string{
			v.GetString(config.KeyRoblosecurity),
			v.GetString(config.KeyAPIKey),
		},
	})
	return nil
}

// bindFlags binds every flag visible to cmd under its input key. Binding
// happens per invocation because several commands share key names.
func bindFlags(cmd *cobra.Command, v *viper.Viper) error {
	var bindErr error
	bind := func(f *pflag.Flag) {
		if bindErr != nil {
			return
		}
		bindErr = v.BindPFlag(config.FlagKey(f.Name), f)
	}
	cmd.InheritedFlags().VisitAll(bind)
	cmd.Flags().VisitAll(bind)
	return bindErr
}

// initConfig reads in config file and ENV variables if set
func initConfig(v *viper.Viper) error {
	v.SetEnvPrefix(config.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	if err := config.BindEnv(v); err != nil {
		return err
	}

	cfgFile := v.GetString("config")
	if cfgFile == "" {
		found := config.DetectConfigFile(".")
		if found == nil {
			return nil
		}
		cfgFile = found.Path
	}

	project, err := config.LoadProjectFile(cfgFile)
	if err != nil {
		return err
	}
	if err := v.MergeConfigMap(project.Settings()); err != nil {
		return fmt.Errorf("failed to apply config file %s: %w", cfgFile, err)
	}
	Debug("Using config file: %s", cfgFile)
	return nil
}

// Helper functions for consistent output

// Success prints a success message
func Success(format string, args ...interface{}) {
	_, _ = fmt.Fprintln(colorOutput, successColor.Sprintf("✓ "+format, args...))
}

// Error prints an error message
func Error(format string, args ...interface{}) {
	_, _ = fmt.Fprintln(errOutput, errorColor.Sprintf("✗ "+format, args...))
}

// Info prints an info message
func Info(format string, args ...interface{}) {
	_, _ = fmt.Fprintln(colorOutput, infoColor.Sprintf("ℹ "+format, args...))
}

// Warn prints a warning message
func Warn(format string, args ...interface{}) {
	_, _ = fmt.Fprintln(errOutput, warnColor.Sprintf("⚠ "+format, args...))
}

// Debug prints a debug message if verbose mode is enabled
func Debug(format string, args ...interface{}) {
	if IsVerbose() {
		_, _ = fmt.Fprintln(errOutput, color.New(color.FgMagenta).Sprintf("» "+format, args...))
	}
}

// IsVerbose returns true if verbose mode is enabled
func IsVerbose() bool {
	return viper.GetBool("verbose")
}
