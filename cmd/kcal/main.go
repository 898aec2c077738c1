package main

import (
	"errors"
	"fmt"
	"os"
	"path"
	"runtime"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/kcal-sh/kcal/pkg/client"
	"github.com/kcal-sh/kcal/pkg/gui"
)

var (
	logLevel       = "info"
	unixSocketPath = "/var/run/kcald.sock"
	configPath     = "/etc/kcal.json"
	appID          = "sh.kcal.app"
)

// apiClient is set in PersistentPreRunE, after the --daemon-socket flag
// has been parsed. Commands must not touch it before that.
var apiClient *client.Client

var (
	gBasic        = "Basic:"
	gAdvanced     = "Advanced:"
	commandGroups = []string{
		gBasic,
		gAdvanced,
	}
)

func setupLogger() error {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("failed to parse log level: %v", err)
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{})
	if term.IsTerminal(int(os.Stderr.Fd())) {
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.Kitchen,
		})
	}

	return nil
}

func handleCmdError(err error) {
	if errors.Is(err, client.ErrDaemonNotRunning) {
		fmt.Fprintln(os.Stderr, "\nError: the kcal health service is not running")
		fmt.Fprintln(os.Stderr, "Is the daemon running? Start it with 'kcal daemon' or your service manager.")
	} else if errors.Is(err, client.ErrPermissionDenied) {
		fmt.Fprintln(os.Stderr, "\nError: Permission Denied")
		fmt.Fprintln(os.Stderr, "  - Try running the command again with 'sudo'")
		fmt.Fprintln(os.Stderr, "  - Or run the daemon with the '--always-allow-non-root-access' flag to grant access to your user")
	}
}

func main() {
	// Reduce the number of CPUs used by kcal.
	// kcal does not need to use much.
	if os.Getenv("GOMAXPROCS") == "" {
		runtime.GOMAXPROCS(2)
	}

	cmd := NewCommand()
	if err := cmd.Execute(); err != nil {
		handleCmdError(err)
		os.Exit(1)
	}
}

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kcal",
		Short: "kcal is a local health platform for your active calorie data",
		Long: `kcal is a local health platform for your active calorie data.

A privileged daemon owns the record store; apps register with it, ask for
permissions, and read or import records through a unix-socket API. This
command is both the daemon and its reference client.

Website: https://github.com/kcal-sh/kcal
Report issues: https://github.com/kcal-sh/kcal/issues`,
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			err := setupLogger()
			if err != nil {
				return err
			}

			apiClient = client.New(unixSocketPath)

			if clientVersion, daemonVersion, err := getVersion(); err == nil {
				if daemonVersion != clientVersion {
					logrus.WithFields(logrus.Fields{
						"clientVersion": clientVersion,
						"daemonVersion": daemonVersion,
					}).Warn("Version mismatch between client and daemon. kcal may not work as expected. You should upgrade both to the same version.")
				}
			} else {
				if errors.Is(err, client.ErrNotFound) {
					logrus.Error("kcal daemon is too old to report its version. You should upgrade both client and daemon to the same version.")
				}
			}

			return nil
		},
	}

	if os.Getenv("KCAL_RUN_APPLET") != "" || path.Base(os.Args[0]) == "kcal-applet" {
		cmd.Run = func(_ *cobra.Command, _ []string) {
			gui.Run(unixSocketPath, appID)
		}
	}

	globalFlags := cmd.PersistentFlags()
	globalFlags.StringVarP(&logLevel, "log-level", "l", "info", "log level (trace, debug, info, warn, error, fatal, panic)")
	globalFlags.StringVar(&configPath, "config", configPath, "config file path")
	globalFlags.StringVar(&unixSocketPath, "daemon-socket", unixSocketPath, "kcal daemon unix socket path")
	globalFlags.StringVar(&appID, "app-id", appID, "app identity to act as when talking to the daemon")

	for _, i := range commandGroups {
		cmd.AddGroup(&cobra.Group{
			ID:    i,
			Title: i,
		})
	}

	cmd.AddCommand(
		NewDaemonCommand(),
		NewVersionCommand(),
		NewViewCommand(),
		NewStatusCommand(),
		NewRecordsCommand(),
		NewImportCommand(),
		NewPermissionsCommand(),
		gui.NewGUICommand(unixSocketPath, "", appID),
	)

	return cmd
}
