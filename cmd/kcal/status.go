package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kcal-sh/kcal/pkg/api"
	"github.com/kcal-sh/kcal/pkg/config"
	"github.com/kcal-sh/kcal/pkg/permission"
	"github.com/kcal-sh/kcal/pkg/record"
)

// statusWindowDays is the activity lookback, the same window the
// interactive screen shows.
const statusWindowDays = 7

type statusData struct {
	daemonVersion string
	granted       []permission.Permission
	records       []record.CalorieRecord
	config        *config.RawFileConfig
}

// fetchStatusData gathers all data required for the status command from
// the daemon. It never registers the app or requests permissions;
// status observes, it does not set up.
func fetchStatusData() (*statusData, error) {
	daemonVersion, err := apiClient.GetVersion()
	if err != nil {
		return nil, fmt.Errorf("failed to get daemon version: %w", err)
	}

	conf, err := apiClient.GetConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to get config: %w", err)
	}

	granted, err := apiClient.ListPermissions(appID)
	if err != nil {
		return nil, fmt.Errorf("failed to list permissions: %w", err)
	}

	var records []record.CalorieRecord
	if permission.Granted(granted, permission.Read(record.TypeActiveCaloriesBurned)) {
		end := time.Now().UTC()
		start := end.Add(-statusWindowDays * 24 * time.Hour)
		records, err = apiClient.ReadRecords(appID, record.TypeActiveCaloriesBurned, api.Between(start, end))
		if err != nil {
			return nil, fmt.Errorf("failed to read records: %w", err)
		}
	}

	return &statusData{
		daemonVersion: daemonVersion,
		granted:       granted,
		records:       records,
		config:        conf,
	}, nil
}

func NewStatusCommand() *cobra.Command {
	jsonOutput := false

	cmd := &cobra.Command{
		Use:     "status",
		GroupID: gBasic,
		Short:   "Get the current status of kcal",
		Long:    `Get the health service status, this app's permissions, recent activity, and service configuration.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Get various info first.
			data, err := fetchStatusData()
			if err != nil {
				return err
			}

			config := config.NewFileFromConfig(data.config, "")

			if jsonOutput {
				return printStatusJSON(cmd, data, config)
			}

			readGrant := permission.Granted(data.granted, permission.Read(record.TypeActiveCaloriesBurned))

			// Health service.
			cmd.Println(bold("Health service:"))
			cmd.Printf("  Version: %s\n", bold("%s", data.daemonVersion))
			cmd.Printf("  Socket: %s\n", unixSocketPath)
			cmd.Println("  Accepting new apps: " + bool2Text(config.AcceptClients()))

			cmd.Println()

			// App identity and grants.
			cmd.Println(bold("App:"))
			cmd.Printf("  ID: %s\n", bold("%s", appID))
			cmd.Println("  Can read active calories: " + bool2Text(readGrant))
			if len(data.granted) == 0 {
				cmd.Println("    No permissions granted yet. Run 'kcal view' or 'kcal records' to set up.")
			} else {
				for _, p := range data.granted {
					cmd.Printf("    %s\n", p)
				}
			}

			cmd.Println()

			// Recent activity.
			cmd.Printf("%s\n", bold("Activity (last %d days):", statusWindowDays))
			if !readGrant {
				cmd.Println("  Unavailable without the read permission.")
			} else if len(data.records) == 0 {
				cmd.Println("  No activity recorded.")
			} else {
				var total float64
				for _, r := range data.records {
					total += r.Energy.Kilocalories
				}
				latest := data.records[len(data.records)-1]
				cmd.Printf("  Sessions: %s\n", bold("%d", len(data.records)))
				cmd.Printf("  Total: %s\n", bold("%s", record.FormatKilocalories(record.EnergyFromKilocalories(total))))
				cmd.Printf("  Latest: %s, %s (%s)\n", record.FormatDate(latest.StartTime), record.FormatTimeRange(latest.StartTime, latest.EndTime), record.FormatKilocalories(latest.Energy))
			}

			cmd.Println()

			// Config.
			cmd.Println(bold("Service configuration:"))
			cmd.Printf("  Auto-grant read permissions: %s\n", bool2Text(config.AutoGrantReads()))
			cmd.Printf("  Auto-grant write permissions: %s\n", bool2Text(config.AutoGrantWrites()))
			cmd.Printf("  Allow non-root users to access the daemon: %s\n", bool2Text(config.AllowNonRootAccess()))
			cmd.Printf("  Keep records for: %s\n", bold("%d days", config.RetentionDays()))
			if config.SampleData() {
				cmd.Printf("  Sample data: %s (%s)\n", bool2Text(true), config.SampleDataSchedule())
			} else {
				cmd.Printf("  Sample data: %s\n", bool2Text(false))
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output status as JSON")

	return cmd
}

func bool2Text(b bool) string {
	if b {
		return color.New(color.Bold, color.FgGreen).Sprint("✔")
	}
	return color.New(color.Bold, color.FgRed).Sprint("✘")
}

func bold(format string, a ...interface{}) string {
	return color.New(color.Bold).Sprintf(format, a...)
}
