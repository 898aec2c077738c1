package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kcal-sh/kcal/pkg/api"
	"github.com/kcal-sh/kcal/pkg/permission"
	"github.com/kcal-sh/kcal/pkg/record"
	"github.com/kcal-sh/kcal/pkg/tui"
	"github.com/kcal-sh/kcal/pkg/version"
)

func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("%s %s\n", version.Version, version.GitCommit)
		},
	}
}

func NewViewCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "view",
		Short:   "Browse your active calories in an interactive screen",
		GroupID: gBasic,
		Long: `Browse your active calories in an interactive screen.

The screen registers this app with the health service and asks for read
permission on ActiveCaloriesBurned, then shows the last 7 days of records.
Press r to refresh, esc to go back, q to quit.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return tui.Run(apiClient, appID)
		},
	}
}

func NewRecordsCommand() *cobra.Command {
	days := 7
	cmd := &cobra.Command{
		Use:     "records",
		Aliases: []string{"ls"},
		Short:   "List your active calorie records",
		GroupID: gBasic,
		Long: `List your active calorie records, oldest first.

Shows the last 7 days by default, the same window the interactive screen
uses. Use --days to widen or narrow the window.`,
		Example: `  # Records from the last 7 days
  kcal records

  # Records from the last month
  kcal records --days 30`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if days <= 0 {
				return fmt.Errorf("--days must be positive, got %d", days)
			}

			if err := ensureAppReady(permission.Read(record.TypeActiveCaloriesBurned)); err != nil {
				return err
			}

			end := time.Now().UTC()
			start := end.Add(-time.Duration(days) * 24 * time.Hour)
			records, err := apiClient.ReadRecords(appID, record.TypeActiveCaloriesBurned, api.Between(start, end))
			if err != nil {
				return fmt.Errorf("failed to read records: %w", err)
			}

			if len(records) == 0 {
				cmd.Printf("No activity recorded in the last %d days.\n", days)
				return nil
			}

			var total float64
			for _, r := range records {
				cmd.Printf("%s  %s  %s", record.FormatDate(r.StartTime), bold("%s", record.FormatKilocalories(r.Energy)), record.FormatTimeRange(r.StartTime, r.EndTime))
				if r.Metadata.DataOrigin != "" {
					cmd.Printf("  (%s)", r.Metadata.DataOrigin)
				}
				cmd.Println()
				total += r.Energy.Kilocalories
			}

			cmd.Println()
			cmd.Printf("Total: %s in %d sessions\n", bold("%s", record.FormatKilocalories(record.EnergyFromKilocalories(total))), len(records))

			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", days, "how many days to look back")

	return cmd
}
