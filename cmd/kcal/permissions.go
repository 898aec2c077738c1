package main

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/kcal-sh/kcal/pkg/permission"
	"github.com/kcal-sh/kcal/pkg/record"
)

func NewPermissionsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "permissions",
		Aliases: []string{"perms"},
		Short:   "Inspect or change what an app may access",
		GroupID: gAdvanced,
		Long: `Inspect or change what an app may access.

A permission pairs an access type (read or write) with a record type,
written as access:RecordType, e.g. read:ActiveCaloriesBurned. Grant and
revoke are management operations: they change grants directly, bypassing
the daemon's auto-grant policy. The app to act on comes from --app-id.`,
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List the permissions granted to an app",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				granted, err := apiClient.ListPermissions(appID)
				if err != nil {
					return fmt.Errorf("failed to list permissions: %w", err)
				}

				if len(granted) == 0 {
					cmd.Printf("App %s has no permissions.\n", appID)
					return nil
				}
				for _, p := range granted {
					cmd.Println(p)
				}

				return nil
			},
		},
		&cobra.Command{
			Use:   "grant [permission]...",
			Short: "Grant permissions to an app",
			Example: `  kcal permissions grant read:ActiveCaloriesBurned
  kcal permissions grant --app-id sh.kcal.watch write:ActiveCaloriesBurned`,
			Args: cobra.MinimumNArgs(1),
			RunE: func(_ *cobra.Command, args []string) error {
				perms, err := parsePermissionArgs(args)
				if err != nil {
					return err
				}

				granted, err := apiClient.GrantPermissions(appID, perms)
				if err != nil {
					return fmt.Errorf("failed to grant permissions: %w", err)
				}

				logrus.Infof("app %s now holds %d permissions", appID, len(granted))

				return nil
			},
		},
		&cobra.Command{
			Use:     "revoke [permission]...",
			Short:   "Revoke permissions from an app",
			Example: `  kcal permissions revoke read:ActiveCaloriesBurned`,
			Args:    cobra.MinimumNArgs(1),
			RunE: func(_ *cobra.Command, args []string) error {
				perms, err := parsePermissionArgs(args)
				if err != nil {
					return err
				}

				granted, err := apiClient.RevokePermissions(appID, perms)
				if err != nil {
					return fmt.Errorf("failed to revoke permissions: %w", err)
				}

				logrus.Infof("app %s now holds %d permissions", appID, len(granted))

				return nil
			},
		},
	)

	return cmd
}

// parsePermissionArgs parses access:RecordType arguments. A bare access
// type is shorthand for the ActiveCaloriesBurned record type.
func parsePermissionArgs(args []string) ([]permission.Permission, error) {
	perms := make([]permission.Permission, 0, len(args))
	for _, arg := range args {
		access, recordType, found := strings.Cut(arg, ":")
		if !found {
			recordType = record.TypeActiveCaloriesBurned
		}
		p := permission.Permission{
			AccessType: permission.AccessType(access),
			RecordType: recordType,
		}
		if !p.Valid() {
			return nil, fmt.Errorf("invalid permission %q, want access:RecordType, e.g. read:%s", arg, record.TypeActiveCaloriesBurned)
		}
		perms = append(perms, p)
	}
	return perms, nil
}
