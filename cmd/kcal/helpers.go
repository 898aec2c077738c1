package main

import (
	"fmt"

	"github.com/kcal-sh/kcal/pkg/permission"
	"github.com/kcal-sh/kcal/pkg/version"
)

// getVersion returns the client version and the daemon version. The
// client version is always valid, even if the daemon is unreachable.
func getVersion() (string, string, error) {
	daemonVersion, err := apiClient.GetVersion()
	if err != nil {
		return version.Version, "", err
	}
	return version.Version, daemonVersion, nil
}

// ensureAppReady registers the app with the health service and makes
// sure the given permissions are granted. Every record operation goes
// through this first, the same handshake the interactive screen does.
func ensureAppReady(perms ...permission.Permission) error {
	resp, err := apiClient.Initialize(appID)
	if err != nil {
		return fmt.Errorf("failed to initialize app %q: %w", appID, err)
	}
	if !resp.Initialized {
		if resp.Reason != "" {
			return fmt.Errorf("health service refused app %q: %s", appID, resp.Reason)
		}
		return fmt.Errorf("health service refused app %q", appID)
	}

	granted, err := apiClient.RequestPermissions(appID, perms)
	if err != nil {
		return fmt.Errorf("failed to request permissions: %w", err)
	}
	if !permission.GrantedAll(granted, perms) {
		return fmt.Errorf("app %q is missing permissions: wanted %v, granted %v. An administrator can grant them with 'kcal permissions grant'", appID, perms, granted)
	}

	return nil
}
