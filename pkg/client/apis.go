package client

import (
	"encoding/json"
	"net/url"

	pkgerrors "github.com/pkg/errors"

	"github.com/kcal-sh/kcal/pkg/api"
	"github.com/kcal-sh/kcal/pkg/config"
	"github.com/kcal-sh/kcal/pkg/permission"
	"github.com/kcal-sh/kcal/pkg/record"
)

// Initialize registers the app with the health service. The response
// says whether the platform accepted the app; when it did not,
// Reason carries a user-presentable explanation.
func (c *Client) Initialize(appID string) (*api.InitializeResponse, error) {
	payload, err := json.Marshal(api.InitializeRequest{AppID: appID})
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to marshal initialize request")
	}

	ret, err := c.Post("/v1/initialize", string(payload))
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to initialize with the health service")
	}

	var resp api.InitializeResponse
	if err := json.Unmarshal([]byte(ret), &resp); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal initialize response")
	}
	return &resp, nil
}

// RequestPermissions asks the health service for the given permissions
// and returns the app's full granted set afterwards. The call is
// idempotent: permissions already granted are simply reported back.
func (c *Client) RequestPermissions(appID string, perms []permission.Permission) ([]permission.Permission, error) {
	payload, err := json.Marshal(api.PermissionRequest{AppID: appID, Permissions: perms})
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to marshal permission request")
	}

	ret, err := c.Post("/v1/permissions/request", string(payload))
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to request permissions")
	}

	var resp api.PermissionResponse
	if err := json.Unmarshal([]byte(ret), &resp); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal permission response")
	}
	return resp.Granted, nil
}

// ListPermissions returns the permissions currently granted to an app.
func (c *Client) ListPermissions(appID string) ([]permission.Permission, error) {
	ret, err := c.Get("/v1/permissions?appId=" + url.QueryEscape(appID))
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to list permissions")
	}

	var resp api.PermissionResponse
	if err := json.Unmarshal([]byte(ret), &resp); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal permission response")
	}
	return resp.Granted, nil
}

// GrantPermissions grants permissions to an app directly, bypassing
// the request policy. This is the management surface, not the app one.
func (c *Client) GrantPermissions(appID string, perms []permission.Permission) ([]permission.Permission, error) {
	payload, err := json.Marshal(api.PermissionRequest{AppID: appID, Permissions: perms})
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to marshal grant request")
	}

	ret, err := c.Post("/v1/permissions/grant", string(payload))
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to grant permissions")
	}

	var resp api.PermissionResponse
	if err := json.Unmarshal([]byte(ret), &resp); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal permission response")
	}
	return resp.Granted, nil
}

// RevokePermissions removes permissions from an app.
func (c *Client) RevokePermissions(appID string, perms []permission.Permission) ([]permission.Permission, error) {
	payload, err := json.Marshal(api.PermissionRequest{AppID: appID, Permissions: perms})
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to marshal revoke request")
	}

	ret, err := c.Post("/v1/permissions/revoke", string(payload))
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to revoke permissions")
	}

	var resp api.PermissionResponse
	if err := json.Unmarshal([]byte(ret), &resp); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal permission response")
	}
	return resp.Granted, nil
}

// ReadRecords queries records of one type within a time range and
// decodes them strictly. The slice preserves platform order. A
// malformed record fails the whole call with a *record.DecodeError in
// the chain.
func (c *Client) ReadRecords(appID, recordType string, tr api.TimeRangeFilter) ([]record.CalorieRecord, error) {
	payload, err := json.Marshal(api.QueryRequest{AppID: appID, RecordType: recordType, TimeRange: tr})
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to marshal query request")
	}

	ret, err := c.Post("/v1/records/query", string(payload))
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to read records")
	}

	var resp api.RecordsResponse
	if err := json.Unmarshal([]byte(ret), &resp); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal records response")
	}

	records, err := record.DecodeAll(resp.Records)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "health service returned malformed records")
	}
	return records, nil
}

// ImportRecords appends records of one type on behalf of the app and
// returns how many the platform stored. Records pass through as sent;
// the platform only stamps bookkeeping it owns.
func (c *Client) ImportRecords(appID, recordType string, ws []record.WireRecord) (int, error) {
	payload, err := json.Marshal(api.ImportRequest{AppID: appID, RecordType: recordType, Records: ws})
	if err != nil {
		return 0, pkgerrors.Wrapf(err, "failed to marshal import request")
	}

	ret, err := c.Post("/v1/records/import", string(payload))
	if err != nil {
		return 0, pkgerrors.Wrapf(err, "failed to import records")
	}

	var resp api.ImportResponse
	if err := json.Unmarshal([]byte(ret), &resp); err != nil {
		return 0, pkgerrors.Wrapf(err, "failed to unmarshal import response")
	}
	return resp.Imported, nil
}

// GetConfig fetches the daemon's current configuration.
func (c *Client) GetConfig() (*config.RawFileConfig, error) {
	ret, err := c.Get("/v1/config")
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to get config")
	}

	var conf config.RawFileConfig
	if err := json.Unmarshal([]byte(ret), &conf); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal config")
	}

	return &conf, nil
}

// GetVersion fetches the daemon's version string.
func (c *Client) GetVersion() (string, error) {
	ret, err := c.Get("/v1/version")
	if err != nil {
		return "", pkgerrors.Wrapf(err, "failed to get version")
	}
	// Remove "" around JSON string. I don't want to use a JSON decoder just for this.
	ret = ret[1 : len(ret)-1] // remove the surrounding quotes
	return ret, nil
}
