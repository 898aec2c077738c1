// Package api defines the request and response shapes of the kcal
// daemon HTTP API, shared by the daemon and its clients. Field casing
// follows the health-platform wire convention (camelCase).
package api

import (
	"time"

	"github.com/kcal-sh/kcal/pkg/permission"
	"github.com/kcal-sh/kcal/pkg/record"
)

// OperatorBetween is the only time-range operator the platform
// supports.
const OperatorBetween = "between"

// InitializeRequest registers an app with the platform.
type InitializeRequest struct {
	AppID string `json:"appId"`
}

// InitializeResponse reports whether the platform accepted the app.
// When Initialized is false, Reason explains why in a form suitable
// for showing to the user.
type InitializeResponse struct {
	Initialized bool   `json:"initialized"`
	Reason      string `json:"reason,omitempty"`
}

// PermissionRequest asks the platform for permissions on behalf of an
// app. The same shape serves the admin grant and revoke endpoints.
type PermissionRequest struct {
	AppID       string                  `json:"appId"`
	Permissions []permission.Permission `json:"permissions"`
}

// PermissionResponse carries the app's full granted set after the
// request was applied. Callers decide for themselves whether the set
// covers what they asked for.
type PermissionResponse struct {
	Granted []permission.Permission `json:"granted"`
}

// TimeRangeFilter bounds a record query. Operator is always
// OperatorBetween; the timestamps are RFC 3339.
type TimeRangeFilter struct {
	Operator  string `json:"operator"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

// Between builds the standard between filter from two instants.
func Between(start, end time.Time) TimeRangeFilter {
	return TimeRangeFilter{
		Operator:  OperatorBetween,
		StartTime: start.Format(time.RFC3339),
		EndTime:   end.Format(time.RFC3339),
	}
}

// QueryRequest asks for records of one type within a time range.
type QueryRequest struct {
	AppID      string          `json:"appId"`
	RecordType string          `json:"recordType"`
	TimeRange  TimeRangeFilter `json:"timeRangeFilter"`
}

// RecordsResponse carries query results in platform order.
type RecordsResponse struct {
	Records []record.WireRecord `json:"records"`
}

// ImportRequest appends records of one type on behalf of an app. The
// platform stores them as sent, stamping only the bookkeeping it owns.
type ImportRequest struct {
	AppID      string              `json:"appId"`
	RecordType string              `json:"recordType"`
	Records    []record.WireRecord `json:"records"`
}

// ImportResponse reports how many records were stored.
type ImportResponse struct {
	Imported int `json:"imported"`
}
