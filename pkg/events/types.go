package events

import "encoding/json"

// Event name constants
const (
	RecordsChanged     = "records.changed"
	PermissionsChanged = "permissions.changed"
)

// Event is a generic SSE event from daemon.
type Event struct {
	Name string          // SSE event name
	Data json.RawMessage // Raw JSON payload
}

// RecordsChangedEvent is the typed payload for records.changed. It
// tells subscribers that records of one type were added or removed,
// not which ones; interested parties re-query.
type RecordsChangedEvent struct {
	RecordType string `json:"recordType"`
	Count      int    `json:"count"`
	Origin     string `json:"origin,omitempty"`
	Ts         int64  `json:"ts"`
}

// PermissionsChangedEvent is the typed payload for permissions.changed.
type PermissionsChangedEvent struct {
	AppID string `json:"appId"`
	Ts    int64  `json:"ts"`
}

// DecodeAs decodes the event payload into the caller-specified generic type T.
// It ignores the event name and simply unmarshals Data into T. If Data is empty,
// it returns the zero value of T with a nil error.
//
// Example:
//
//	payload, err := events.DecodeAs[events.RecordsChangedEvent](ev)
//	if err != nil { /* handle */ }
//	fmt.Println(payload.RecordType, payload.Count)
func DecodeAs[T any](e Event) (T, error) {
	var zero T
	if len(e.Data) == 0 {
		return zero, nil
	}
	var v T
	if err := json.Unmarshal(e.Data, &v); err != nil {
		return zero, err
	}
	return v, nil
}
