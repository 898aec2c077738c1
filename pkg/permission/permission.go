// Package permission defines the access grants the kcal platform
// understands. A grant pairs an access type (read or write) with a
// record type, e.g. read:ActiveCaloriesBurned. Apps hold zero or more
// grants; the daemon checks them on every record operation.
package permission

import "fmt"

// AccessType is the kind of access an app asks for on a record type.
type AccessType string

const (
	// AccessRead allows querying records of a type.
	AccessRead AccessType = "read"
	// AccessWrite allows importing records of a type.
	AccessWrite AccessType = "write"
)

// Permission is a single grantable capability.
type Permission struct {
	AccessType AccessType `json:"accessType"`
	RecordType string     `json:"recordType"`
}

// Read returns a read permission for the given record type.
func Read(recordType string) Permission {
	return Permission{AccessType: AccessRead, RecordType: recordType}
}

// Write returns a write permission for the given record type.
func Write(recordType string) Permission {
	return Permission{AccessType: AccessWrite, RecordType: recordType}
}

func (p Permission) String() string {
	return fmt.Sprintf("%s:%s", p.AccessType, p.RecordType)
}

// Valid reports whether the permission is well-formed.
func (p Permission) Valid() bool {
	if p.RecordType == "" {
		return false
	}
	return p.AccessType == AccessRead || p.AccessType == AccessWrite
}

// Granted reports whether want appears in the granted set. Matching is
// exact on both fields; a write grant never implies a read grant.
func Granted(granted []Permission, want Permission) bool {
	for _, p := range granted {
		if p == want {
			return true
		}
	}
	return false
}

// GrantedAll reports whether every wanted permission appears in the
// granted set.
func GrantedAll(granted, wanted []Permission) bool {
	for _, w := range wanted {
		if !Granted(granted, w) {
			return false
		}
	}
	return true
}
