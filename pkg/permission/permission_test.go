package permission

import "testing"

func TestGrantedExactMatch(t *testing.T) {
	read := Read("ActiveCaloriesBurned")

	tests := []struct {
		name    string
		granted []Permission
		want    bool
	}{
		{"empty set", nil, false},
		{"exact match", []Permission{read}, true},
		{"write does not imply read", []Permission{Write("ActiveCaloriesBurned")}, false},
		{"different record type", []Permission{Read("HeartRate")}, false},
		{"present among others", []Permission{Write("HeartRate"), read, Write("ActiveCaloriesBurned")}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Granted(tt.granted, read); got != tt.want {
				t.Errorf("Granted() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGrantedAll(t *testing.T) {
	granted := []Permission{Read("ActiveCaloriesBurned"), Write("ActiveCaloriesBurned")}

	if !GrantedAll(granted, []Permission{Read("ActiveCaloriesBurned")}) {
		t.Errorf("subset should be granted")
	}
	if !GrantedAll(granted, nil) {
		t.Errorf("empty wanted set is trivially granted")
	}
	if GrantedAll(granted, []Permission{Read("HeartRate")}) {
		t.Errorf("missing permission should fail the whole set")
	}
}

func TestValid(t *testing.T) {
	tests := []struct {
		p    Permission
		want bool
	}{
		{Read("ActiveCaloriesBurned"), true},
		{Write("ActiveCaloriesBurned"), true},
		{Permission{AccessType: "delete", RecordType: "ActiveCaloriesBurned"}, false},
		{Permission{AccessType: AccessRead}, false},
		{Permission{}, false},
	}

	for _, tt := range tests {
		if got := tt.p.Valid(); got != tt.want {
			t.Errorf("Valid(%v) = %v, want %v", tt.p, got, tt.want)
		}
	}
}

func TestString(t *testing.T) {
	if got := Read("ActiveCaloriesBurned").String(); got != "read:ActiveCaloriesBurned" {
		t.Errorf("got %q, want read:ActiveCaloriesBurned", got)
	}
}
