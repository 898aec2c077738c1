package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kcal-sh/kcal/pkg/api"
	"github.com/kcal-sh/kcal/pkg/permission"
	"github.com/kcal-sh/kcal/pkg/record"
)

// fakePlatform scripts the three platform calls and counts them.
type fakePlatform struct {
	initResp api.InitializeResponse
	initErr  error
	granted  []permission.Permission
	permErr  error
	records  []record.CalorieRecord
	readErr  error

	initCalls int
	permCalls int
	readCalls int
	lastRange api.TimeRangeFilter
}

func (f *fakePlatform) Initialize(appID string) (*api.InitializeResponse, error) {
	f.initCalls++
	if f.initErr != nil {
		return nil, f.initErr
	}
	resp := f.initResp
	return &resp, nil
}

func (f *fakePlatform) RequestPermissions(appID string, perms []permission.Permission) ([]permission.Permission, error) {
	f.permCalls++
	if f.permErr != nil {
		return nil, f.permErr
	}
	return f.granted, nil
}

func (f *fakePlatform) ReadRecords(appID, recordType string, tr api.TimeRangeFilter) ([]record.CalorieRecord, error) {
	f.readCalls++
	f.lastRange = tr
	if f.readErr != nil {
		return nil, f.readErr
	}
	return f.records, nil
}

func date(y int, mo time.Month, d, h, min int) time.Time {
	return time.Date(y, mo, d, h, min, 0, 0, time.UTC)
}

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}

// deniedModel walks a model through a successful initialize and a
// permission request that grants nothing.
func deniedModel(t *testing.T, fake *fakePlatform) Model {
	t.Helper()

	fake.initResp = api.InitializeResponse{Initialized: true}
	m := New(fake, "sh.kcal.test")

	cmd := m.setup.BeginInitialize()
	updated, chained := m.Update(cmd())
	if chained == nil {
		t.Fatalf("expected initialize success to chain into permission evaluation")
	}
	updated, _ = updated.(Model).Update(chained())
	return updated.(Model)
}

func TestInitializeFailureMakesNoPermissionCall(t *testing.T) {
	fake := &fakePlatform{
		initResp: api.InitializeResponse{Initialized: false, Reason: "service closed"},
	}
	m := New(fake, "sh.kcal.test")

	cmd := m.setup.BeginInitialize()
	updated, chained := m.Update(cmd())
	um := updated.(Model)

	if um.setup.State() != StateInitFailed {
		t.Fatalf("expected StateInitFailed, got %v", um.setup.State())
	}
	if chained != nil {
		t.Fatalf("expected no chained command after a failed initialize")
	}
	if fake.permCalls != 0 {
		t.Fatalf("expected no permission call after failed initialize, got %d", fake.permCalls)
	}

	view := um.View()
	if !strings.Contains(view, "service closed") {
		t.Fatalf("expected the failure reason in the view, got %q", view)
	}
	if !strings.Contains(view, "[ Initialize ]") {
		t.Fatalf("expected the retry button, got %q", view)
	}
}

func TestInitializeRetryReinvokes(t *testing.T) {
	fake := &fakePlatform{
		initResp: api.InitializeResponse{Initialized: false, Reason: "service closed"},
	}
	m := New(fake, "sh.kcal.test")

	cmd := m.setup.BeginInitialize()
	updated, _ := m.Update(cmd())

	_, retryCmd := updated.(Model).Update(keyMsg("enter"))
	if retryCmd == nil {
		t.Fatalf("expected enter to re-invoke initialize")
	}
	retryCmd()

	if fake.initCalls != 2 {
		t.Fatalf("expected 2 initialize calls, got %d", fake.initCalls)
	}
}

func TestInitializeErrorIsDisplayed(t *testing.T) {
	fake := &fakePlatform{initErr: errTest("no socket")}
	m := New(fake, "sh.kcal.test")

	cmd := m.setup.BeginInitialize()
	updated, _ := m.Update(cmd())
	um := updated.(Model)

	if um.setup.State() != StateInitFailed {
		t.Fatalf("expected StateInitFailed, got %v", um.setup.State())
	}
	if !strings.Contains(um.View(), "no socket") {
		t.Fatalf("expected the error text in the view")
	}
}

func TestPermissionDeniedShowsConfirm(t *testing.T) {
	fake := &fakePlatform{}
	m := deniedModel(t, fake)

	if m.setup.State() != StatePermissionDenied {
		t.Fatalf("expected StatePermissionDenied, got %v", m.setup.State())
	}

	view := m.View()
	if !strings.Contains(view, "Try requesting it again?") {
		t.Fatalf("expected the retry confirm, got %q", view)
	}
	if strings.Contains(view, "Last 7 days") {
		t.Fatalf("ready screen must not show without permission")
	}
}

func TestPermissionDeniedRetry(t *testing.T) {
	fake := &fakePlatform{}
	m := deniedModel(t, fake)

	_, retryCmd := m.Update(keyMsg("y"))
	if retryCmd == nil {
		t.Fatalf("expected y to re-request permissions")
	}
	retryCmd()

	if fake.permCalls != 2 {
		t.Fatalf("expected 2 permission calls, got %d", fake.permCalls)
	}
}

func TestPermissionDeniedDismiss(t *testing.T) {
	fake := &fakePlatform{}
	m := deniedModel(t, fake)

	updated, _ := m.Update(keyMsg("n"))
	um := updated.(Model)

	view := um.View()
	if !strings.Contains(view, "[ Grant Permissions ]") {
		t.Fatalf("expected the grant button after dismissing, got %q", view)
	}
	if strings.Contains(view, "[ Initialize ]") {
		t.Fatalf("initialize button must not show once initialized")
	}

	// The single action now re-requests permissions.
	_, cmd := um.Update(keyMsg("enter"))
	if cmd == nil {
		t.Fatalf("expected enter to request permissions")
	}
	cmd()
	if fake.permCalls != 2 {
		t.Fatalf("expected 2 permission calls, got %d", fake.permCalls)
	}
}

func TestPermissionGrantedAutoFetch(t *testing.T) {
	fake := &fakePlatform{
		initResp: api.InitializeResponse{Initialized: true},
		granted:  []permission.Permission{permission.Read(record.TypeActiveCaloriesBurned)},
		records: []record.CalorieRecord{{
			StartTime: date(2024, 1, 7, 9, 0),
			EndTime:   date(2024, 1, 7, 9, 45),
			Energy:    record.EnergyFromKilocalories(320.5),
			Metadata:  record.Metadata{ID: "r1", DataOrigin: "sh.kcal.watch"},
		}},
	}
	m := New(fake, "sh.kcal.test")

	cmd := m.setup.BeginInitialize()
	updated, chained := m.Update(cmd())
	updated, fetchCmd := updated.(Model).Update(chained())
	um := updated.(Model)

	if !um.setup.Ready() {
		t.Fatalf("expected setup to be ready")
	}
	if fetchCmd == nil {
		t.Fatalf("expected an automatic fetch once setup completed")
	}

	updated, _ = um.Update(fetchCmd())
	um = updated.(Model)

	if fake.readCalls != 1 {
		t.Fatalf("expected 1 read call, got %d", fake.readCalls)
	}

	view := um.View()
	for _, want := range []string{"Last 7 days", "320.5 kcal", "1340.97 kJ", "9:00AM - 9:45AM", "sh.kcal.watch"} {
		if !strings.Contains(view, want) {
			t.Fatalf("expected %q in the ready view, got %q", want, view)
		}
	}
}

func TestGrantedSetExactMatch(t *testing.T) {
	cases := []struct {
		name    string
		granted []permission.Permission
		want    bool
	}{
		{"exact read grant", []permission.Permission{permission.Read(record.TypeActiveCaloriesBurned)}, true},
		{"write only", []permission.Permission{permission.Write(record.TypeActiveCaloriesBurned)}, false},
		{"other record type", []permission.Permission{permission.Read("Steps")}, false},
		{"empty set", nil, false},
		{"grant among others", []permission.Permission{
			permission.Write("Steps"),
			permission.Read(record.TypeActiveCaloriesBurned),
		}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := NewSetupController(&fakePlatform{}, "sh.kcal.test")
			s.isInitialized = true
			s.ApplyPermissions(permissionDoneMsg{granted: tc.granted})

			if s.HasPermissions() != tc.want {
				t.Fatalf("hasPermissions = %v, want %v for %v", s.HasPermissions(), tc.want, tc.granted)
			}
		})
	}
}

func TestPermissionCallErrorIsDisplayed(t *testing.T) {
	fake := &fakePlatform{
		initResp: api.InitializeResponse{Initialized: true},
		permErr:  errTest("request refused"),
	}
	m := New(fake, "sh.kcal.test")

	cmd := m.setup.BeginInitialize()
	updated, chained := m.Update(cmd())
	updated, _ = updated.(Model).Update(chained())
	um := updated.(Model)

	if um.setup.State() != StateNoPermission {
		t.Fatalf("expected StateNoPermission, got %v", um.setup.State())
	}

	view := um.View()
	if !strings.Contains(view, "request refused") {
		t.Fatalf("expected the error text in the view, got %q", view)
	}
	if !strings.Contains(view, "[ Grant Permissions ]") {
		t.Fatalf("expected the grant button, got %q", view)
	}
}

type errTest string

func (e errTest) Error() string { return string(e) }
