package tui

import (
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kcal-sh/kcal/pkg/api"
	"github.com/kcal-sh/kcal/pkg/record"
)

const lookbackDays = 7

var errNotReady = errors.New("the health client is not ready; finish initialization and permissions first")

// FetchController owns the record list shown on the ready screen. A
// fetch reads the fixed lookback window and replaces the list
// wholesale; there is no pagination, no merge and no cancellation. A
// result that arrives after a newer state change still gets applied,
// last resolved wins.
type FetchController struct {
	platform Platform
	appID    string

	records []record.CalorieRecord
	loading bool

	// now is swapped out in tests to pin the window.
	now func() time.Time
}

func NewFetchController(p Platform, appID string) *FetchController {
	return &FetchController{platform: p, appID: appID, now: time.Now}
}

func (f *FetchController) Records() []record.CalorieRecord { return f.records }
func (f *FetchController) Loading() bool                   { return f.loading }

// Window returns the 7-day lookback range ending at the current time.
func (f *FetchController) Window() api.TimeRangeFilter {
	end := f.now().UTC()
	start := end.Add(-lookbackDays * 24 * time.Hour)
	return api.Between(start, end)
}

// Begin starts a fetch. The state guard runs before anything is
// issued: when setup has not completed, no platform call is made and
// the returned command only raises the guard alert. Begin does not
// lock against itself; the refresh key is ignored while loading, but
// two overlapping fetches are otherwise legal.
func (f *FetchController) Begin(initialized, hasPermissions bool) tea.Cmd {
	if !initialized || !hasPermissions {
		return func() tea.Msg {
			return recordsMsg{err: errNotReady}
		}
	}

	f.loading = true
	window := f.Window()
	return func() tea.Msg {
		records, err := f.platform.ReadRecords(f.appID, record.TypeActiveCaloriesBurned, window)
		return recordsMsg{records: records, err: err}
	}
}

// Apply folds a fetch result into the list and returns the alert text
// to surface, empty when there is nothing to report. On failure the
// prior list stays untouched. The loading flag clears on every path.
func (f *FetchController) Apply(msg recordsMsg) string {
	f.loading = false

	if msg.err != nil {
		return msg.err.Error()
	}

	f.records = msg.records
	return ""
}
