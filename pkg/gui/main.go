package gui

import (
	"fmt"
	"time"

	"github.com/getlantern/systray"
	"github.com/sirupsen/logrus"

	"github.com/kcal-sh/kcal/pkg/api"
	"github.com/kcal-sh/kcal/pkg/client"
	"github.com/kcal-sh/kcal/pkg/permission"
	"github.com/kcal-sh/kcal/pkg/record"
)

const refreshInterval = 2 * time.Minute

type applet struct {
	api   *client.Client
	appID string

	// ready flips once the applet has initialized and holds the read
	// grant; both calls are idempotent so failed attempts just retry
	// on the next refresh.
	ready bool
}

func (a *applet) onReady() {
	systray.SetTitle("kcal ...")
	systray.SetTooltip("kcal - Active Calories")

	mStatus := systray.AddMenuItem("Status: Connecting...", "Connection to the kcal daemon")
	mStatus.Disable()

	mToday := systray.AddMenuItem("Today: -", "Active calories burned today")
	mToday.Disable()

	mWeek := systray.AddMenuItem("Last 7 days: -", "Active calories burned in the last 7 days")
	mWeek.Disable()

	systray.AddSeparator()
	mRefresh := systray.AddMenuItem("Refresh", "Fetch the latest records now")

	systray.AddSeparator()
	mQuit := systray.AddMenuItem("Quit", quitTooltip)

	go func() {
		refreshCh := make(chan struct{}, 1)

		go func() {
			for {
				select {
				case <-mRefresh.ClickedCh:
					requestRefresh(refreshCh)
				case <-mQuit.ClickedCh:
					systray.Quit()
					return
				}
			}
		}()

		go a.watchEvents(refreshCh)

		a.updateStatus(mStatus, mToday, mWeek)
		for {
			select {
			case <-refreshCh:
				a.updateStatus(mStatus, mToday, mWeek)
			case <-time.After(refreshInterval):
				a.updateStatus(mStatus, mToday, mWeek)
			}
		}
	}()
}

func onExit() {
	logrus.Info("kcal applet exiting")
}

// requestRefresh nudges the refresh channel without blocking; a nudge
// while a refresh is already queued is dropped.
func requestRefresh(refreshCh chan<- struct{}) {
	select {
	case refreshCh <- struct{}{}:
	default:
	}
}

// ensureReady initializes the applet with the daemon and asks for the
// read grant.
func (a *applet) ensureReady() error {
	if a.ready {
		return nil
	}

	resp, err := a.api.Initialize(a.appID)
	if err != nil {
		return err
	}
	if !resp.Initialized {
		return fmt.Errorf("the health service refused the applet: %s", resp.Reason)
	}

	readGrant := permission.Read(record.TypeActiveCaloriesBurned)
	granted, err := a.api.RequestPermissions(a.appID, []permission.Permission{readGrant})
	if err != nil {
		return err
	}
	if !permission.Granted(granted, readGrant) {
		return fmt.Errorf("the health service did not grant %s", readGrant)
	}

	a.ready = true
	return nil
}

func (a *applet) updateStatus(mStatus, mToday, mWeek *systray.MenuItem) {
	if err := a.ensureReady(); err != nil {
		systray.SetTitle("kcal offline")
		mStatus.SetTitle("Status: Disconnected")
		mToday.SetTitle("Today: -")
		mWeek.SetTitle("Last 7 days: -")
		logrus.WithError(err).Debug("cannot reach the kcal daemon")
		return
	}

	end := time.Now()
	start := end.Add(-7 * 24 * time.Hour)
	records, err := a.api.ReadRecords(a.appID, record.TypeActiveCaloriesBurned, api.Between(start, end))
	if err != nil {
		systray.SetTitle("kcal offline")
		mStatus.SetTitle("Status: Disconnected")
		logrus.WithError(err).Debug("failed to read records")
		return
	}

	var todayTotal, weekTotal float64
	midnight := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, end.Location())
	for _, r := range records {
		weekTotal += r.Energy.Kilocalories
		if r.EndTime.After(midnight) {
			todayTotal += r.Energy.Kilocalories
		}
	}

	systray.SetTitle(fmt.Sprintf("%.0f kcal", todayTotal))
	mStatus.SetTitle("Status: Connected")
	mToday.SetTitle("Today: " + record.FormatKilocalories(record.EnergyFromKilocalories(todayTotal)))
	mWeek.SetTitle(fmt.Sprintf("Last 7 days: %s in %d sessions",
		record.FormatKilocalories(record.EnergyFromKilocalories(weekTotal)), len(records)))
}
