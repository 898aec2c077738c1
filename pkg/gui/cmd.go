package gui

import (
	"context"
	"time"

	"github.com/getlantern/systray"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/kcal-sh/kcal/pkg/client"
	"github.com/kcal-sh/kcal/pkg/events"
	"github.com/kcal-sh/kcal/pkg/version"
)

func NewGUICommand(unixSocketPath string, groupID string, appID string) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "gui",
		Short:   "Start the kcal menu bar applet",
		GroupID: groupID,
		Long: `Start the kcal menu bar applet.

The applet shows today's active calories in the menu bar and refreshes
whenever the daemon reports new records.`,
		Run: func(_ *cobra.Command, _ []string) {
			Run(unixSocketPath, appID)
		},
	}

	return cmd
}

// Run starts the applet and blocks until it quits.
func Run(unixSocketPath, appID string) {
	logrus.WithField("version", version.Version).WithField("gitCommit", version.GitCommit).Info("kcal applet")

	a := &applet{api: client.New(unixSocketPath), appID: appID}
	systray.Run(a.onReady, onExit)
}

// watchEvents keeps an SSE subscription to the daemon and nudges a
// refresh whenever records change. Lost subscriptions are
// re-established after a pause.
func (a *applet) watchEvents(refreshCh chan<- struct{}) {
	for {
		ctx, cancel := context.WithCancel(context.Background())
		evCh, err := a.api.SubscribeEvents(ctx)
		if err != nil {
			cancel()
			logrus.WithError(err).Debug("failed to subscribe to daemon events")
			time.Sleep(30 * time.Second)
			continue
		}

		for ev := range evCh {
			logrus.WithFields(logrus.Fields{
				"event": ev.Name,
				"data":  string(ev.Data),
			}).Debug("new event")

			if ev.Name == events.RecordsChanged {
				requestRefresh(refreshCh)
			}
		}

		cancel()
		time.Sleep(5 * time.Second)
	}
}
