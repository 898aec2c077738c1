package main

import (
	"encoding/json"
	"math"

	"github.com/spf13/cobra"

	"github.com/kcal-sh/kcal/pkg/config"
	"github.com/kcal-sh/kcal/pkg/permission"
	"github.com/kcal-sh/kcal/pkg/record"
)

type statusJSON struct {
	Daemon statusDaemonJSON `json:"daemon"`
	App    statusAppJSON    `json:"app"`
	// Activity is omitted when the app has no read grant.
	Activity      *statusActivityJSON `json:"activity,omitempty"`
	Configuration statusConfigJSON    `json:"configuration"`
}

type statusDaemonJSON struct {
	Version string `json:"version"`
	Socket  string `json:"socket"`
}

type statusAppJSON struct {
	ID          string   `json:"id"`
	Permissions []string `json:"permissions"`
}

type statusActivityJSON struct {
	WindowDays        int                 `json:"windowDays"`
	Sessions          int                 `json:"sessions"`
	TotalKilocalories float64             `json:"totalKilocalories"`
	Records           []record.WireRecord `json:"records"`
}

type statusConfigJSON struct {
	AcceptClients      bool             `json:"acceptClients"`
	AutoGrantReads     bool             `json:"autoGrantReads"`
	AutoGrantWrites    bool             `json:"autoGrantWrites"`
	AllowNonRootAccess bool             `json:"allowNonRootAccess"`
	RetentionDays      int              `json:"retentionDays"`
	SampleData         statusSampleJSON `json:"sampleData"`
}

type statusSampleJSON struct {
	Enabled  bool   `json:"enabled"`
	Schedule string `json:"schedule"`
}

func printStatusJSON(cmd *cobra.Command, data *statusData, cfg *config.File) error {
	perms := make([]string, 0, len(data.granted))
	for _, p := range data.granted {
		perms = append(perms, p.String())
	}

	out := statusJSON{
		Daemon: statusDaemonJSON{
			Version: data.daemonVersion,
			Socket:  unixSocketPath,
		},
		App: statusAppJSON{
			ID:          appID,
			Permissions: perms,
		},
		Configuration: statusConfigJSON{
			AcceptClients:      cfg.AcceptClients(),
			AutoGrantReads:     cfg.AutoGrantReads(),
			AutoGrantWrites:    cfg.AutoGrantWrites(),
			AllowNonRootAccess: cfg.AllowNonRootAccess(),
			RetentionDays:      cfg.RetentionDays(),
			SampleData: statusSampleJSON{
				Enabled:  cfg.SampleData(),
				Schedule: cfg.SampleDataSchedule(),
			},
		},
	}

	if permission.Granted(data.granted, permission.Read(record.TypeActiveCaloriesBurned)) {
		var total float64
		ws := make([]record.WireRecord, 0, len(data.records))
		for _, r := range data.records {
			total += r.Energy.Kilocalories
			ws = append(ws, r.Wire())
		}

		out.Activity = &statusActivityJSON{
			WindowDays:        statusWindowDays,
			Sessions:          len(data.records),
			TotalKilocalories: math.Round(total*10) / 10,
			Records:           ws,
		}
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
