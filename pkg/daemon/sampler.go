package daemon

import (
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kcal-sh/kcal/pkg/events"
	"github.com/kcal-sh/kcal/pkg/record"
)

// SampleDataOrigin marks records produced by the built-in sampler.
const SampleDataOrigin = "sh.kcal.sampler"

// backfillDays is how far back the sampler fills an empty store.
const backfillDays = 7

var samplerRng = rand.New(rand.NewSource(time.Now().UnixNano()))

// sampleTask generates plausible ActiveCaloriesBurned records. On an
// empty store it backfills the past week so a fresh install has a full
// screen of data; after that every run appends a session or two.
func sampleTask() error {
	if !conf.SampleData() {
		return nil
	}

	existing, err := db.CountRecords(record.TypeActiveCaloriesBurned)
	if err != nil {
		return err
	}

	now := time.Now()
	var rs []record.CalorieRecord
	if existing == 0 {
		for d := backfillDays; d >= 1; d-- {
			day := now.AddDate(0, 0, -d)
			rs = append(rs, sampleSessions(samplerRng, day, 2+samplerRng.Intn(3))...)
		}
	} else {
		rs = sampleSessions(samplerRng, now, 1+samplerRng.Intn(2))
	}

	n, err := db.InsertRecords(record.TypeActiveCaloriesBurned, SampleDataOrigin, rs)
	if err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"count":    n,
		"backfill": existing == 0,
	}).Info("sampler generated records")

	hub.Publish(events.RecordsChanged, events.RecordsChangedEvent{
		RecordType: record.TypeActiveCaloriesBurned,
		Count:      n,
		Origin:     SampleDataOrigin,
		Ts:         time.Now().UnixMilli(),
	})

	return nil
}

// sampleSessions fabricates n workout sessions ending before anchor,
// spaced a few hours apart and sized like real workouts: 15 to 70
// minutes at 5 to 11 kcal per minute.
func sampleSessions(rng *rand.Rand, anchor time.Time, n int) []record.CalorieRecord {
	rs := make([]record.CalorieRecord, 0, n)
	end := anchor.Add(-time.Duration(rng.Intn(90)) * time.Minute)
	for i := 0; i < n; i++ {
		dur := time.Duration(15+rng.Intn(56)) * time.Minute
		start := end.Add(-dur)
		perMinute := 5 + rng.Float64()*6
		// One decimal place, like most fitness trackers report.
		kcal := float64(int(dur.Minutes()*perMinute*10)) / 10
		rs = append(rs, record.CalorieRecord{
			StartTime: start,
			EndTime:   end,
			Energy:    record.EnergyFromKilocalories(kcal),
			Metadata: record.Metadata{
				DataOrigin: SampleDataOrigin,
			},
		})
		end = start.Add(-time.Duration(2+rng.Intn(6)) * time.Hour)
	}
	return rs
}

// retentionTask deletes records that ended before the configured
// retention window.
func retentionTask() error {
	days := conf.RetentionDays()
	if days <= 0 {
		return nil
	}

	cutoff := time.Now().AddDate(0, 0, -days)
	n, err := db.DeleteOlderThan(cutoff)
	if err != nil {
		return err
	}
	if n == 0 {
		return nil
	}

	logrus.WithFields(logrus.Fields{
		"deleted": n,
		"cutoff":  cutoff.Format(time.RFC3339),
	}).Info("retention sweep removed old records")

	hub.Publish(events.RecordsChanged, events.RecordsChangedEvent{
		RecordType: record.TypeActiveCaloriesBurned,
		Count:      int(n),
		Ts:         time.Now().UnixMilli(),
	})

	return nil
}
