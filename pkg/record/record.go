// Package record defines the health records the kcal platform stores
// and serves, together with their wire representation and the strict
// decode step clients apply at the platform boundary.
package record

import "time"

// TypeActiveCaloriesBurned is the record type for energy actively
// burned during exercise, excluding basal metabolic rate.
const TypeActiveCaloriesBurned = "ActiveCaloriesBurned"

const (
	caloriesPerKilocalorie = 1000
	joulesPerKilocalorie   = 4184
)

// Energy is one amount of energy rendered in four units. All four
// fields describe the same value: 1 kcal = 1000 cal = 4.184 kJ =
// 4184 J. The platform derives the quadruple from canonical
// kilocalories, so consumers can read whichever unit they want.
type Energy struct {
	Calories     float64 `json:"calories"`
	Joules       float64 `json:"joules"`
	Kilojoules   float64 `json:"kilojoules"`
	Kilocalories float64 `json:"kilocalories"`
}

// EnergyFromKilocalories builds a consistent Energy from a canonical
// kilocalorie value.
func EnergyFromKilocalories(kcal float64) Energy {
	return Energy{
		Calories:     kcal * caloriesPerKilocalorie,
		Joules:       kcal * joulesPerKilocalorie,
		Kilojoules:   kcal * joulesPerKilocalorie / 1000,
		Kilocalories: kcal,
	}
}

// Metadata is platform bookkeeping attached to a record. ID may be
// empty: the platform does not guarantee one on every record.
// LastModifiedTime and DataOrigin are opaque provenance strings, kept
// for display only.
type Metadata struct {
	ID               string `json:"id"`
	LastModifiedTime string `json:"lastModifiedTime"`
	DataOrigin       string `json:"dataOrigin"`
}

// CalorieRecord is a single ActiveCaloriesBurned sample: energy burned
// over the [StartTime, EndTime] interval. StartTime never exceeds
// EndTime; the decode step rejects records where it does.
type CalorieRecord struct {
	StartTime time.Time
	EndTime   time.Time
	Energy    Energy
	Metadata  Metadata
}

// Wire converts the record back into its wire shape, with timestamps
// rendered as RFC 3339.
func (r CalorieRecord) Wire() WireRecord {
	return WireRecord{
		StartTime: r.StartTime.Format(time.RFC3339),
		EndTime:   r.EndTime.Format(time.RFC3339),
		Energy: WireEnergy{
			Calories:     &r.Energy.Calories,
			Joules:       &r.Energy.Joules,
			Kilojoules:   &r.Energy.Kilojoules,
			Kilocalories: &r.Energy.Kilocalories,
		},
		Metadata: WireMetadata{
			ID:               r.Metadata.ID,
			LastModifiedTime: r.Metadata.LastModifiedTime,
			DataOrigin:       r.Metadata.DataOrigin,
		},
	}
}
