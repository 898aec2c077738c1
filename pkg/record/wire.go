package record

import (
	"fmt"
	"time"

	pkgerrors "github.com/pkg/errors"
)

// WireRecord is a record as the platform sends and receives it:
// timestamps as RFC 3339 strings, energy units optional, metadata
// fields optional. It deliberately carries no behavior. Clients decode
// it into a CalorieRecord before doing anything else with it.
type WireRecord struct {
	StartTime string       `json:"startTime" yaml:"startTime"`
	EndTime   string       `json:"endTime" yaml:"endTime"`
	Energy    WireEnergy   `json:"energy" yaml:"energy"`
	Metadata  WireMetadata `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// WireEnergy carries whichever energy units the sender included.
// Writers may send any subset; the platform canonicalizes to
// kilocalories and serves the full quadruple back.
type WireEnergy struct {
	Calories     *float64 `json:"calories,omitempty" yaml:"calories,omitempty"`
	Joules       *float64 `json:"joules,omitempty" yaml:"joules,omitempty"`
	Kilojoules   *float64 `json:"kilojoules,omitempty" yaml:"kilojoules,omitempty"`
	Kilocalories *float64 `json:"kilocalories,omitempty" yaml:"kilocalories,omitempty"`
}

// WireMetadata mirrors Metadata with every field optional.
type WireMetadata struct {
	ID               string `json:"id,omitempty" yaml:"id,omitempty"`
	LastModifiedTime string `json:"lastModifiedTime,omitempty" yaml:"lastModifiedTime,omitempty"`
	DataOrigin       string `json:"dataOrigin,omitempty" yaml:"dataOrigin,omitempty"`
}

// DecodeError describes a wire record that does not match the record
// schema. Callers can pick it out of an error chain with errors.As to
// distinguish malformed data from transport failures.
type DecodeError struct {
	Field  string
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("malformed record: %s: %s", e.Field, e.Reason)
}

// Decode validates a wire record and converts it into a CalorieRecord.
// Timestamps must be RFC 3339 and ordered, and at least one energy
// unit must be present and non-negative. A missing metadata id decodes
// to the empty string; other metadata passes through untouched. Any
// schema mismatch returns a *DecodeError.
func Decode(w WireRecord) (CalorieRecord, error) {
	start, err := parseWireTime("startTime", w.StartTime)
	if err != nil {
		return CalorieRecord{}, err
	}
	end, err := parseWireTime("endTime", w.EndTime)
	if err != nil {
		return CalorieRecord{}, err
	}
	if start.After(end) {
		return CalorieRecord{}, &DecodeError{Field: "startTime", Reason: "after endTime"}
	}

	kcal, err := canonicalKilocalories(w.Energy)
	if err != nil {
		return CalorieRecord{}, err
	}
	if kcal < 0 {
		return CalorieRecord{}, &DecodeError{Field: "energy", Reason: "negative"}
	}

	return CalorieRecord{
		StartTime: start,
		EndTime:   end,
		Energy:    EnergyFromKilocalories(kcal),
		Metadata: Metadata{
			ID:               w.Metadata.ID,
			LastModifiedTime: w.Metadata.LastModifiedTime,
			DataOrigin:       w.Metadata.DataOrigin,
		},
	}, nil
}

// DecodeAll decodes wire records in order, failing on the first
// malformed one. Order is preserved exactly as the platform sent it.
func DecodeAll(ws []WireRecord) ([]CalorieRecord, error) {
	rs := make([]CalorieRecord, 0, len(ws))
	for i, w := range ws {
		r, err := Decode(w)
		if err != nil {
			return nil, pkgerrors.Wrapf(err, "record %d", i)
		}
		rs = append(rs, r)
	}
	return rs, nil
}

func parseWireTime(field, v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, &DecodeError{Field: field, Reason: "missing"}
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, &DecodeError{Field: field, Reason: "not a valid RFC 3339 timestamp"}
	}
	return t, nil
}

// canonicalKilocalories picks the canonical value out of whichever
// units the sender included. Preference order is kilocalories,
// calories, kilojoules, joules.
func canonicalKilocalories(e WireEnergy) (float64, error) {
	switch {
	case e.Kilocalories != nil:
		return *e.Kilocalories, nil
	case e.Calories != nil:
		return *e.Calories / caloriesPerKilocalorie, nil
	case e.Kilojoules != nil:
		return *e.Kilojoules * 1000 / joulesPerKilocalorie, nil
	case e.Joules != nil:
		return *e.Joules / joulesPerKilocalorie, nil
	}
	return 0, &DecodeError{Field: "energy", Reason: "missing"}
}
