package record

import (
	"errors"
	"math"
	"strings"
	"testing"
)

func f64(v float64) *float64 { return &v }

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func validWire() WireRecord {
	return WireRecord{
		StartTime: "2024-01-07T09:00:00Z",
		EndTime:   "2024-01-07T09:45:00Z",
		Energy:    WireEnergy{Kilocalories: f64(320.5)},
		Metadata: WireMetadata{
			ID:         "rec-1",
			DataOrigin: "sh.kcal.watch",
		},
	}
}

func TestDecode(t *testing.T) {
	r, err := Decode(validWire())
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}

	if got := r.StartTime.Format("2006-01-02T15:04:05Z"); got != "2024-01-07T09:00:00Z" {
		t.Errorf("got start %s, want 2024-01-07T09:00:00Z", got)
	}
	if !almostEqual(r.Energy.Kilocalories, 320.5) {
		t.Errorf("got %v kcal, want 320.5", r.Energy.Kilocalories)
	}
	if r.Metadata.ID != "rec-1" || r.Metadata.DataOrigin != "sh.kcal.watch" {
		t.Errorf("metadata not carried through: %+v", r.Metadata)
	}
}

func TestDecodeCanonicalUnitPreference(t *testing.T) {
	tests := []struct {
		name     string
		energy   WireEnergy
		wantKcal float64
	}{
		{"kilocalories win over everything", WireEnergy{Kilocalories: f64(2), Calories: f64(9000), Kilojoules: f64(9), Joules: f64(9)}, 2},
		{"calories next", WireEnergy{Calories: f64(1500), Kilojoules: f64(9), Joules: f64(9)}, 1.5},
		{"kilojoules next", WireEnergy{Kilojoules: f64(4.184), Joules: f64(9)}, 1},
		{"joules last", WireEnergy{Joules: f64(4184)}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := validWire()
			w.Energy = tt.energy

			r, err := Decode(w)
			if err != nil {
				t.Fatalf("Decode returned error: %v", err)
			}
			if !almostEqual(r.Energy.Kilocalories, tt.wantKcal) {
				t.Errorf("got %v kcal, want %v", r.Energy.Kilocalories, tt.wantKcal)
			}
		})
	}
}

func TestDecodeRejectsMalformed(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*WireRecord)
		wantField string
	}{
		{"missing startTime", func(w *WireRecord) { w.StartTime = "" }, "startTime"},
		{"malformed startTime", func(w *WireRecord) { w.StartTime = "yesterday" }, "startTime"},
		{"missing endTime", func(w *WireRecord) { w.EndTime = "" }, "endTime"},
		{"malformed endTime", func(w *WireRecord) { w.EndTime = "2024-13-90" }, "endTime"},
		{"startTime after endTime", func(w *WireRecord) { w.StartTime = "2024-01-07T10:00:00Z" }, "startTime"},
		{"missing energy", func(w *WireRecord) { w.Energy = WireEnergy{} }, "energy"},
		{"negative energy", func(w *WireRecord) { w.Energy = WireEnergy{Kilocalories: f64(-1)} }, "energy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := validWire()
			tt.mutate(&w)

			_, err := Decode(w)
			if err == nil {
				t.Fatalf("expected decode error")
			}
			var de *DecodeError
			if !errors.As(err, &de) {
				t.Fatalf("expected *DecodeError, got %T: %v", err, err)
			}
			if de.Field != tt.wantField {
				t.Errorf("got field %q, want %q", de.Field, tt.wantField)
			}
		})
	}
}

func TestDecodeMissingIDDefaultsToEmpty(t *testing.T) {
	w := validWire()
	w.Metadata = WireMetadata{}

	r, err := Decode(w)
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if r.Metadata.ID != "" {
		t.Errorf("got id %q, want empty", r.Metadata.ID)
	}
}

func TestDecodeAllPreservesOrderAndFailsFast(t *testing.T) {
	first := validWire()
	first.Metadata.ID = "a"
	second := validWire()
	second.Metadata.ID = "b"

	rs, err := DecodeAll([]WireRecord{first, second})
	if err != nil {
		t.Fatalf("DecodeAll returned error: %v", err)
	}
	if len(rs) != 2 || rs[0].Metadata.ID != "a" || rs[1].Metadata.ID != "b" {
		t.Fatalf("order not preserved: %+v", rs)
	}

	second.StartTime = "bad"
	_, err = DecodeAll([]WireRecord{first, second})
	if err == nil {
		t.Fatalf("expected error for malformed record")
	}
	if !strings.Contains(err.Error(), "record 1") {
		t.Errorf("error should name the failing index: %v", err)
	}
}

func TestEnergyFromKilocalories(t *testing.T) {
	e := EnergyFromKilocalories(320.5)

	if !almostEqual(e.Kilocalories, 320.5) {
		t.Errorf("got %v kcal", e.Kilocalories)
	}
	if !almostEqual(e.Calories, 320500) {
		t.Errorf("got %v cal, want 320500", e.Calories)
	}
	if !almostEqual(e.Joules, 1340972) {
		t.Errorf("got %v J, want 1340972", e.Joules)
	}
	if !almostEqual(e.Kilojoules, 1340.972) {
		t.Errorf("got %v kJ, want 1340.972", e.Kilojoules)
	}
}

func TestWireRoundTrip(t *testing.T) {
	r, err := Decode(validWire())
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}

	w := r.Wire()
	if w.StartTime != "2024-01-07T09:00:00Z" || w.EndTime != "2024-01-07T09:45:00Z" {
		t.Errorf("timestamps not rendered as RFC 3339: %+v", w)
	}
	if w.Energy.Kilocalories == nil || !almostEqual(*w.Energy.Kilocalories, 320.5) {
		t.Errorf("kilocalories missing from wire energy: %+v", w.Energy)
	}
	if w.Energy.Kilojoules == nil || !almostEqual(*w.Energy.Kilojoules, 1340.972) {
		t.Errorf("kilojoules missing from wire energy: %+v", w.Energy)
	}
	if w.Metadata.ID != "rec-1" {
		t.Errorf("got id %q, want rec-1", w.Metadata.ID)
	}
}
