package medication

import (
	"errors"
	"reflect"
	"testing"
)

func seedMedications() []Medication {
	return []Medication{
		{
			ID:           "1",
			Name:         "Amoxicillin",
			Dosage:       "500mg",
			Frequency:    "3x Daily",
			Time:         []string{"08:00", "14:00", "20:00"},
			Instructions: "Take with food",
			TakenToday:   []bool{true, false, false},
		},
		{
			ID:           "2",
			Name:         "Ibuprofen",
			Dosage:       "400mg",
			Frequency:    AsNeeded,
			Time:         []string{AsNeeded},
			Instructions: "For pain",
			TakenToday:   []bool{false},
		},
	}
}

func TestToggleDose(t *testing.T) {
	meds := seedMedications()
	out, err := ToggleDose("1", 1, meds)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out[0].TakenToday[1] {
		t.Error("expected dose 1 to be taken")
	}
	if meds[0].TakenToday[1] {
		t.Error("input collection was modified")
	}
	if len(out[0].TakenToday) != len(out[0].Time) {
		t.Error("taken flags no longer match the schedule")
	}
}

func TestToggleDose_TwiceRestores(t *testing.T) {
	for _, id := range []string{"1", "2"} {
		for idx := range seedMedications()[0].Time {
			meds := seedMedications()
			once, err := ToggleDose(id, idx, meds)
			if err != nil {
				if errors.Is(err, ErrDoseOutOfRange) {
					continue
				}
				t.Fatalf("unexpected error: %v", err)
			}
			twice, _ := ToggleDose(id, idx, once)
			if !reflect.DeepEqual(twice, seedMedications()) {
				t.Errorf("med %s dose %d: toggling twice did not restore state", id, idx)
			}
		}
	}
}

func TestToggleDose_Invalid(t *testing.T) {
	meds := seedMedications()
	tests := []struct {
		id    string
		index int
		want  error
	}{
		{"missing", 0, ErrMedicationNotFound},
		{"1", 3, ErrDoseOutOfRange},
		{"1", -1, ErrDoseOutOfRange},
	}
	for _, tt := range tests {
		out, err := ToggleDose(tt.id, tt.index, meds)
		if !errors.Is(err, tt.want) {
			t.Errorf("ToggleDose(%q, %d): expected %v, got %v", tt.id, tt.index, tt.want, err)
		}
		if !reflect.DeepEqual(out, seedMedications()) {
			t.Errorf("ToggleDose(%q, %d) changed the collection", tt.id, tt.index)
		}
	}
}

func TestPendingCount(t *testing.T) {
	meds := seedMedications()
	if got := PendingCount(meds); got != 1 {
		t.Errorf("expected 1 pending, got %d", got)
	}
	meds, _ = ToggleDose("1", 1, meds)
	meds, _ = ToggleDose("1", 2, meds)
	if got := PendingCount(meds); got != 0 {
		t.Errorf("expected 0 pending after all doses, got %d", got)
	}
}
