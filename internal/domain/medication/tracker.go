package medication

// ToggleDose flips the taken flag of one dose. An unknown id or an index
// outside the dose schedule leaves the collection unchanged.
func ToggleDose(id string, index int, meds []Medication) ([]Medication, error) {
	for i, m := range meds {
		if m.ID != id {
			continue
		}
		if index < 0 || index >= len(m.TakenToday) {
			return meds, ErrDoseOutOfRange
		}
		out := Clone(meds)
		out[i].TakenToday[index] = !out[i].TakenToday[index]
		return out, nil
	}
	return meds, ErrMedicationNotFound
}

// PendingCount returns how many scheduled medications still have an untaken
// dose today.
func PendingCount(meds []Medication) int {
	n := 0
	for _, m := range meds {
		if m.Pending() {
			n++
		}
	}
	return n
}

// Find returns the medication with the given id.
func Find(id string, meds []Medication) (Medication, bool) {
	for _, m := range meds {
		if m.ID == id {
			return m.clone(), true
		}
	}
	return Medication{}, false
}
