package schedule

import (
	"sort"
	"time"

	"github.com/tbourn/medremind-core/internal/domain"
)

// DoseStatus classifies an expected dose.
type DoseStatus string

const (
	StatusUpcoming DoseStatus = "upcoming"
	StatusTaken    DoseStatus = "taken"
	StatusMissed   DoseStatus = "missed"
)

// ScheduledDose is an expected dose joined with its medication and status.
// DoseID names the ledger entry that satisfied the slot, if any.
type ScheduledDose struct {
	ExpectedDose
	Name   string     `json:"name"`
	Dosage string     `json:"dosage"`
	Color  string     `json:"color,omitempty"`
	Status DoseStatus `json:"status"`
	DoseID string     `json:"doseId,omitempty"`
}

// DailyStatus is the resolved schedule of one day.
type DailyStatus struct {
	Date           string          `json:"date"`
	Doses          []ScheduledDose `json:"doses"`
	CompletedDoses int             `json:"completedDoses"`
	TotalDoses     int             `json:"totalDoses"`
	Progress       float64         `json:"progress"`
}

// Options tunes Resolve.
type Options struct {
	// All includes medications with reminders disabled.
	All bool
}

// Resolve computes the status of every expected dose on date.
//
// For each medication, taken ledger entries on that date are sorted by
// timestamp and matched to slots in time order; each entry satisfies at most
// one slot and surplus entries are ignored. Skipped entries (Taken=false)
// satisfy nothing. An unsatisfied slot is missed once its instant is before
// now and upcoming otherwise. Entries for medications not in meds never
// contribute.
func Resolve(meds []domain.Medication, doses []domain.DoseHistory, date, now time.Time, opts Options) DailyStatus {
	taken := takenByMedication(doses, date)

	st := DailyStatus{Date: date.Format("2006-01-02"), Doses: []ScheduledDose{}}
	for _, m := range meds {
		if !opts.All && !m.ReminderEnabled {
			continue
		}
		entries := taken[m.ID]
		for i, e := range ExpectedDoses(m, date) {
			sd := ScheduledDose{
				ExpectedDose: e,
				Name:         m.Name,
				Dosage:       m.Dosage,
				Color:        m.Color,
			}
			switch {
			case i < len(entries):
				sd.Status = StatusTaken
				sd.DoseID = entries[i].ID
				st.CompletedDoses++
			case e.At.Before(now):
				sd.Status = StatusMissed
			default:
				sd.Status = StatusUpcoming
			}
			st.Doses = append(st.Doses, sd)
		}
	}
	st.TotalDoses = len(st.Doses)
	st.Progress = Progress(st.CompletedDoses, st.TotalDoses)
	return st
}

// Progress is completed/total clamped to [0,1]; 0 when total is 0.
func Progress(completed, total int) float64 {
	if total <= 0 || completed <= 0 {
		return 0
	}
	if completed >= total {
		return 1
	}
	return float64(completed) / float64(total)
}

func takenByMedication(doses []domain.DoseHistory, date time.Time) map[string][]domain.DoseHistory {
	out := make(map[string][]domain.DoseHistory)
	for _, d := range doses {
		if d.Taken && SameDay(d.Timestamp, date) {
			out[d.MedicationID] = append(out[d.MedicationID], d)
		}
	}
	for id := range out {
		entries := out[id]
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].Timestamp.Before(entries[j].Timestamp)
		})
	}
	return out
}
