package enrollment

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

const (
	// DefaultApplicationFee is the one-time application fee in whole Kenyan
	// shillings.
	DefaultApplicationFee = 5000

	// DefaultCurrency is the currency of all published fees.
	DefaultCurrency = "KES"
)

// FeeBand is one row of the published fee schedule.
type FeeBand struct {
	// Stage is the Cambridge key stage ("Key Stage 4 (IGCSE)").
	Stage string

	// Year is the year group ("Year 11").
	Year string

	// Fee is the tuition fee per term in whole Kenyan shillings.
	Fee int
}

// FeeSchedule returns the published per-term tuition schedule for the 2025
// academic year, in year order.
func FeeSchedule() []FeeBand {
	return []FeeBand{
		{Stage: "Key Stage 1 (Primary)", Year: "Year 1", Fee: 55000},
		{Stage: "Key Stage 1 (Primary)", Year: "Year 2", Fee: 55000},
		{Stage: "Key Stage 2 (Primary)", Year: "Year 3", Fee: 59000},
		{Stage: "Key Stage 2 (Primary)", Year: "Year 4", Fee: 63000},
		{Stage: "Key Stage 2 (Primary)", Year: "Year 5", Fee: 67000},
		{Stage: "Key Stage 2 (Primary)", Year: "Year 6", Fee: 71000},
		{Stage: "Key Stage 3 (Lower Secondary)", Year: "Year 7", Fee: 75000},
		{Stage: "Key Stage 3 (Lower Secondary)", Year: "Year 8", Fee: 79000},
		{Stage: "Key Stage 3 (Lower Secondary)", Year: "Year 9", Fee: 83000},
		{Stage: "Key Stage 4 (IGCSE)", Year: "Year 10", Fee: 86500},
		{Stage: "Key Stage 4 (IGCSE)", Year: "Year 11", Fee: 90000},
		{Stage: "Key Stage 5 (A-Level)", Year: "Year 12", Fee: 95000},
		{Stage: "Key Stage 5 (A-Level)", Year: "Year 13", Fee: 95000},
	}
}

// FeeForYear looks up the per-term tuition for a year group ("Year 11").
// The second return is false when the year is not in the schedule.
func FeeForYear(year string) (int, bool) {
	for _, band := range FeeSchedule() {
		if band.Year == year {
			return band.Fee, true
		}
	}
	return 0, false
}

// WriteFeeCSV writes the fee schedule as CSV, one row per year group with a
// header line, for download or mailing to prospective families.
func WriteFeeCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Stage", "Year", "Tuition Fee (KES per Term)"}); err != nil {
		return fmt.Errorf("enrollment: write fee csv: %w", err)
	}
	for _, band := range FeeSchedule() {
		if err := cw.Write([]string{band.Stage, band.Year, strconv.Itoa(band.Fee)}); err != nil {
			return fmt.Errorf("enrollment: write fee csv: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("enrollment: write fee csv: %w", err)
	}
	return nil
}
