package detect

import "flashloanScope/internal/model"

// Aggregate concatenates detector outputs in the given order, dropping empty entries.
// No deduplication or sorting is applied.
func Aggregate(outputs ...[]model.FlashloanRecord) []model.FlashloanRecord {
	total := 0
	for _, out := range outputs {
		total += len(out)
	}
	combined := make([]model.FlashloanRecord, 0, total)
	for _, out := range outputs {
		for _, record := range out {
			if record.IsEmpty() {
				continue
			}
			combined = append(combined, record)
		}
	}
	return combined
}
