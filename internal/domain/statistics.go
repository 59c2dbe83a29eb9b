package domain

// Statistics summarizes a collection of injury records.
type Statistics struct {
	TotalRecords       int              `json:"total_records"`
	BySeverity         map[Severity]int `json:"by_severity"`
	ByStatus           map[Status]int   `json:"by_status"`
	MostCommonBodyPart *string          `json:"most_common_body_part"`
	ActiveInjuries     int              `json:"active_injuries"`
	HealedInjuries     int              `json:"healed_injuries"`
}

// ComputeStatistics aggregates counts over records. Ties for the most common
// body part go to the one encountered first.
func ComputeStatistics(records []InjuryRecord) Statistics {
	stats := Statistics{
		TotalRecords: len(records),
		BySeverity:   map[Severity]int{},
		ByStatus:     map[Status]int{},
	}

	bodyParts := map[string]int{}
	var order []string

	for _, r := range records {
		stats.BySeverity[r.Severity]++
		stats.ByStatus[r.Status]++

		switch r.Status {
		case StatusActive:
			stats.ActiveInjuries++
		case StatusHealed:
			stats.HealedInjuries++
		}

		if r.BodyPart != "" {
			if _, ok := bodyParts[r.BodyPart]; !ok {
				order = append(order, r.BodyPart)
			}
			bodyParts[r.BodyPart]++
		}
	}

	best := 0
	for _, part := range order {
		if bodyParts[part] > best {
			best = bodyParts[part]
			p := part
			stats.MostCommonBodyPart = &p
		}
	}

	return stats
}
