package scoring

import (
	"strings"

	"github.com/avwatch/pilot-tracker/internal/entities"
	"github.com/samber/lo"
)

// Keyword tiers, weighted by how strongly they indicate a pilot position.
var (
	highPriorityKeywords = []string{"pilot", "captain", "first officer", "copilot", "co-pilot"}

	mediumPriorityKeywords = []string{"pilot cadet", "second officer", "flight officer", "airline pilot"}

	technicalKeywords = []string{"atp", "atpl", "commercial pilot", "airline transport pilot"}
)

const maxScore = 10

// Score rates how pilot-relevant a posting is, from 0 (unrelated) to 10.
func Score(record entities.JobRecord) int {

	text := searchText(record)
	score := 0

	for _, keyword := range highPriorityKeywords {
		if strings.Contains(text, keyword) {
			score += 3
		}
	}

	for _, keyword := range mediumPriorityKeywords {
		if strings.Contains(text, keyword) {
			score += 2
		}
	}

	for _, keyword := range technicalKeywords {
		if strings.Contains(text, keyword) {
			score += 1
		}
	}

	if score > maxScore {
		score = maxScore
	}
	return score
}

// IsPilotJob reports whether any pilot keyword appears in the posting.
func IsPilotJob(record entities.JobRecord) bool {
	return Score(record) > 0
}

// Apply scores every record and drops those below the configured bar.
func Apply(records []entities.JobRecord, pilotOnly bool, minimumScore int) []entities.JobRecord {

	scored := lo.Map(records, func(record entities.JobRecord, _ int) entities.JobRecord {
		record.PilotScore = Score(record)
		return record
	})

	return lo.Filter(scored, func(record entities.JobRecord, _ int) bool {
		if pilotOnly && record.PilotScore == 0 {
			return false
		}
		return record.PilotScore >= minimumScore
	})
}

func searchText(record entities.JobRecord) string {
	return strings.ToLower(record.Title + " " + record.Description + " " + record.Department)
}
