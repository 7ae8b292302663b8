package notifier

import (
	"testing"

	"github.com/avwatch/pilot-tracker/internal/entities"
	"github.com/avwatch/pilot-tracker/internal/services"
	"github.com/stretchr/testify/assert"
)

func Test_DedupeKey_TracksContentChanges(t *testing.T) {

	job := entities.JobRecord{
		Source:     "greenhouse:wizzair",
		ExternalID: "42",
		Title:      "First Officer A320",
		Location:   "Madrid",
	}
	edited := job
	edited.Location = "Las Palmas"

	key := dedupeKey(string(statusUpdated), job.Source, job.ExternalID, services.ComputeContentHash(job))

	assert.Equal(t, key,
		dedupeKey(string(statusUpdated), job.Source, job.ExternalID, services.ComputeContentHash(job)),
		"an unchanged posting must be suppressed within the window")

	assert.NotEqual(t, key,
		dedupeKey(string(statusUpdated), edited.Source, edited.ExternalID, services.ComputeContentHash(edited)),
		"an edited posting is a new notification, not a duplicate")

	assert.NotEqual(t, key,
		dedupeKey(string(statusClosed), job.Source, job.ExternalID, services.ComputeContentHash(job)))
}
