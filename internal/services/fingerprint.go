package services

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/avwatch/pilot-tracker/internal/entities"
	"github.com/pkg/errors"
)

// ErrNoIdentity means a record carries no usable url, company or title and
// cannot be assigned a stable external id.
var ErrNoIdentity = errors.New("record has no usable fields to derive an external id")

const (
	externalIDTitleLimit   = 100
	contentHashDescription = 500
)

// ComputeExternalID derives a stable identity for records whose origin system
// does not provide one: the url when present, otherwise a slug joined from
// source, company and a truncated title.
func ComputeExternalID(record entities.JobRecord) (string, error) {

	if record.Url != "" {
		return record.Url, nil
	}

	title := truncateRunes(record.Title, externalIDTitleLimit)

	var parts []string
	for _, part := range []string{record.Source, record.Company, title} {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		parts = append(parts, strings.Join(strings.Fields(part), "_"))
	}

	if record.Company == "" && record.Title == "" {
		return "", ErrNoIdentity
	}

	return strings.Join(parts, "_"), nil
}

// ComputeContentHash digests the fields that define "the posting changed":
// title, location, department and the start of the description. Volatile
// fields such as timestamps or remote flags are deliberately excluded.
func ComputeContentHash(record entities.JobRecord) string {

	description := truncateRunes(record.Description, contentHashDescription)

	content := strings.Join([]string{record.Title, record.Location, record.Department, description}, "|")
	digest := sha256.Sum256([]byte(content))
	return hex.EncodeToString(digest[:])
}

// truncateRunes cuts on rune boundaries so multi-byte titles and
// descriptions never yield invalid UTF-8.
func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
