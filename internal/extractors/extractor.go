package extractors

import (
	"context"
	"fmt"
	"strings"

	"github.com/avwatch/pilot-tracker/internal/clients/greenhouse"
	"github.com/avwatch/pilot-tracker/internal/clients/lever"
	"github.com/avwatch/pilot-tracker/internal/config"
	"github.com/avwatch/pilot-tracker/internal/entities"
)

// Extractor is a pluggable producer of normalized job records for one
// configured target. Source() is the stable origin identifier stamped on
// every record the extractor yields; the reconciler uses it to scope the
// closure sweep to sources that actually delivered data.
type Extractor interface {
	Source() string
	Company() string
	Fetch(ctx context.Context) ([]entities.JobRecord, error)
}

// FromTargets builds one extractor per configured target. Greenhouse and
// lever targets share one rate-limited client each.
func FromTargets(targets []config.Target, maxRequestsPerSecond float32) ([]Extractor, error) {

	greenhouseClient := greenhouse.NewClient()
	greenhouseClient.SetRateLimit(maxRequestsPerSecond)

	leverClient := lever.NewClient()
	leverClient.SetRateLimit(maxRequestsPerSecond)

	var result []Extractor
	for _, target := range targets {
		switch target.Kind {
		case "greenhouse":
			result = append(result, NewGreenhouseExtractor(greenhouseClient, target.Slug, target.Company))
		case "lever":
			result = append(result, NewLeverExtractor(leverClient, target.Slug, target.Company))
		case "json":
			result = append(result, NewJSONExtractor(target.Url, target.Company))
		default:
			return nil, fmt.Errorf("unsupported target kind: %s", target.Kind)
		}
	}

	return result, nil
}

func sourceName(kind, slug string) string {
	slug = strings.ToLower(strings.TrimSpace(slug))
	return kind + ":" + strings.Join(strings.Fields(slug), "_")
}
