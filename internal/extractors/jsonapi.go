package extractors

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/avwatch/pilot-tracker/internal/entities"
)

type httpClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// JSONExtractor pulls postings from an arbitrary JSON endpoint. Career sites
// rarely agree on a payload shape, so it probes the common wrapper keys and
// field aliases instead of demanding a schema.
type JSONExtractor struct {
	client  httpClient
	url     string
	company string
}

func NewJSONExtractor(endpoint string, company string) *JSONExtractor {
	return &JSONExtractor{client: &http.Client{}, url: endpoint, company: company}
}

func (e *JSONExtractor) SetHTTPClient(client httpClient) {
	e.client = client
}

func (e *JSONExtractor) Source() string {
	name := e.company
	if parsed, err := url.Parse(e.url); err == nil && parsed.Host != "" {
		name = parsed.Host
	}
	return sourceName("json", name)
}

func (e *JSONExtractor) Company() string {
	return e.company
}

var wrapperKeys = []string{"jobs", "data", "results", "jobPostings", "positions"}

func (e *JSONExtractor) Fetch(ctx context.Context) ([]entities.JobRecord, error) {

	req, err := http.NewRequestWithContext(ctx, "GET", e.url, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %v", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error sending request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	items, err := extractItems(body)
	if err != nil {
		return nil, err
	}

	var records []entities.JobRecord
	for _, item := range items {
		record := entities.JobRecord{
			Source:      e.Source(),
			Company:     e.company,
			ExternalID:  firstString(item, "id", "jobId", "requisitionId", "position_id"),
			Title:       firstString(item, "title", "jobTitle", "position_title", "name"),
			Location:    firstString(item, "location", "city", "jobLocation"),
			Url:         firstString(item, "url", "jobUrl", "applyUrl", "link"),
			Department:  firstString(item, "department", "team", "category"),
			Description: firstString(item, "description", "jobDescription", "summary"),
		}
		if record.Title == "" && record.ExternalID == "" {
			continue
		}
		records = append(records, record)
	}

	return records, nil
}

func extractItems(body []byte) ([]map[string]any, error) {

	var asList []map[string]any
	if err := json.Unmarshal(body, &asList); err == nil {
		return asList, nil
	}

	var asObject map[string]json.RawMessage
	if err := json.Unmarshal(body, &asObject); err != nil {
		return nil, fmt.Errorf("error decoding JSON response: %v", err)
	}

	for _, key := range wrapperKeys {
		raw, ok := asObject[key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(raw, &asList); err == nil {
			return asList, nil
		}
	}

	return nil, fmt.Errorf("no job list found in JSON response")
}

func firstString(item map[string]any, keys ...string) string {
	for _, key := range keys {
		switch value := item[key].(type) {
		case string:
			if value != "" {
				return value
			}
		case float64:
			return fmt.Sprintf("%.0f", value)
		}
	}
	return ""
}
