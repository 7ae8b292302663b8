package extractors

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockHTTPClient struct {
	mock.Mock
}

func (m *mockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	args := m.Called(req)
	return args.Get(0).(*http.Response), args.Error(1)
}

func jsonResponse(body string) (*http.Response, error) {
	return &http.Response{
		StatusCode: 200,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
	}, nil
}

func Test_JSONExtractor_HandlesWrappedPayload(t *testing.T) {

	mockClient := &mockHTTPClient{}
	mockClient.On("Do", mock.Anything).Return(jsonResponse(`{
		"jobs": [
			{"id": 7, "title": "Second Officer B787", "location": "Madrid", "url": "https://careers.example.com/7"},
			{"jobId": "8", "jobTitle": "Dispatcher", "city": "Palma"}
		]
	}`))

	extractor := NewJSONExtractor("https://careers.example.com/api/v1/jobs", "Air Europa")
	extractor.SetHTTPClient(mockClient)

	records, err := extractor.Fetch(context.Background())
	assert.NoError(t, err)

	assert.Len(t, records, 2)
	assert.Equal(t, "json:careers.example.com", records[0].Source)
	assert.Equal(t, "7", records[0].ExternalID)
	assert.Equal(t, "Second Officer B787", records[0].Title)
	assert.Equal(t, "Air Europa", records[0].Company)
	assert.Equal(t, "8", records[1].ExternalID)
	assert.Equal(t, "Dispatcher", records[1].Title)
	assert.Equal(t, "Palma", records[1].Location)
}

func Test_JSONExtractor_HandlesBareListPayload(t *testing.T) {

	mockClient := &mockHTTPClient{}
	mockClient.On("Do", mock.Anything).Return(jsonResponse(`[
		{"id": "a1", "name": "Pilot Cadet"},
		{"comment": "not a job at all"}
	]`))

	extractor := NewJSONExtractor("https://careers.example.com/feed", "Air Europa")
	extractor.SetHTTPClient(mockClient)

	records, err := extractor.Fetch(context.Background())
	assert.NoError(t, err)

	assert.Len(t, records, 1)
	assert.Equal(t, "a1", records[0].ExternalID)
	assert.Equal(t, "Pilot Cadet", records[0].Title)
}

func Test_JSONExtractor_FailsOnUnknownShape(t *testing.T) {

	mockClient := &mockHTTPClient{}
	mockClient.On("Do", mock.Anything).Return(jsonResponse(`{"unexpected": {"nested": true}}`))

	extractor := NewJSONExtractor("https://careers.example.com/feed", "Air Europa")
	extractor.SetHTTPClient(mockClient)

	_, err := extractor.Fetch(context.Background())
	assert.Error(t, err)
}
