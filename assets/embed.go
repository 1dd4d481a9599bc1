package assets

import (
	"embed"
	"encoding/json"
)

//go:embed responses.json
var responsesFS embed.FS

type responseFile struct {
	FeedSuccess []string `json:"feed_success"`
}

// FeedResponses returns the success-message pool used after a confirmed
// feeding.
func FeedResponses() ([]string, error) {
	raw, err := responsesFS.ReadFile("responses.json")
	if err != nil {
		return nil, err
	}
	var rf responseFile
	if err := json.Unmarshal(raw, &rf); err != nil {
		return nil, err
	}
	return rf.FeedSuccess, nil
}
