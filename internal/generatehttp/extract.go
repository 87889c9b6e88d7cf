package generatehttp

import (
	"encoding/base64"
	"errors"

	"google.golang.org/genai"
)

// errNoCandidates is a provider failure, classified like any other
var errNoCandidates = errors.New("provider returned no content")

const dataURLPrefix = "data:image/png;base64,"

// extractImage returns the first inline image as a data URL, or the first
// text part when no image is present. The media type is always image/png.
// A missing parts list is a provider failure; an empty one is a normal
// answer without an image.
func extractImage(resp *genai.GenerateContentResponse) (imageURL, text string, err error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", "", errNoCandidates
	}
	c := resp.Candidates[0]
	if c == nil || c.Content == nil || c.Content.Parts == nil {
		return "", "", errNoCandidates
	}

	var img []byte
	found := false
	for _, p := range c.Content.Parts {
		if p == nil {
			continue
		}
		if text == "" && p.Text != "" {
			text = p.Text
		}
		if !found && p.InlineData != nil && len(p.InlineData.Data) > 0 {
			img = p.InlineData.Data
			found = true
		}
	}
	if !found {
		return "", text, nil
	}
	return dataURLPrefix + base64.StdEncoding.EncodeToString(img), text, nil
}
