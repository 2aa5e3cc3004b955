package describer

import (
	"regexp"
	"strings"
)

var locToken = regexp.MustCompile(`<loc_\d+>`)

// CaptionCleaner is the default caption post-processor. It removes an echoed
// task marker and location tokens; caption tasks carry no coordinates, so the
// image size is not needed.
type CaptionCleaner struct{}

// PostProcess implements client.CaptionPostProcessor
func (CaptionCleaner) PostProcess(raw, taskMarker string, width, height int) (string, error) {
	text := strings.TrimPrefix(strings.TrimSpace(raw), taskMarker)
	text = locToken.ReplaceAllString(text, "")
	return strings.Join(strings.Fields(text), " "), nil
}
