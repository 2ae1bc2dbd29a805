package render

import (
	"bytes"
	"encoding/json"

	"github.com/salmonumbrella/csvnotes/internal/hierarchy"
)

// JSONSuffix is appended to the source stem for the JSON output file.
const JSONSuffix = "_structured.json"

// JSON encodes res as {metadata, data} with two-space indentation and a
// trailing newline. HTML characters are written verbatim.
func JSON(res *hierarchy.Result) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
