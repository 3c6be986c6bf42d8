package dataset

import (
	"bytes"
	_ "embed"
)

// SampleName is the registry name of the bundled sample dataset.
const SampleName = "facebook_page_sample"

//go:embed facebook_page_sample.csv
var sampleCSV []byte

// LoadSample parses the bundled Facebook page sample into a Table. It
// lets users try the chat without bringing their own data.
func LoadSample() (*Table, error) {
	return ReadCSV(bytes.NewReader(sampleCSV))
}
