package drool

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"
)

// Unmarshal decodes an export. Both a bare JSON array of conditions and an
// object with a "conditions" member are accepted. A null condition is kept
// as nil and reported by the traverser.
func Unmarshal(data []byte) (*Document, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty drool document")
	}

	doc := &Document{}
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &doc.Conditions); err != nil {
			return nil, fmt.Errorf("failed to unmarshal condition list: %w", err)
		}
	} else if err := json.Unmarshal(trimmed, doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal drool document: %w", err)
	}
	return doc, nil
}

// Decode reads an export from r.
func Decode(r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read drool document: %w", err)
	}
	return Unmarshal(data)
}

// ReadDocument reads an export from a file.
func ReadDocument(filePath string) (*Document, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	doc, err := Decode(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filePath, err)
	}
	return doc, nil
}
