package codec

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/james-see/mozart/pkg/music"
)

// EncodeYAML renders a song as a YAML document with the same fields as JSON.
func EncodeYAML(song *music.Song) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(NewDocument(song)); err != nil {
		return nil, fmt.Errorf("failed to encode YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode YAML: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeYAML parses a YAML song document.
func DecodeYAML(data []byte) (*music.Song, error) {
	return ReadYAML(bytes.NewReader(data))
}

// ReadYAML decodes a single YAML document from r.
func ReadYAML(r io.Reader) (*music.Song, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var doc Document
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, formatErrorf("empty YAML document")
		}
		return nil, formatError("yaml", err)
	}
	return doc.Song()
}
