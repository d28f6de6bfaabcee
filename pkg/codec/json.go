package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/james-see/mozart/pkg/music"
)

// EncodeJSON renders a song as an indented JSON document.
func EncodeJSON(song *music.Song) ([]byte, error) {
	data, err := json.MarshalIndent(NewDocument(song), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode JSON: %w", err)
	}
	return append(data, '\n'), nil
}

// DecodeJSON parses a JSON document. Unknown fields are rejected.
func DecodeJSON(data []byte) (*music.Song, error) {
	return ReadJSON(bytes.NewReader(data))
}

// ReadJSON decodes a single JSON document from r.
func ReadJSON(r io.Reader) (*music.Song, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, formatError("json", err)
	}
	return doc.Song()
}
