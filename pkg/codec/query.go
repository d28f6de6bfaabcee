package codec

import (
	"encoding/json"
	"fmt"

	"github.com/itchyny/gojq"

	"github.com/james-see/mozart/pkg/music"
)

// Query runs a jq expression against the song's JSON document and returns
// every result.
func Query(song *music.Song, expr string) ([]any, error) {
	query, err := gojq.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid jq expression %q: %w", expr, err)
	}
	input, err := documentValue(song)
	if err != nil {
		return nil, err
	}
	var out []any
	iter := query.Run(input)
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, ok := v.(error); ok {
			return nil, fmt.Errorf("jq error: %w", err)
		}
		out = append(out, v)
	}
	return out, nil
}

// documentValue converts the song document into the plain maps and slices
// gojq operates on.
func documentValue(song *music.Song) (any, error) {
	data, err := json.Marshal(NewDocument(song))
	if err != nil {
		return nil, fmt.Errorf("failed to encode song: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("failed to decode song: %w", err)
	}
	return v, nil
}
