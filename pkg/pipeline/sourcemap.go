package pipeline

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// indexSection places one input's source map at a line offset within the
// concatenated output.
type indexSection struct {
	line      int
	sourceMap []byte
}

type indexMap struct {
	Version  int          `json:"version"`
	File     string       `json:"file"`
	Sections []mapSection `json:"sections"`
}

type mapSection struct {
	Offset mapOffset       `json:"offset"`
	Map    json.RawMessage `json:"map"`
}

type mapOffset struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// indexSourceMap builds a version 3 index map whose sections point at each
// input's own map.
func indexSourceMap(file string, sections []indexSection) ([]byte, error) {
	m := indexMap{Version: 3, File: file, Sections: make([]mapSection, 0, len(sections))}
	for _, sec := range sections {
		if len(sec.sourceMap) == 0 {
			continue
		}
		if !json.Valid(sec.sourceMap) {
			return nil, fmt.Errorf("source map for section at line %d is not valid JSON", sec.line)
		}
		m.Sections = append(m.Sections, mapSection{
			Offset: mapOffset{Line: sec.line},
			Map:    json.RawMessage(sec.sourceMap),
		})
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encoding source map: %w", err)
	}
	return data, nil
}

// sourceMapComment renders the index map as an inline data URL comment.
func sourceMapComment(file string, sections []indexSection) ([]byte, error) {
	data, err := indexSourceMap(file, sections)
	if err != nil {
		return nil, err
	}
	return []byte("//# sourceMappingURL=data:application/json;base64," +
		base64.StdEncoding.EncodeToString(data) + "\n"), nil
}
