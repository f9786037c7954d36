package ai

import (
	"errors"
	"strings"

	"github.com/GoCodeAlone/workflowgen/document"
)

// maxBraceScans bounds the full passes over a reply made while looking for
// object boundaries.
const maxBraceScans = 16

// ExtractDocument recovers a workflow document from a provider reply that may
// wrap the JSON object in prose or markdown fences. Each '{' is tried in
// turn as the start of an object whose end is found by a scanner that
// respects string literals and escapes; the first balanced span that parses
// as a JSON object wins. If none does, the whole reply is parsed. Field
// types are not enforced: document.Decode coerces or drops values that do
// not fit, and document.Normalize fills what is missing.
func ExtractDocument(raw string) (*document.Document, error) {
	var firstErr error
	ends := make(map[int]int)
	scans := 0
	for i := 0; i < len(raw); i++ {
		if raw[i] != '{' {
			continue
		}
		end, seen := ends[i]
		if !seen {
			if scans == maxBraceScans {
				break
			}
			scans++
			scanObjects(raw, i, ends)
			end = ends[i]
		}
		if end < 0 {
			continue
		}
		doc, err := decodeDocument(raw[i : end+1])
		if err == nil {
			return doc, nil
		}
		if firstErr == nil {
			firstErr = err
		}
		// Objects nested in a rejected candidate are fragments of it.
		i = end
	}

	doc, err := decodeDocument(raw)
	if err == nil {
		return doc, nil
	}
	if firstErr == nil {
		firstErr = err
	}
	return nil, &ParseError{Err: firstErr}
}

// scanObjects records in ends, for every '{' reached outside a string
// literal from start onward, the offset of its closing '}', or -1 when the
// text ends first. A '{' that lies outside strings in one pass gets the same
// answer from every pass, so each pass also settles the later candidates it
// crosses.
func scanObjects(text string, start int, ends map[int]int) {
	var open []int
	inString := false
	escape := false
	for j := start; j < len(text); j++ {
		c := text[j]
		if escape {
			escape = false
			continue
		}
		if inString {
			switch c {
			case '\\':
				escape = true
			case '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			open = append(open, j)
		case '}':
			if n := len(open); n > 0 {
				ends[open[n-1]] = j
				open = open[:n-1]
			}
		}
	}
	for _, o := range open {
		ends[o] = -1
	}
}

func decodeDocument(s string) (*document.Document, error) {
	doc, err := document.Decode([]byte(strings.TrimSpace(s)))
	if errors.Is(err, document.ErrNotObject) {
		return nil, ErrNoObject
	}
	return doc, err
}
