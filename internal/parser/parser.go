// Package parser salvages commitments from a possibly damaged JSON array file.
//
// The file is split into one candidate substring per top-level array element
// and each candidate is decoded on its own, so one broken element never hides
// the others.
package parser

import (
	"bytes"
	"fmt"

	"github.com/tailscale/hujson"

	"github.com/starford/notifsync/internal/models"
)

// Failure describes one candidate that could not be turned into a commitment.
type Failure struct {
	Index     int    // position among the candidates, 0-based
	Candidate string // the offending substring, trimmed
	Err       error
}

// Result holds the output of parsing a commitments file.
type Result struct {
	Records  []models.Commitment
	Failures []Failure
}

// Skipped returns the number of candidates that were dropped.
func (r *Result) Skipped() int {
	return len(r.Failures)
}

// Parse extracts every well-formed commitment from data, in file order.
// It never returns an error: bad candidates are reported in Result.Failures.
func Parse(data []byte) *Result {
	res := &Result{}
	for i, cand := range Split(data) {
		c, err := decodeCandidate(cand)
		if err != nil {
			res.Failures = append(res.Failures, Failure{Index: i, Candidate: string(cand), Err: err})
			continue
		}
		res.Records = append(res.Records, c)
	}
	return res
}

// decodeCandidate standardizes hand-edited JSON (comments, trailing commas)
// before the strict decode.
func decodeCandidate(cand []byte) (models.Commitment, error) {
	std, err := hujson.Standardize(bytes.Clone(cand))
	if err != nil {
		return models.Commitment{}, fmt.Errorf("parser: %w", err)
	}
	return models.Decode(std)
}

// Split strips the outer brackets of a JSON array and cuts the remainder at
// top-level commas. It tracks brace depth outside string literals, string
// state, and backslash escapes inside strings. Empty candidates are dropped.
//
// A missing opening or closing bracket is tolerated so a truncated file still
// yields its complete leading elements.
func Split(data []byte) [][]byte {
	body := bytes.TrimSpace(data)
	body = bytes.TrimPrefix(body, []byte("["))
	body = bytes.TrimSuffix(body, []byte("]"))

	var (
		out      [][]byte
		start    int
		depth    int
		inString bool
		escaped  bool
	)
	emit := func(end int) {
		if cand := bytes.TrimSpace(body[start:end]); len(cand) > 0 {
			out = append(out, cand)
		}
		start = end + 1
	}

	for i, ch := range body {
		if escaped {
			escaped = false
			continue
		}
		switch {
		case ch == '\\' && inString:
			escaped = true
		case ch == '"':
			inString = !inString
		case inString:
		case ch == '{':
			depth++
		case ch == '}':
			// A stray closing brace must not push later records below depth 0.
			if depth > 0 {
				depth--
			}
		case ch == ',' && depth == 0:
			emit(i)
		}
	}
	emit(len(body))
	return out
}
