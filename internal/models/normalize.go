package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/notifsync/internal/apperr"
)

// absentDateMarkers are date_present values that mean "no date was found".
// Matched case-insensitively.
var absentDateMarkers = map[string]struct{}{
	"na":   {},
	"n/a":  {},
	"":     {},
	"null": {},
}

var (
	errNotString  = errors.New("must be a string")
	errNotIDValue = errors.New("must be a string or an integer")
	errNotFlag    = errors.New("must be a string or a boolean")
	errMissing    = validation.ErrRequired
)

// Decode parses a single JSON object and normalizes it into a Commitment.
// Syntax errors are returned as-is; field problems as *apperr.ValidationError.
func Decode(data []byte) (Commitment, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return Commitment{}, fmt.Errorf("models: decode: %w", err)
	}
	if raw == nil {
		return Commitment{}, errors.New("models: decode: not a JSON object")
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Commitment{}, errors.New("models: decode: trailing data after object")
	}
	return Normalize(raw)
}

// Normalize turns loosely-typed decoded JSON into a Commitment.
//
// Accepted legacy encodings:
//   - id: string, or an integral number (stringified); null or missing leaves it empty
//   - reminded, deleted: bool (stringified), or string (lowercased); missing means "false"
//   - date_present: null or one of absentDateMarkers leaves it absent
//   - location: null or missing becomes DefaultLocation
//
// Every other field must be present and a string.
func Normalize(raw map[string]any) (Commitment, error) {
	c := Commitment{
		Location: DefaultLocation,
		Reminded: FlagFalse,
		Deleted:  FlagFalse,
	}
	errs := validation.Errors{}

	if id, err := normalizeID(raw["id"]); err != nil {
		errs["id"] = err
	} else {
		c.ID = id
	}

	for name, dst := range map[string]*string{"reminded": &c.Reminded, "deleted": &c.Deleted} {
		v, ok := raw[name]
		if !ok || v == nil {
			continue
		}
		switch v := v.(type) {
		case bool:
			*dst = strconv.FormatBool(v)
		case string:
			*dst = strings.ToLower(v)
		default:
			errs[name] = errNotFlag
		}
	}

	required := map[string]*string{
		"title":           &c.Title,
		"description":     &c.Description,
		"date_time":       &c.DateTime,
		"source_app":      &c.SourceApp,
		"notification_id": &c.NotificationID,
		"commitment_type": &c.CommitmentType,
		"duration":        &c.Duration,
	}
	for name, dst := range required {
		v, ok := raw[name]
		if !ok || v == nil {
			errs[name] = errMissing
			continue
		}
		s, ok := v.(string)
		if !ok {
			errs[name] = errNotString
			continue
		}
		*dst = s
	}

	switch v := raw["location"].(type) {
	case nil:
	case string:
		c.Location = v
	default:
		errs["location"] = errNotString
	}

	switch v := raw["date_present"].(type) {
	case nil:
	case string:
		if _, absent := absentDateMarkers[strings.ToLower(v)]; !absent {
			c.DatePresent = &v
		}
	default:
		errs["date_present"] = errNotString
	}

	if len(errs) > 0 {
		return Commitment{}, &apperr.ValidationError{Err: errs}
	}
	if err := c.Validate(); err != nil {
		return Commitment{}, &apperr.ValidationError{Err: err}
	}
	return c, nil
}

func normalizeID(v any) (string, error) {
	switch v := v.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return "", errNotIDValue
		}
		return strconv.FormatInt(n, 10), nil
	case float64:
		// Callers that decode without UseNumber (e.g. MCP arguments).
		if v != math.Trunc(v) || v < math.MinInt64 || v >= math.MaxInt64+1 {
			return "", errNotIDValue
		}
		return strconv.FormatInt(int64(v), 10), nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	default:
		return "", errNotIDValue
	}
}
