package models

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/starford/notifsync/internal/apperr"
)

const baseFields = `"title":"Standup","description":"Details: daily sync","date_time":"2025-03-01T09:00:00",` +
	`"source_app":"Slack","notification_id":"n-1","commitment_type":"meeting","duration":"30 minutes"`

func TestDecode_Defaults(t *testing.T) {
	c, err := Decode([]byte(`{` + baseFields + `}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	want := Commitment{
		Title:          "Standup",
		Description:    "Details: daily sync",
		DateTime:       "2025-03-01T09:00:00",
		Location:       DefaultLocation,
		SourceApp:      "Slack",
		NotificationID: "n-1",
		CommitmentType: "meeting",
		Reminded:       FlagFalse,
		Duration:       "30 minutes",
		Deleted:        FlagFalse,
	}
	if diff := cmp.Diff(want, c); diff != "" {
		t.Errorf("decoded commitment mismatch (-want +got):\n%s", diff)
	}
}

func TestDecode_LegacyEncodings(t *testing.T) {
	c, err := Decode([]byte(`{"id":7,"reminded":true,"deleted":false,` + baseFields + `}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if c.ID != "7" {
		t.Errorf("id = %q, want 7", c.ID)
	}
	if c.Reminded != FlagTrue || c.Deleted != FlagFalse {
		t.Errorf("flags = %q/%q", c.Reminded, c.Deleted)
	}
}

func TestDecode_UppercaseFlagString(t *testing.T) {
	c, err := Decode([]byte(`{"deleted":"TRUE",` + baseFields + `}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !c.IsDeleted() {
		t.Error("expected deleted")
	}
}

func TestDecode_DatePresentMarkers(t *testing.T) {
	for _, raw := range []string{`"N/A"`, `"na"`, `""`, `"NULL"`, `null`} {
		c, err := Decode([]byte(`{"date_present":` + raw + `,` + baseFields + `}`))
		if err != nil {
			t.Fatalf("Decode(%s): %v", raw, err)
		}
		if c.DatePresent != nil {
			t.Errorf("date_present %s: got %q, want absent", raw, *c.DatePresent)
		}
	}

	c, err := Decode([]byte(`{"date_present":"tomorrow 5pm",` + baseFields + `}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if c.DatePresent == nil || *c.DatePresent != "tomorrow 5pm" {
		t.Errorf("date_present = %v", c.DatePresent)
	}
}

func TestDecode_NullLocationDefaults(t *testing.T) {
	c, err := Decode([]byte(`{"location":null,` + baseFields + `}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if c.Location != DefaultLocation {
		t.Errorf("location = %q", c.Location)
	}
}

func TestDecode_ValidationErrors(t *testing.T) {
	cases := map[string]string{
		"missing title":  `{"description":"d","date_time":"t","source_app":"a","notification_id":"n","commitment_type":"c","duration":"1h"}`,
		"numeric title":  `{"title":3,"description":"d","date_time":"t","source_app":"a","notification_id":"n","commitment_type":"c","duration":"1h"}`,
		"fractional id":  `{"id":1.5,` + baseFields + `}`,
		"bad flag":       `{"reminded":"maybe",` + baseFields + `}`,
		"object flag":    `{"deleted":{},` + baseFields + `}`,
		"array location": `{"location":[],` + baseFields + `}`,
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode([]byte(in))
			if !errors.Is(err, apperr.ErrValidation) {
				t.Fatalf("err = %v, want validation error", err)
			}
		})
	}
}

func TestDecode_SyntaxErrors(t *testing.T) {
	for _, in := range []string{`not-json`, `null`, `[1,2]`, `{"title":"x"} {}`} {
		_, err := Decode([]byte(in))
		if err == nil {
			t.Errorf("Decode(%q) succeeded, want error", in)
			continue
		}
		if errors.Is(err, apperr.ErrValidation) {
			t.Errorf("Decode(%q) = validation error, want syntax error", in)
		}
	}
}

func TestNormalize_FloatID(t *testing.T) {
	raw := map[string]any{
		"id": float64(12), "title": "t", "description": "d", "date_time": "dt",
		"source_app": "s", "notification_id": "n", "commitment_type": "c", "duration": "1h",
	}
	c, err := Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if c.ID != "12" {
		t.Errorf("id = %q, want 12", c.ID)
	}
}

func TestNormalize_FloatIDOutOfRange(t *testing.T) {
	for _, id := range []float64{1e20, -1e20, 9223372036854775808} {
		raw := map[string]any{
			"id": id, "title": "t", "description": "d", "date_time": "dt",
			"source_app": "s", "notification_id": "n", "commitment_type": "c", "duration": "1h",
		}
		_, err := Normalize(raw)
		if !errors.Is(err, apperr.ErrValidation) {
			t.Errorf("Normalize(id=%g) err = %v, want validation error", id, err)
		}
	}
}

func TestClone_DetachesDatePresent(t *testing.T) {
	dp := "friday"
	c := Commitment{DatePresent: &dp}
	cp := c.Clone()
	*cp.DatePresent = "monday"
	if *c.DatePresent != "friday" {
		t.Error("clone shares date_present with original")
	}
}
