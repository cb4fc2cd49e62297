package store

import (
	"bytes"
	"encoding/json"

	"github.com/starford/notifsync/internal/models"
)

// encode renders records as a JSON array with one indented object per
// block, the layout hand editors and the parser both expect:
//
//	[
//	{
//	  "id": "1",
//	  ...
//	},
//	{
//	  ...
//	}
//	]
func encode(records []models.Commitment) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("[\n")

	var obj bytes.Buffer
	enc := json.NewEncoder(&obj)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)

	for i, c := range records {
		obj.Reset()
		if err := enc.Encode(c); err != nil {
			return nil, err
		}
		buf.Write(bytes.TrimSuffix(obj.Bytes(), []byte("\n")))
		if i < len(records)-1 {
			buf.WriteString(",\n")
		} else {
			buf.WriteString("\n")
		}
	}

	buf.WriteString("]")
	return buf.Bytes(), nil
}
