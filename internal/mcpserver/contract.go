package mcpserver

// RecordFormatContract describes the commitment record that tool callers
// send and receive.
const RecordFormatContract = `# Commitment Record Format

A commitment is a JSON object extracted from a phone notification. Every
field is a string.

| Field             | Required | Notes                                                    |
|-------------------|----------|----------------------------------------------------------|
| ` + "`id`" + `              | no       | Assigned on create when omitted. Never reused.           |
| ` + "`title`" + `           | yes      | Short summary, e.g. "Team sync".                         |
| ` + "`description`" + `     | yes      | Conventionally starts with "Details: ".                  |
| ` + "`date_time`" + `       | yes      | When the notification arrived, ISO-8601.                 |
| ` + "`location`" + `        | no       | Defaults to "N/A".                                       |
| ` + "`source_app`" + `      | yes      | App that raised the notification.                        |
| ` + "`notification_id`" + ` | yes      | Id of the originating notification.                      |
| ` + "`commitment_type`" + ` | yes      | e.g. meeting, deadlines, party, call.                    |
| ` + "`reminded`" + `        | no       | "true" or "false". Defaults to "false".                  |
| ` + "`duration`" + `        | yes      | Free text, e.g. "1 hour".                                |
| ` + "`date_present`" + `    | no       | Date mentioned in the text, or null when none was found. |
| ` + "`deleted`" + `         | no       | "true" or "false". Managed by delete_commitment.         |

## Accepted legacy encodings

- ` + "`id`" + ` may be an integer; it is stored as its decimal string.
- ` + "`reminded`" + ` and ` + "`deleted`" + ` may be JSON booleans; text values are lowercased.
- ` + "`date_present`" + ` values "NA", "N/A", "null" or "" mean no date.
- ` + "`location`" + ` null means "N/A".

## Lifecycle

1. ` + "`create_commitment`" + ` stores a record; a duplicate explicit id is rejected.
2. ` + "`update_commitment`" + ` replaces every field; send the full record.
3. ` + "`delete_commitment`" + ` marks the record deleted; it remains listed.
4. ` + "`purge_deleted`" + ` removes every deleted record for good.

## Example

` + "```" + `json
{
  "title": "Team sync",
  "description": "Details: Weekly team sync to review sprint progress.",
  "date_time": "2025-03-10T09:30:00",
  "location": "Conference Room B",
  "source_app": "Microsoft Teams",
  "notification_id": "1001",
  "commitment_type": "meeting",
  "reminded": "false",
  "duration": "1 hour",
  "date_present": "tomorrow at 10 AM",
  "deleted": "false"
}
` + "```" + `
`
