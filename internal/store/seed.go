package store

import "github.com/starford/notifsync/internal/models"

// SeedCommitments returns the example records written to a fresh file.
func SeedCommitments() []models.Commitment {
	tomorrow := "tomorrow at 10 AM"
	return []models.Commitment{
		{
			ID:             "1",
			Title:          "Team sync",
			Description:    "Details: Weekly team sync to review sprint progress.",
			DateTime:       "2025-03-10T09:30:00",
			Location:       "Conference Room B",
			SourceApp:      "Microsoft Teams",
			NotificationID: "1001",
			CommitmentType: "meeting",
			Reminded:       models.FlagFalse,
			Duration:       "1 hour",
			DatePresent:    &tomorrow,
			Deleted:        models.FlagFalse,
		},
		{
			ID:             "2",
			Title:          "Submit expense report",
			Description:    "Details: Expense report for the March trip is due Friday.",
			DateTime:       "2025-03-10T11:05:00",
			Location:       models.DefaultLocation,
			SourceApp:      "Outlook",
			NotificationID: "1002",
			CommitmentType: "deadlines",
			Reminded:       models.FlagFalse,
			Duration:       "30 minutes",
			Deleted:        models.FlagFalse,
		},
		{
			ID:             "3",
			Title:          "Birthday dinner",
			Description:    "Details: Dinner for Sam's birthday, bring a card.",
			DateTime:       "2025-03-11T18:45:00",
			Location:       "Luigi's",
			SourceApp:      "WhatsApp",
			NotificationID: "1003",
			CommitmentType: "party",
			Reminded:       models.FlagFalse,
			Duration:       "2 hours",
			Deleted:        models.FlagFalse,
		},
	}
}
