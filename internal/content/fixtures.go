package content

import (
	"fmt"
	"time"

	"github.com/starford/notebase/internal/models"
)

var demoEpoch = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

// DemoRecords returns a small mixed record set covering every variant.
func DemoRecords() []models.RawRecord {
	at := func(days int) string {
		return demoEpoch.AddDate(0, 0, days).Format(models.TimeLayout)
	}
	return []models.RawRecord{
		{
			Path:    "tasks/Renew passport.md",
			Content: "Book an appointment at the consulate.\n",
			Frontmatter: map[string]any{
				"title": "Renew passport", "type": "task", "completed": "",
				"due": "2024-04-01", "priority": "high", "tags": []any{"admin"},
			},
			Created: at(0),
		},
		{
			Path:    "tasks/Fix bike.md",
			Content: "Rear brake pads.\n",
			Frontmatter: map[string]any{
				"title": "Fix bike", "type": "task", "completed": "2024-03-05T18:20:00Z",
			},
			Created: at(1),
		},
		{
			Path:    "debts/Bob.md",
			Content: "Shared costs with Bob.\n",
			Frontmatter: map[string]any{
				"title": "Bob", "type": "debt", "completed": "", "currency": "EUR",
				"transactions": []any{
					map[string]any{"id": "tx-bob-1", "amount": 40.0, "created": "2024-03-02T12:00:00Z", "comment": "concert tickets"},
					map[string]any{"id": "tx-bob-2", "amount": -15.5, "created": "2024-03-09T20:00:00Z", "comment": "pizza"},
				},
			},
			Created: at(2),
		},
		{
			Path:    "debts/Alice.md",
			Content: "",
			Frontmatter: map[string]any{
				"summary": "Alice owes me for the train", "type": "debt", "completed": "",
				"currency": "USD", "transactions": []any{},
			},
			Created: at(3),
		},
		{
			Path:    "tracks/Severance.md",
			Content: "Watching with Sam.\n",
			Frontmatter: map[string]any{
				"title": "Severance", "type": "track", "completed": "",
				"season": 2, "episode": 4, "next_episode": "2025-02-07", "url": "https://tv.apple.com/show/severance",
			},
			Created: at(4),
		},
		{
			Path:    "groceries/Weekend.md",
			Content: "",
			Frontmatter: map[string]any{
				"title": "Weekend", "type": "groceries", "completed": "",
				"checklist": []any{
					map[string]any{"name": "milk", "done": true},
					map[string]any{"name": "eggs", "done": false},
					map[string]any{"name": "coffee", "done": false},
				},
			},
			Created: at(5),
		},
		{
			Path:        "inbox/Scratch.md",
			Content:     "Loose thoughts without metadata.\n",
			Frontmatter: "legacy free-form header",
			Created:     at(6),
		},
	}
}

// GenerateRecords returns n plain task records with strictly increasing
// creation times.
func GenerateRecords(n int) []models.RawRecord {
	out := make([]models.RawRecord, n)
	for i := range out {
		out[i] = models.RawRecord{
			Path:    fmt.Sprintf("tasks/Task %03d.md", i+1),
			Content: fmt.Sprintf("Generated task %d.\n", i+1),
			Frontmatter: map[string]any{
				"title":     fmt.Sprintf("Task %03d", i+1),
				"type":      "task",
				"completed": "",
			},
			Created: demoEpoch.Add(time.Duration(i) * time.Minute).Format(models.TimeLayout),
		}
	}
	return out
}
