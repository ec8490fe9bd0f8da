package service

import (
	"strings"
	"time"

	"wedding/guesthub/internal/model"
)

var csvHeader = []string{
	"Name",
	"Email",
	"Phone",
	"RSVP Status",
	"Plus One",
	"Dietary Needs",
	"Allergies",
	"Table",
	"Relationship",
	"Responded At",
	"Linked",
	"Archived",
}

// ExportCSV renders guests as CSV with every cell quoted. The output has one
// header line plus one line per guest.
func ExportCSV(guests []model.Guest) string {
	var b strings.Builder
	writeCSVRow(&b, csvHeader)
	for i := range guests {
		writeCSVRow(&b, csvRow(&guests[i]))
	}
	return b.String()
}

func csvRow(g *model.Guest) []string {
	respondedAt := ""
	if g.RSVPRespondedAt != nil {
		respondedAt = g.RSVPRespondedAt.UTC().Format(time.RFC3339)
	}
	return []string{
		g.Name(),
		g.Email,
		g.Phone,
		string(g.RSVPStatus),
		g.PlusOneName,
		strings.Join(g.DietaryNeeds, "; "),
		strings.Join(g.Allergies, "; "),
		g.TableAssignment,
		g.Contact().Relationship,
		respondedAt,
		yesNo(g.IsLinked()),
		yesNo(g.IsArchived),
	}
}

// writeCSVRow quotes every cell. encoding/csv only quotes when needed.
func writeCSVRow(b *strings.Builder, cells []string) {
	for i, c := range cells {
		if i > 0 {
			b.WriteByte(',')
		}
		c = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(c)
		b.WriteByte('"')
		b.WriteString(strings.ReplaceAll(c, `"`, `""`))
		b.WriteByte('"')
	}
	b.WriteByte('\n')
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}
