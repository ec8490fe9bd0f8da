package service

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"wedding/guesthub/internal/model"
)

func sampleGuests() []model.Guest {
	linked := uuid.New()
	responded := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	guests := []model.Guest{
		{
			ID: uuid.New(), FirstName: "Alice", LastName: "Smith", DisplayName: "Ali",
			Email: "alice@example.com", Phone: "+1 (555) 010-2000",
			RSVPStatus: model.RSVPStatusConfirmed, RSVPRespondedAt: &responded,
			PlusOneName: "Bob Jones", DietaryNeeds: model.StringSlice{"vegan", "halal"},
			UserID: &linked,
		},
		{
			ID: uuid.New(), FirstName: "Carol", LastName: "White",
			Email: "carol@example.com", RSVPStatus: model.RSVPStatusPending,
			Allergies: model.StringSlice{"nuts"}, SpecialRequests: "line one\nline two",
		},
		{
			ID: uuid.New(), FirstName: "Dan", LastName: "Brown",
			Email: "dan@example.com", RSVPStatus: model.RSVPStatusDeclined, RSVPRespondedAt: &responded,
			IsArchived: true, ArchiveReason: model.DeclinedArchiveReason,
		},
	}
	guests[1].SetContact(model.ContactDetails{Relationship: "Bride's \"best\" friend"})
	return guests
}

func TestSearchBlankTermReturnsInput(t *testing.T) {
	guests := sampleGuests()
	for _, term := range []string{"", "   ", "\t"} {
		got := SearchGuests(guests, term)
		if len(got) != len(guests) {
			t.Fatalf("term %q: got %d guests, want %d", term, len(got), len(guests))
		}
		for i := range guests {
			if got[i].ID != guests[i].ID {
				t.Fatalf("term %q: order changed at %d", term, i)
			}
		}
	}
}

func TestSearchMatchesFields(t *testing.T) {
	guests := sampleGuests()
	cases := map[string]string{
		"ali":          "alice@example.com", // display name
		"ALICE SMITH":  "alice@example.com", // first + last
		"carol@":       "carol@example.com",
		"bob":          "alice@example.com", // plus-one
		"best":         "carol@example.com", // relationship
		"5550102000":   "alice@example.com", // phone digits
		"(555) 010":    "alice@example.com", // raw phone
		"dan brown":    "dan@example.com",
	}
	for term, email := range cases {
		got := SearchGuests(guests, term)
		if len(got) != 1 || got[0].Email != email {
			var emails []string
			for _, g := range got {
				emails = append(emails, g.Email)
			}
			t.Fatalf("term %q matched %v, want [%s]", term, emails, email)
		}
	}
	if got := SearchGuests(guests, "nobody"); len(got) != 0 {
		t.Fatalf("unmatched term returned %d guests", len(got))
	}

	mixed := []model.Guest{
		{ID: uuid.New(), FirstName: "Alice", Email: "alice@example.com", Phone: "+1 555 010 2000"},
		{ID: uuid.New(), FirstName: "Guest", Email: "guest2@example.com"},
	}
	for _, term := range []string{"guest2", "GUEST2@"} {
		got := SearchGuests(mixed, term)
		if len(got) != 1 || got[0].Email != "guest2@example.com" {
			t.Fatalf("term %q matched %d guests, want only guest2", term, len(got))
		}
	}
	if got := SearchGuests(mixed, "room 5"); len(got) != 0 {
		t.Fatalf("term with a digit matched %d guests by phone", len(got))
	}
	if got := SearchGuests(mixed, "+1 555-010"); len(got) != 1 || got[0].Email != "alice@example.com" {
		t.Fatalf("phone-shaped term matched %d guests, want alice", len(got))
	}
}

func TestComputeStats(t *testing.T) {
	got := ComputeStats(sampleGuests())
	want := GuestStats{
		Total:       2,
		Linked:      1,
		Confirmed:   1,
		Pending:     1,
		Declined:    0,
		Archived:    1,
		WithDietary: 2,
		WithPlusOne: 1,
	}
	if got != want {
		t.Fatalf("stats = %+v, want %+v", got, want)
	}
	if empty := ComputeStats(nil); empty != (GuestStats{}) {
		t.Fatalf("empty stats = %+v", empty)
	}
}

func TestExportCSVShape(t *testing.T) {
	guests := sampleGuests()
	out := ExportCSV(guests)

	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	if len(lines) != len(guests)+1 {
		t.Fatalf("lines = %d, want %d", len(lines), len(guests)+1)
	}
	header := splitQuoted(t, lines[0])
	if len(header) != 12 || header[0] != "Name" || header[11] != "Archived" {
		t.Fatalf("header = %v", header)
	}
	for i, line := range lines[1:] {
		if cells := splitQuoted(t, line); len(cells) != len(header) {
			t.Fatalf("row %d has %d cells, want %d", i, len(cells), len(header))
		}
	}

	first := splitQuoted(t, lines[1])
	if first[0] != "Ali" || first[5] != "vegan; halal" || first[9] != "2026-05-01T12:00:00Z" || first[10] != "Yes" || first[11] != "No" {
		t.Fatalf("first row = %v", first)
	}
	second := splitQuoted(t, lines[2])
	if second[0] != "Carol White" || second[8] != `Bride's "best" friend` {
		t.Fatalf("second row = %v", second)
	}
	if ExportCSV(nil) != strings.Join(quoteAll(csvHeader), ",")+"\n" {
		t.Fatal("empty export should be the header only")
	}
}

// splitQuoted parses one fully quoted CSV line.
func splitQuoted(t *testing.T, line string) []string {
	t.Helper()
	var cells []string
	for len(line) > 0 {
		if line[0] != '"' {
			t.Fatalf("unquoted cell in %q", line)
		}
		var b strings.Builder
		i := 1
		for {
			if i >= len(line) {
				t.Fatalf("unterminated cell in %q", line)
			}
			if line[i] == '"' {
				if i+1 < len(line) && line[i+1] == '"' {
					b.WriteByte('"')
					i += 2
					continue
				}
				break
			}
			b.WriteByte(line[i])
			i++
		}
		cells = append(cells, b.String())
		line = line[i+1:]
		if strings.HasPrefix(line, ",") {
			line = line[1:]
		}
	}
	return cells
}

func quoteAll(cells []string) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = `"` + c + `"`
	}
	return out
}
