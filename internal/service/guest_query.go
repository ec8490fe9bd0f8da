package service

import (
	"strings"
	"unicode"

	"wedding/guesthub/internal/model"
)

// GuestStats is derived from a loaded guest list. Every count except
// Archived ignores archived records.
type GuestStats struct {
	Total       int `json:"total"`
	Linked      int `json:"linked"`
	Confirmed   int `json:"confirmed"`
	Pending     int `json:"pending"`
	Declined    int `json:"declined"`
	Archived    int `json:"archived"`
	WithDietary int `json:"with_dietary"`
	WithPlusOne int `json:"with_plus_one"`
}

func ComputeStats(guests []model.Guest) GuestStats {
	var st GuestStats
	for i := range guests {
		g := &guests[i]
		if g.IsArchived {
			st.Archived++
			continue
		}
		st.Total++
		if g.IsLinked() {
			st.Linked++
		}
		switch g.RSVPStatus {
		case model.RSVPStatusConfirmed:
			st.Confirmed++
		case model.RSVPStatusDeclined:
			st.Declined++
		default:
			st.Pending++
		}
		if g.HasDietaryInfo() {
			st.WithDietary++
		}
		if g.HasPlusOne() {
			st.WithPlusOne++
		}
	}
	return st
}

// SearchGuests filters guests by a case-insensitive substring. A blank term
// returns guests as given.
func SearchGuests(guests []model.Guest, term string) []model.Guest {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return guests
	}
	var termDigits string
	if looksLikePhone(term) {
		termDigits = digitsOnly(term)
	}

	out := make([]model.Guest, 0, len(guests))
	for i := range guests {
		if guestMatches(&guests[i], term, termDigits) {
			out = append(out, guests[i])
		}
	}
	return out
}

func guestMatches(g *model.Guest, term, termDigits string) bool {
	fields := []string{
		g.DisplayName,
		g.FullName(),
		g.Email,
		g.PlusOneName,
		g.Contact().Relationship,
		g.Phone,
	}
	for _, f := range fields {
		if f != "" && strings.Contains(strings.ToLower(f), term) {
			return true
		}
	}
	if termDigits != "" {
		if phone := digitsOnly(g.Phone); phone != "" && strings.Contains(phone, termDigits) {
			return true
		}
	}
	return false
}

// looksLikePhone reports whether term holds only digits and phone
// punctuation, with at least one digit.
func looksLikePhone(term string) bool {
	hasDigit := false
	for _, r := range term {
		switch {
		case unicode.IsDigit(r):
			hasDigit = true
		case strings.ContainsRune(" +-().", r):
		default:
			return false
		}
	}
	return hasDigit
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
