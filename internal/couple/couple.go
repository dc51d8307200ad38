// Package couple defines the couple record shapes shared by the bulk import
// flow and the single-record create flow. It has no transport or UI
// dependencies.
package couple

import (
	"regexp"
	"strings"
)

// Columns lists the twelve expected CSV columns in their fixed positional order.
var Columns = []string{
	"name",
	"email",
	"phone",
	"partner1_name",
	"partner2_name",
	"wedding_date",
	"budget",
	"vibe_tags",
	"venue_name",
	"guest_count",
	"venue_city",
	"venue_state",
}

// NumColumns is the number of expected CSV columns.
const NumColumns = 12

// ImportRow is the parsed representation of one CSV data line.
// Fields hold raw trimmed strings; a missing trailing column is an empty
// string and stays absent in the outbound request. No content validation
// happens here.
type ImportRow struct {
	Name         string
	Email        string
	Phone        string
	Partner1Name string
	Partner2Name string
	WeddingDate  string
	Budget       string
	VibeTags     string
	VenueName    string
	GuestCount   string
	VenueCity    string
	VenueState   string
}

// FromFields builds an ImportRow from positional CSV fields.
// Fields beyond the twelfth are ignored; missing trailing fields stay empty.
func FromFields(fields []string) ImportRow {
	get := func(i int) string {
		if i < len(fields) {
			return fields[i]
		}
		return ""
	}

	return ImportRow{
		Name:         get(0),
		Email:        get(1),
		Phone:        get(2),
		Partner1Name: get(3),
		Partner2Name: get(4),
		WeddingDate:  get(5),
		Budget:       get(6),
		VibeTags:     get(7),
		VenueName:    get(8),
		GuestCount:   get(9),
		VenueCity:    get(10),
		VenueState:   get(11),
	}
}

// CreateRequest is the JSON payload for the backend's couple creation
// endpoint. Empty fields are omitted rather than sent as empty strings.
type CreateRequest struct {
	Name         string `json:"name,omitempty"`
	Email        string `json:"email,omitempty"`
	Phone        string `json:"phone,omitempty"`
	Partner1Name string `json:"partner1_name,omitempty"`
	Partner2Name string `json:"partner2_name,omitempty"`
	WeddingDate  string `json:"wedding_date,omitempty"`
	Budget       string `json:"budget,omitempty"`
	VibeTags     string `json:"vibe_tags,omitempty"`
	VenueName    string `json:"venue_name,omitempty"`
	GuestCount   string `json:"guest_count,omitempty"`
	VenueCity    string `json:"venue_city,omitempty"`
	VenueState   string `json:"venue_state,omitempty"`
}

// CreateRequest converts the row into a creation payload with every field
// trimmed. Trimming to empty leaves the field absent in the payload.
func (r ImportRow) CreateRequest() CreateRequest {
	return CreateRequest{
		Name:         strings.TrimSpace(r.Name),
		Email:        strings.TrimSpace(r.Email),
		Phone:        strings.TrimSpace(r.Phone),
		Partner1Name: strings.TrimSpace(r.Partner1Name),
		Partner2Name: strings.TrimSpace(r.Partner2Name),
		WeddingDate:  strings.TrimSpace(r.WeddingDate),
		Budget:       strings.TrimSpace(r.Budget),
		VibeTags:     strings.TrimSpace(r.VibeTags),
		VenueName:    strings.TrimSpace(r.VenueName),
		GuestCount:   strings.TrimSpace(r.GuestCount),
		VenueCity:    strings.TrimSpace(r.VenueCity),
		VenueState:   strings.TrimSpace(r.VenueState),
	}
}

// emailPattern matches the local@domain.tld shape: runs of non-whitespace,
// non-@ characters around a single @ and at least one dot in the domain.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidEmail reports whether s looks like a deliverable address.
// Only the single-record create path validates emails; bulk import
// forwards whatever the file contains.
func ValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// TemplateRow is the literal example data row offered to users in the
// downloadable CSV template.
const TemplateRow = `"Smith & Johnson",couple@example.com,"(555) 123-4567",Alex,Taylor,2025-12-01,50000,"rustic,boho","Willow Creek Vineyard",150,Napa,CA`

// TemplateCSV returns the downloadable import template: the header line
// followed by one example row.
func TemplateCSV() string {
	return strings.Join(Columns, ",") + "\n" + TemplateRow + "\n"
}
