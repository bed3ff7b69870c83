package model

import "encoding/json"

// Title is a normalized honorific. Only the values declared below are ever
// produced by the parser.
type Title string

// Canonical titles.
const (
	TitleMr   Title = "Mr"
	TitleMrs  Title = "Mrs"
	TitleMs   Title = "Ms"
	TitleMiss Title = "Miss"
	TitleDr   Title = "Dr"
	TitleProf Title = "Prof"
)

// String returns the display form of the title.
func (t Title) String() string {
	return string(t)
}

// Person is a single structured person parsed from a homeowner name.
//
// FirstName and Initial are optional; an empty string means the value was not
// present in the input. A Person returned by the parser always has a non-empty
// LastName.
type Person struct {
	// Title is the normalized honorific (e.g. "Mr", "Dr").
	Title Title

	// FirstName is the name-cased first name phrase, possibly several words
	// ("Claire Jane").
	FirstName string

	// Initial is a single upper-case letter.
	Initial string

	// LastName is the name-cased surname, either parsed from the same part of
	// the input or inherited from a later part ("Mr and Mrs Smith").
	LastName string
}

// HasFirstName reports whether a first name was parsed.
func (p Person) HasFirstName() bool {
	return p.FirstName != ""
}

// HasInitial reports whether an initial was parsed.
func (p Person) HasInitial() bool {
	return p.Initial != ""
}

// personJSON is the wire form of Person. Absent optional fields are encoded
// as null so that every key is always present.
type personJSON struct {
	Title     Title   `json:"title"`
	FirstName *string `json:"first_name"`
	Initial   *string `json:"initial"`
	LastName  string  `json:"last_name"`
}

// MarshalJSON implements json.Marshaler.
func (p Person) MarshalJSON() ([]byte, error) {
	return json.Marshal(personJSON{
		Title:     p.Title,
		FirstName: optional(p.FirstName),
		Initial:   optional(p.Initial),
		LastName:  p.LastName,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *Person) UnmarshalJSON(data []byte) error {
	var pj personJSON
	if err := json.Unmarshal(data, &pj); err != nil {
		return err
	}
	*p = Person{
		Title:    pj.Title,
		LastName: pj.LastName,
	}
	if pj.FirstName != nil {
		p.FirstName = *pj.FirstName
	}
	if pj.Initial != nil {
		p.Initial = *pj.Initial
	}
	return nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
