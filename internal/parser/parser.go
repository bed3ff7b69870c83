package parser

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/nao1215/homeowners/internal/model"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Parser parses homeowner name strings. The zero value is ready to use and a
// Parser holds no state between calls.
type Parser struct{}

// New returns a Parser.
func New() *Parser {
	return &Parser{}
}

// Parse parses input into people in left-to-right order.
//
// Blank input yields no people and no error: a blank row is not a parse
// failure at this layer. Any other failure is an *InvalidNameError and the
// whole input is rejected.
func (p *Parser) Parse(input string) ([]model.Person, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, nil
	}

	parts := splitIntoParts(tokenize(input))

	drafts := make([]model.Person, 0, len(parts))
	for _, part := range parts {
		person, err := parsePart(input, part)
		if err != nil {
			return nil, err
		}
		drafts = append(drafts, person)
	}

	people := inheritLastNames(drafts)
	if err := validate(input, people); err != nil {
		return nil, err
	}
	return people, nil
}

// tokenize splits on single spaces and drops the empty tokens produced by
// runs of spaces.
func tokenize(input string) []string {
	fields := strings.Split(input, " ")
	tokens := fields[:0]
	for _, f := range fields {
		if f != "" {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// splitIntoParts groups tokens into one part per person. Conjunctions end the
// current part and are dropped; a part is only emitted when it holds at least
// one token.
func splitIntoParts(tokens []string) [][]string {
	var parts [][]string
	var current []string

	for _, token := range tokens {
		if !isConjunction(token) {
			current = append(current, token)
			continue
		}
		if len(current) > 0 {
			parts = append(parts, current)
			current = nil
		}
	}
	if len(current) > 0 {
		parts = append(parts, current)
	}
	return parts
}

// parsePart reads one part as title, optional middle words and optional last
// name. An empty LastName in the result means it must be inherited.
func parsePart(input string, words []string) (model.Person, error) {
	if len(words) == 0 {
		return model.Person{}, invalidName(input, msgEmptyNamePart)
	}

	title, ok := NormalizeTitle(words[0])
	if !ok {
		return model.Person{}, invalidName(input, msgInvalidTitle+words[0])
	}
	words = words[1:]

	person := model.Person{Title: title}
	if len(words) > 0 {
		person.LastName = formatName(words[len(words)-1])
		words = words[:len(words)-1]
	}

	person.FirstName, person.Initial = processMiddleWords(words)
	return person, nil
}

// processMiddleWords scans the words between title and last name.
// The first single-letter word (trailing periods ignored) is the initial; the
// scan stops there and any first-name words seen before it are discarded.
// Without an initial, all words form the first name.
func processMiddleWords(words []string) (firstName, initial string) {
	var firstNameParts []string

	for _, word := range words {
		if letter, ok := asInitial(word); ok {
			return "", letter
		}
		firstNameParts = append(firstNameParts, formatName(word))
	}
	return strings.Join(firstNameParts, " "), ""
}

// asInitial returns the upper-cased letter when word is a single alphabetic
// character followed by any number of periods.
func asInitial(word string) (string, bool) {
	trimmed := strings.TrimRight(word, ".")
	if utf8.RuneCountInString(trimmed) != 1 {
		return "", false
	}
	r, _ := utf8.DecodeRuneInString(trimmed)
	if !unicode.IsLetter(r) {
		return "", false
	}
	return string(unicode.ToUpper(r)), true
}

// formatName name-cases a word: each hyphen-separated segment is lowercased
// and its first character upper-cased ("hughes-eastwood" -> "Hughes-Eastwood").
func formatName(word string) string {
	// Casers are stateful, so each call gets its own.
	lower := cases.Lower(language.Und)

	segments := strings.Split(word, "-")
	for i, segment := range segments {
		segments[i] = upperFirst(lower.String(segment))
	}
	return strings.Join(segments, "-")
}

func upperFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// inheritLastNames returns a copy of drafts in which every person without a
// last name takes the last name of the nearest following person that has one.
func inheritLastNames(drafts []model.Person) []model.Person {
	people := make([]model.Person, len(drafts))

	lastSeen := ""
	for i := len(drafts) - 1; i >= 0; i-- {
		person := drafts[i]
		if person.LastName != "" {
			lastSeen = person.LastName
		} else {
			person.LastName = lastSeen
		}
		people[i] = person
	}
	return people
}

// validate rejects the input if any person is still missing a last name.
func validate(input string, people []model.Person) error {
	for _, person := range people {
		if person.LastName == "" {
			return invalidName(input, msgMissingLastName)
		}
	}
	return nil
}
