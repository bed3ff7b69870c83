// Package parser turns free-text homeowner names into structured people.
//
// A name string such as "Dr & Mrs Joe Bloggs" is tokenized on spaces, split
// into parts on the conjunctions "and" and "&", and each part is read as
//
//	<title> [<first name words> | <initial>] [<last name>]
//
// Parts without a last name inherit it from the nearest following part, so
// "Mr and Mrs Smith" yields two people named Smith. A part that still lacks a
// last name after inheritance rejects the whole input.
//
// The grammar is deliberately small: only titles from a fixed table are
// accepted, only one initial per part is recognized, and first-name words that
// precede an initial are dropped. Parsing is a pure function of the input, so a
// single Parser may be shared between goroutines.
package parser
