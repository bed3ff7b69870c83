// Package main provides the entry point for the homeowners CLI.
//
// homeowners turns free-text homeowner names from CSV exports into
// structured people (title, first name, initial, last name).
//
// Usage:
//
//	homeowners import examples.csv
//	homeowners import --header --json examples.csv
//	homeowners serve --listen 127.0.0.1:8080
//
// See --help for all available options.
package main

// main is the entry point for homeowners.
func main() {
	Execute()
}
