// Package report renders import results.
//
// Three formats are available:
//   - SimpleWriter: tables for terminal display
//   - JSONWriter: the same JSON document the upload endpoint returns
//   - MarkdownWriter: a shareable summary with a mermaid chart
//
// Writers implement the Writer interface; New picks one by format name.
package report
