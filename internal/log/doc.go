// Package log provides slog loggers that never write homeowner names.
//
// Row errors and parser failures naturally want to log the offending input,
// and the upload server sees request headers. SecureHandler wraps any
// slog.Handler and replaces such values with MaskValue:
//   - attributes keyed as personal data (input, name, first_name, last_name,
//     initial, people, ...)
//   - credential keys (authorization, cookie, token, ...)
//   - values that look like e-mail addresses, phone numbers or auth tokens
//
// Redaction applies at every level, including Debug.
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	logger.Debug("row rejected", "row", 3, "input", "Sir Elton John")
//	// row=3 input=***REDACTED***
//
//	slog.SetDefault(logger)
package log
