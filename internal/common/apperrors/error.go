// Package apperrors provides chainable application errors. An error carries a
// message, an optional HTTP status code and an optional application code
// reported by a remote service, and can wrap any number of other errors while
// staying matchable with errors.Is and errors.As.
package apperrors

// Error is an application error. All mutators return a new Error and leave the
// receiver untouched, so package-level sentinels can be used as templates.
type Error interface {
	error
	Unwrap() error // support for errors.Is / errors.As

	New(msg string) Error                  // new error derived from the current one
	Msg(msg string) Error                  // new message, wraps the current error
	MsgErr(msg string, err ...error) Error // new message, wraps current and extra errors
	Err(err ...error) Error                // keeps the message, attaches extra errors
	SetExpandError(bool) Error             // whether ErrorAll lists wrapped errors
	SetStatusCode(int) Error               // HTTP status code associated with the error
	StatusCode() int
	SetCode(int) Error // application code reported by the remote side
	Code() int
	Prefix(string) Error
	Suffix(string) Error
	ErrorAll() string   // message including wrapped errors when expansion is on
	UnwrapAll() []error // wrapped errors in the order they were attached
}
