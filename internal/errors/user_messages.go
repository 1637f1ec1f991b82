package errors

// User-friendly error messages
const (
	MsgInvalidParameters = "The provided search parameters are invalid. Please check your input and try again."
	MsgIndexUnavailable  = "We're unable to search listings right now. Please try again in a few minutes."
	MsgCursorInvalid     = "This page reference has expired. Please restart from the first page."
	MsgListingNotFound   = "Listing not found."
	MsgRateLimited       = "You're searching too quickly! Please wait a moment and try again."
	MsgInternalError     = "Something went wrong on our end. Please try again later."
)
