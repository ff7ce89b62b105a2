package responses

// Package responses provides standardized response formatting following RFC 7807 Problem Details standard.
// All API responses use consistent formatting for success and error cases.
