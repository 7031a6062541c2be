// Package session persists the current credential pair.
//
// Every backend stores the pair under two logical keys, access and refresh,
// and writes them together. Get on an empty backend returns zero Credentials
// and no error.
package session
