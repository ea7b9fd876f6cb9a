// Package common provides shared types and utilities for UI features.
package common

// PageMeta holds the document-level data every full page needs.
type PageMeta struct {
	Title string
	IsDev bool // enables the hot reload stream
}
