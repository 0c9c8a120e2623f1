package models

import (
	"path/filepath"
	"strings"
)

// Document is a reference to one input file discovered for OCR.
type Document struct {
	Name string // Display name (base filename)
	Path string // Absolute location on disk
	Ext  string // Lowercased extension without the dot
}

// NewDocument builds a Document from a filesystem path.
func NewDocument(path string) Document {
	return Document{
		Name: filepath.Base(path),
		Path: path,
		Ext:  strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")),
	}
}

var mimeTypes = map[string]string{
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"pdf":  "application/pdf",
}

// Supported reports whether the extension is one the OCR backends accept.
func Supported(ext string) bool {
	_, ok := mimeTypes[strings.ToLower(ext)]
	return ok
}

// MIMEType returns the MIME type sent alongside the document bytes.
func (d Document) MIMEType() (string, bool) {
	mt, ok := mimeTypes[d.Ext]
	return mt, ok
}

// Task pairs a document with its position in the discovery output.
type Task struct {
	Index    int
	Document Document
}
