package services

import (
	"log/slog"

	"github.com/Lllllllleong/geminiocr/internal/models"
	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// TakeInventory counts images and PDFs and the pages inside each readable PDF.
// Unreadable PDFs are still dispatched; the remote service decides what it can parse.
func TakeInventory(docs []models.Document) models.Inventory {
	var inv models.Inventory
	for _, doc := range docs {
		if doc.Ext != "pdf" {
			inv.Images++
			continue
		}
		inv.PDFs++
		pages, err := api.PageCountFile(doc.Path)
		if err != nil {
			slog.Debug("Could not read PDF page count.", "name", doc.Name, "error", err)
			continue
		}
		inv.PDFPages += pages
	}
	return inv
}
