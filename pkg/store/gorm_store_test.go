package store

import (
	"testing"

	"bookreview/pkg/domain"
)

// Two books without an ISBN_13 must not collide on the unique index,
// so the Unknown sentinel maps to NULL and back.
func TestBookISBNColumnMapping(t *testing.T) {
	if got := bookToModel(domain.Book{ISBN: domain.ISBNUnknown}).ISBN; got != nil {
		t.Fatalf("sentinel stored as %q, want NULL", *got)
	}
	if got := bookToModel(domain.Book{}).ISBN; got != nil {
		t.Fatalf("empty isbn stored as %q, want NULL", *got)
	}

	model := bookToModel(domain.Book{ISBN: "9780441013593"})
	if model.ISBN == nil || *model.ISBN != "9780441013593" {
		t.Fatalf("real isbn not stored: %+v", model.ISBN)
	}
	if got := bookFromModel(model).ISBN; got != "9780441013593" {
		t.Fatalf("isbn round trip = %q", got)
	}

	if got := bookFromModel(BookModel{}).ISBN; got != domain.ISBNUnknown {
		t.Fatalf("NULL isbn read back as %q, want sentinel", got)
	}
}
