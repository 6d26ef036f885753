package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// BlankDocumentPlaceholder is the title and content given to a document created without either.
const BlankDocumentPlaceholder = "UNTITLED"

// Document belongs to exactly one collection. Its content is indexed
// paragraph by paragraph in the namespace NamespaceName(ID) of the collection's index.
type Document struct {
	ID           int64     `json:"id"`
	Title        string    `json:"title"`
	Content      string    `json:"content"`
	CollectionID int64     `json:"collection_id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsBlank reports whether the document is an untitled placeholder.
func (d *Document) IsBlank() bool {
	return d.Content == BlankDocumentPlaceholder
}

// NamespaceName returns the vector namespace of a document.
func NamespaceName(documentID int64) string {
	return fmt.Sprintf("document-%d", documentID)
}

// VectorID returns the id of the i-th paragraph vector inside a document namespace.
func VectorID(paragraph int) string {
	return fmt.Sprintf("paragraph-%d", paragraph)
}

var digitsPattern = regexp.MustCompile(`\d+`)

// ParseNamespaceDocumentID extracts the document id embedded in a namespace name.
// The namespace must embed exactly one integer.
func ParseNamespaceDocumentID(namespace string) (int64, error) {
	found := digitsPattern.FindAllString(namespace, -1)
	if len(found) != 1 {
		return 0, fmt.Errorf("namespace %q: %w", namespace, ErrInvalidInput)
	}
	id, err := strconv.ParseInt(found[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("namespace %q: %w", namespace, ErrInvalidInput)
	}
	return id, nil
}

// ParseVectorParagraph extracts the paragraph index from a vector id.
// Returns -1 when the id does not follow the paragraph-{i} format.
func ParseVectorParagraph(vectorID string) int {
	found := digitsPattern.FindAllString(vectorID, -1)
	if len(found) != 1 {
		return -1
	}
	i, err := strconv.Atoi(found[0])
	if err != nil {
		return -1
	}
	return i
}
