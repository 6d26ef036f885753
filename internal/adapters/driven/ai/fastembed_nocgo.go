//go:build !cgo

package ai

import (
	"errors"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// ErrFastEmbedNotAvailable is returned by binaries built without cgo.
var ErrFastEmbedNotAvailable = errors.New("fastembed: not available without cgo, use the openai provider against a TEI server instead")

// NewFastEmbed always fails without cgo.
func NewFastEmbed(_ *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	return nil, ErrFastEmbedNotAvailable
}
