package repositories

import (
	"github.com/zatekoja/keywordscout/internal/domain/entities"
)

// CorpusRepository is read-only access to the loaded keyword corpus
type CorpusRepository interface {
	// Lookup finds a record by keyword, ignoring case and extra whitespace
	Lookup(keyword string) (*entities.KeywordRecord, bool)

	// All returns every record in source order
	All() []*entities.KeywordRecord

	// Len returns the number of records
	Len() int
}
