package domain

import (
	"strings"
	"time"
)

// KnowledgeBase is one ingested document in an owner's persistent knowledge
// base. The vectors it produced live in the vector store under the owner's
// scope; VectorIDs is the unit of later deletion.
type KnowledgeBase struct {
	ID        string
	OwnerID   string
	FileName  string
	VectorIDs []string
	CreatedAt time.Time
}

// Validate checks required fields before persistence.
func (k *KnowledgeBase) Validate() error {
	if strings.TrimSpace(k.ID) == "" {
		return ErrMissingRequiredField
	}
	if strings.TrimSpace(k.OwnerID) == "" {
		return ErrMissingRequiredField
	}
	if strings.TrimSpace(k.FileName) == "" {
		return ErrMissingRequiredField
	}
	return nil
}
