package models

import "gorm.io/gorm"

// Topic groups questions by subject, e.g. "Arrays" or "Dynamic Programming".
type Topic struct {
	gorm.Model
	Name string `json:"name"`
	// unique among rows that are not soft deleted
	Slug        string `json:"slug" gorm:"uniqueIndex:idx_topics_slug_live,where:deleted_at IS NULL;not null"`
	Description string `json:"description"`
	Position    int    `json:"position"`

	Questions []Question `gorm:"foreignKey:TopicID;constraint:OnDelete:CASCADE;" json:"questions,omitempty"`
}
