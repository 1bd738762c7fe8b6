package models

import (
	"strings"

	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"
)

// Post represents a post or a reply. A post with a nil ParentID is a
// top-level post; a post with a non-nil ParentID is a reply. Replies cannot
// have replies. A post must always have text or media.
type Post struct {
	// ID is a ULID: lexicographic order equals creation order.
	ID        string  `gorm:"primaryKey" json:"id"`
	CreatorID string  `gorm:"not null;index" json:"creatorId"`
	Creator   User    `gorm:"foreignKey:CreatorID" json:"creator"`
	Text      *string `json:"text"`
	// MediaURL and MediaType are both null or both set.
	MediaURL  *string `json:"mediaUrl"`
	MediaType *string `json:"mediaType"`
	ParentID  *string `gorm:"index" json:"parentId,omitempty"`
	Parent    *Post   `gorm:"foreignKey:ParentID;constraint:OnDelete:CASCADE" json:"-"`

	Likes   []Like `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"-"`
	Replies []Post `gorm:"foreignKey:ParentID" json:"-"`

	// LikesCount, RepliesCount and Liked are not persisted; computed at query time.
	LikesCount   int64 `gorm:"->;-:migration" json:"-"`
	RepliesCount int64 `gorm:"->;-:migration" json:"-"`
	Liked        bool  `gorm:"->;-:migration" json:"-"`

	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate assigns a fresh ULID when none is set.
func (p *Post) BeforeCreate(_ *gorm.DB) error {
	if p.ID == "" {
		p.ID = ulid.Make().String()
	}
	return nil
}

// MediaID returns the object storage name of the attached media, derived
// from the last path segment of the media URL.
func (p *Post) MediaID() *string {
	return objectIDFromURL(p.MediaURL)
}

// Valid reports whether the post satisfies the content invariant:
// text or media must be present.
func (p *Post) Valid() bool {
	return p.Text != nil || p.MediaURL != nil
}

func objectIDFromURL(u *string) *string {
	if u == nil {
		return nil
	}
	parts := strings.Split(*u, "/")
	id := parts[len(parts)-1]
	return &id
}
