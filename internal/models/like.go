package models

// Like links a user to a post they liked. The composite primary key makes
// the relation idempotent at the schema level: a user can like a given post
// at most once.
type Like struct {
	PostID string `gorm:"primaryKey" json:"postId"`
	Post   *Post  `gorm:"foreignKey:PostID" json:"-"`
	UserID string `gorm:"primaryKey" json:"userId"`
	User   *User  `gorm:"foreignKey:UserID" json:"-"`
}

// TableName specifies the table name for GORM.
func (Like) TableName() string {
	return "likes"
}
