// Package models contains data structures for the application's domain models.
package models

// User represents an account in the Mumble system. The ID is the opaque
// subject assigned by the identity provider; rows are created implicitly
// on first successful authentication and never hard-deleted through the API.
type User struct {
	ID        string `gorm:"primaryKey" json:"id"`
	Username  string `gorm:"not null;uniqueIndex" json:"username"`
	Firstname string `gorm:"not null" json:"firstname"`
	Lastname  string `gorm:"not null" json:"lastname"`
	// AvatarURL and AvatarMediaType are both null or both set.
	AvatarURL       *string `json:"avatarUrl"`
	AvatarMediaType *string `json:"avatarMediaType"`

	Posts     []Post   `gorm:"foreignKey:CreatorID;constraint:OnDelete:CASCADE" json:"-"`
	Likes     []Like   `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Followers []Follow `gorm:"foreignKey:FolloweeID;constraint:OnDelete:CASCADE" json:"-"`
	Followees []Follow `gorm:"foreignKey:FollowerID;constraint:OnDelete:CASCADE" json:"-"`
}

// AvatarID returns the object storage name of the current avatar, derived
// from the last path segment of the avatar URL.
func (u *User) AvatarID() *string {
	return objectIDFromURL(u.AvatarURL)
}
