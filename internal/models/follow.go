package models

// Follow is a directed edge meaning "follower follows followee".
type Follow struct {
	// FollowerID is the user that follows the followee.
	FollowerID string `gorm:"primaryKey" json:"followerId"`
	Follower   *User  `gorm:"foreignKey:FollowerID" json:"-"`
	// FolloweeID is the user being followed by the follower.
	FolloweeID string `gorm:"primaryKey" json:"followeeId"`
	Followee   *User  `gorm:"foreignKey:FolloweeID" json:"-"`
}

// TableName specifies the table name for GORM.
func (Follow) TableName() string {
	return "follows"
}
