package models

// View projections shape one canonical entity into the payload a given
// viewer is allowed to see. The viewer is the (possibly absent) subject of
// the authenticated caller, passed explicitly through the call chain.

// PublicUser is the user information available to everyone.
type PublicUser struct {
	ID        string  `json:"id"`
	Username  string  `json:"username"`
	AvatarURL *string `json:"avatarUrl"`
}

// AuthenticatedUser extends PublicUser with fields only visible to
// authenticated callers.
type AuthenticatedUser struct {
	PublicUser
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
}

// PostView is the representation of a top-level post.
type PostView struct {
	ID       string     `json:"id"`
	Creator  PublicUser `json:"creator"`
	Text     *string    `json:"text"`
	MediaURL *string    `json:"mediaUrl"`
	MediaType *string   `json:"mediaType"`
	Likes    int64      `json:"likes"`
	// LikedBySelf is nil for anonymous callers, otherwise whether the
	// viewer liked this post.
	LikedBySelf *bool `json:"likedBySelf"`
	Replies     int64 `json:"replies"`
}

// ReplyView is the representation of a reply; replies carry their parent id
// and no reply count (replies cannot have replies).
type ReplyView struct {
	ID          string     `json:"id"`
	ParentID    string     `json:"parentId"`
	Creator     PublicUser `json:"creator"`
	Text        *string    `json:"text"`
	MediaURL    *string    `json:"mediaUrl"`
	MediaType   *string    `json:"mediaType"`
	Likes       int64      `json:"likes"`
	LikedBySelf *bool      `json:"likedBySelf"`
}

// NewPublicUser projects a user entity to its public shape.
func NewPublicUser(u *User) PublicUser {
	return PublicUser{
		ID:        u.ID,
		Username:  u.Username,
		AvatarURL: u.AvatarURL,
	}
}

// NewAuthenticatedUser projects a user entity to its authenticated shape.
func NewAuthenticatedUser(u *User) AuthenticatedUser {
	return AuthenticatedUser{
		PublicUser: NewPublicUser(u),
		Firstname:  u.Firstname,
		Lastname:   u.Lastname,
	}
}

// NewPostView projects a post entity for the given viewer. A nil viewer
// yields a nil LikedBySelf.
func NewPostView(p *Post, viewer *string) PostView {
	return PostView{
		ID:          p.ID,
		Creator:     NewPublicUser(&p.Creator),
		Text:        p.Text,
		MediaURL:    p.MediaURL,
		MediaType:   p.MediaType,
		Likes:       p.LikesCount,
		LikedBySelf: likedBySelf(p, viewer),
		Replies:     p.RepliesCount,
	}
}

// NewReplyView projects a reply entity for the given viewer.
func NewReplyView(p *Post, viewer *string) ReplyView {
	var parentID string
	if p.ParentID != nil {
		parentID = *p.ParentID
	}
	return ReplyView{
		ID:          p.ID,
		ParentID:    parentID,
		Creator:     NewPublicUser(&p.Creator),
		Text:        p.Text,
		MediaURL:    p.MediaURL,
		MediaType:   p.MediaType,
		Likes:       p.LikesCount,
		LikedBySelf: likedBySelf(p, viewer),
	}
}

func likedBySelf(p *Post, viewer *string) *bool {
	if viewer == nil {
		return nil
	}
	liked := p.Liked
	return &liked
}

// PaginatedResult is the envelope for every paginated response. Next and
// Previous are links carrying pagination (and search) parameters, or null
// when there is no further page in that direction.
type PaginatedResult[T any] struct {
	Count    int64   `json:"count"`
	Data     []T     `json:"data"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
}
