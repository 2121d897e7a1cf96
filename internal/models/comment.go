package models

import "time"

type Comment struct {
	ID       string `gorm:"type:varchar(36);primaryKey" json:"id" bson:"_id"`
	PostID   string `gorm:"type:varchar(36);not null;index" json:"postId" bson:"post"`
	Content  string `gorm:"type:text;not null" json:"content" bson:"content"`
	AuthorID string `gorm:"type:varchar(36);not null;index" json:"authorId" bson:"author"`
	// ParentComment is nil for root comments.
	ParentComment *string    `gorm:"type:varchar(36);index" json:"parentComment" bson:"parentComment"`
	Likes         StringList `json:"likes" bson:"likes"`
	LikesCount    int        `gorm:"not null;default:0" json:"likesCount" bson:"likesCount"`
	IsEdited      bool       `gorm:"not null;default:false" json:"isEdited" bson:"isEdited"`
	Status        Status     `gorm:"type:varchar(16);not null;default:active;index" json:"status" bson:"status"`
	CreatedAt     time.Time  `gorm:"index" json:"createdAt" bson:"createdAt"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime:false" json:"updatedAt" bson:"updatedAt"`
}

func (c *Comment) IsActive() bool {
	return c.Status == StatusActive
}

func (c *Comment) IsReply() bool {
	return c.ParentComment != nil
}

// ParentID returns the parent comment id, or "" for a root comment.
func (c *Comment) ParentID() string {
	if c.ParentComment == nil {
		return ""
	}
	return *c.ParentComment
}
