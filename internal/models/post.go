package models

import (
	"strings"
	"time"
)

// Status is the lifecycle state shared by posts and comments.
type Status string

const (
	StatusActive  Status = "active"
	StatusDeleted Status = "deleted"
	StatusFlagged Status = "flagged"
)

// Category is one of the fixed forum sections.
type Category string

const (
	CategoryGeneral    Category = "General"
	CategoryAcademics  Category = "Academics"
	CategoryEvents     Category = "Events"
	CategoryClubs      Category = "Clubs"
	CategoryCareer     Category = "Career"
	CategoryCampusLife Category = "Campus Life"
	CategoryHelp       Category = "Help"
	CategoryOther      Category = "Other"
)

// Categories lists every accepted category in display order.
var Categories = []Category{
	CategoryGeneral,
	CategoryAcademics,
	CategoryEvents,
	CategoryClubs,
	CategoryCareer,
	CategoryCampusLife,
	CategoryHelp,
	CategoryOther,
}

// ParseCategory resolves a category name. An empty name yields General.
func ParseCategory(name string) (Category, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return CategoryGeneral, true
	}
	for _, c := range Categories {
		if string(c) == name {
			return c, true
		}
	}
	return "", false
}

type Post struct {
	ID            string     `gorm:"type:varchar(36);primaryKey" json:"id" bson:"_id"`
	Title         string     `gorm:"not null" json:"title" bson:"title"`
	Content       string     `gorm:"type:text;not null" json:"content" bson:"content"`
	AuthorID      string     `gorm:"type:varchar(36);not null;index" json:"authorId" bson:"author"`
	Tags          StringList `json:"tags" bson:"tags"`
	Category      Category   `gorm:"type:varchar(32);not null;default:General;index" json:"category" bson:"category"`
	Likes         StringList `json:"likes" bson:"likes"`
	LikesCount    int        `gorm:"not null;default:0" json:"likesCount" bson:"likesCount"`
	CommentsCount int        `gorm:"not null;default:0" json:"commentsCount" bson:"commentsCount"`
	IsEdited      bool       `gorm:"not null;default:false" json:"isEdited" bson:"isEdited"`
	Status        Status     `gorm:"type:varchar(16);not null;default:active;index" json:"status" bson:"status"`
	CreatedAt     time.Time  `gorm:"index" json:"createdAt" bson:"createdAt"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime:false" json:"updatedAt" bson:"updatedAt"`
}

func (p *Post) IsActive() bool {
	return p.Status == StatusActive
}
