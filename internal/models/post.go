package models

import "time"

// Post is a single authored text entry. Posts are never edited and are hard-deleted.
type Post struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Title     string    `gorm:"size:100;not null" json:"title"`
	Body      string    `gorm:"type:text;not null" json:"body"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Author    *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"author,omitempty"`
}

// OwnedBy reports whether the post belongs to the given user.
func (p *Post) OwnedBy(user *User) bool {
	return user != nil && p.UserID == user.ID
}
