package domain

import "time"

// SearchHistory is one past search of an authenticated user. Rows are only
// ever appended.
type SearchHistory struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"not null;index:idx_history_user_created,priority:1" json:"user_id"`
	Query      string    `gorm:"size:255;not null" json:"query"`
	Parameters string    `gorm:"type:text" json:"parameters"`
	CreatedAt  time.Time `gorm:"index:idx_history_user_created,priority:2,sort:desc" json:"created_at"`
}

func (SearchHistory) TableName() string {
	return "search_histories"
}
