package model

import "time"

// Like 点赞关系（用户 → 消息），复合唯一键避免重复点赞
type Like struct {
	ID        string `gorm:"primaryKey;type:varchar(36)"`
	UserID    string `gorm:"type:varchar(36);index:idx_like_user;index:idx_like_pair,unique;not null"`
	MessageID string `gorm:"type:varchar(36);index:idx_like_message;index:idx_like_pair,unique;not null"`
	CreatedAt time.Time
}

func (Like) TableName() string { return "likes" }
