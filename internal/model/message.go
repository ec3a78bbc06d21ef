package model

import "time"

// MaxMessageLen 短消息长度上限
const MaxMessageLen = 140

// Message 用户发布的短消息，归属唯一作者
type Message struct {
	ID        string `gorm:"primaryKey;type:varchar(36)"`
	UserID    string `gorm:"type:varchar(36);index:idx_message_user;not null"`
	Text      string `gorm:"type:varchar(140);not null"`
	CreatedAt time.Time
}

func (Message) TableName() string { return "messages" }
