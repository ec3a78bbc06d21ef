package model

import "time"

const (
	DefaultImageURL       = "/static/images/default-pic.png"
	DefaultHeaderImageURL = "/static/images/warbler-hero.jpg"
)

// User 用户主体。Password 仅保存 bcrypt 哈希，绝不落明文。
type User struct {
	ID             string `gorm:"primaryKey;type:varchar(36)"`
	Username       string `gorm:"type:varchar(64);uniqueIndex:idx_user_username;not null"`
	Email          string `gorm:"type:varchar(128);uniqueIndex:idx_user_email;not null"`
	Password       string `gorm:"type:varchar(128);not null" json:"-"`
	ImageURL       string `gorm:"type:text"`
	HeaderImageURL string `gorm:"type:text"`
	Bio            string `gorm:"type:text"`
	Location       string `gorm:"type:varchar(128)"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (User) TableName() string { return "users" }
