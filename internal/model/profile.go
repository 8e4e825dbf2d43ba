// Package model 定义了与数据库表对应的 Go 结构体。
package model

import "time"

// User 对应于数据库中的 'users' 表。
// 账号在上传发生之前已经存在，管道只按预哈希的钱包号查找它。
type User struct {
	ID uint `gorm:"primaryKey;autoIncrement" json:"id"`
	// WalletNumber 是预先哈希过的钱包标识，管道自身从不做哈希。
	WalletNumber string `gorm:"type:varchar(128);not null;uniqueIndex" json:"walletNumber"`
	// IsProfileCreated 在该账号第一次写入资料时置为 true。
	IsProfileCreated bool      `gorm:"not null;default:false" json:"isProfileCreated"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (User) TableName() string {
	return "users"
}

// Profile 对应于数据库中的 'profiles' 表。
// 它保存一份用户资料以及视频处理产物的访问地址。
type Profile struct {
	ID     uint `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID uint `gorm:"not null;uniqueIndex" json:"userId"`
	// 表单字段，每次资料提交都会整体覆盖。
	Name      string  `gorm:"type:varchar(255)" json:"name"`
	Hobbies   string  `gorm:"type:text" json:"hobbies"`
	City      string  `gorm:"type:varchar(100)" json:"city"`
	Address   string  `gorm:"type:text" json:"address"`
	Latitude  float64 `gorm:"type:double" json:"latitude"`
	Longitude float64 `gorm:"type:double" json:"longitude"`
	IsMLM     bool    `gorm:"not null;default:false" json:"isMlm"`
	// IsAdmin 在资料更新时必须保持原值，管理员身份不因重新提交而丢失。
	IsAdmin bool `gorm:"not null;default:false" json:"isAdmin"`
	// IsModerated 在每次更新后重置为 false，资料重新进入审核队列。
	IsModerated bool `gorm:"not null;default:false" json:"isModerated"`
	IsIncognito bool `gorm:"not null;default:false" json:"isIncognito"`
	// 处理产物的公开访问地址。
	VideoURL   string    `gorm:"type:varchar(512)" json:"videoUrl"`
	PreviewURL string    `gorm:"type:varchar(512)" json:"previewUrl"`
	LogoURL    string    `gorm:"type:varchar(512)" json:"logoUrl"`
	Hashtags   []Hashtag `gorm:"many2many:profile_hashtags" json:"hashtags"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (Profile) TableName() string {
	return "profiles"
}

// Hashtag 对应于数据库中的 'hashtags' 表。
// 标签名全局唯一，小写存储。
type Hashtag struct {
	ID   uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Name string `gorm:"type:varchar(100);not null;uniqueIndex" json:"name"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (Hashtag) TableName() string {
	return "hashtags"
}
