// Package repository 定义了与数据库进行数据交换的接口和实现。
package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"vprofile-go/internal/model"
)

// ProfileRepository 接口定义了资料持久化阶段的操作。
type ProfileRepository interface {
	// UpsertProfile 在一个事务内写入（或更新）钱包号对应账号的资料与标签。
	// 任何一步失败都会整体回滚，不留下部分写入。
	UpsertProfile(ctx context.Context, walletNumber string, form map[string]interface{}, videoURL, previewURL, logoURL string) error
}

// profileRepository 是 ProfileRepository 接口的 GORM 实现。
type profileRepository struct {
	db *gorm.DB
}

// NewProfileRepository 创建一个新的 ProfileRepository 实例。
func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &profileRepository{db: db}
}

// UpsertProfile 实现资料落库。首次提交创建资料并在账号上置位
// is_profile_created；再次提交只更新可变字段，保留 is_admin 并把
// is_moderated / is_incognito 重置为 false（资料重新进入审核队列）。
func (r *profileRepository) UpsertProfile(ctx context.Context, walletNumber string, form map[string]interface{}, videoURL, previewURL, logoURL string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user model.User
		if err := tx.Where("wallet_number = ?", walletNumber).First(&user).Error; err != nil {
			return fmt.Errorf("按钱包号查找用户失败 (wallet=%s): %w", walletNumber, err)
		}

		var profile model.Profile
		err := tx.Where("user_id = ?", user.ID).First(&profile).Error
		creating := errors.Is(err, gorm.ErrRecordNotFound)
		if err != nil && !creating {
			return fmt.Errorf("查找既有资料失败 (userID=%d): %w", user.ID, err)
		}

		ApplySubmission(&profile, form, videoURL, previewURL, logoURL)

		if creating {
			profile.UserID = user.ID
			if err := tx.Create(&profile).Error; err != nil {
				return fmt.Errorf("创建资料失败 (userID=%d): %w", user.ID, err)
			}
			user.IsProfileCreated = true
			if err := tx.Save(&user).Error; err != nil {
				return fmt.Errorf("更新用户资料创建标记失败 (userID=%d): %w", user.ID, err)
			}
		} else {
			if err := tx.Save(&profile).Error; err != nil {
				return fmt.Errorf("更新资料失败 (profileID=%d): %w", profile.ID, err)
			}
		}

		// 标签：先建缺失的行，再整体替换资料与标签的关联。
		names := ParseHashtags(formString(form["hashtags"]))
		hashtags, err := ensureHashtags(tx, names)
		if err != nil {
			return err
		}
		if err := tx.Model(&profile).Association("Hashtags").Replace(hashtags); err != nil {
			return fmt.Errorf("更新资料标签关联失败 (profileID=%d): %w", profile.ID, err)
		}
		return nil
	})
}

// ensureHashtags 将标签名与既有行去重比对，创建数据库中尚不存在的标签。
func ensureHashtags(tx *gorm.DB, names []string) ([]model.Hashtag, error) {
	if len(names) == 0 {
		return nil, nil
	}

	var existing []model.Hashtag
	if err := tx.Where("name IN ?", names).Find(&existing).Error; err != nil {
		return nil, fmt.Errorf("查询既有标签失败: %w", err)
	}

	known := make(map[string]bool, len(existing))
	for _, h := range existing {
		known[h.Name] = true
	}

	result := existing
	for _, name := range names {
		if known[name] {
			continue
		}
		tag := model.Hashtag{Name: name}
		if err := tx.Create(&tag).Error; err != nil {
			return nil, fmt.Errorf("创建标签 '%s' 失败: %w", name, err)
		}
		result = append(result, tag)
	}
	return result, nil
}

// ParseHashtags 按 '#' 分隔符拆分原始标签串，小写化、去空白并去重。
func ParseHashtags(raw string) []string {
	parts := strings.Split(raw, "#")
	seen := make(map[string]bool, len(parts))
	var names []string
	for _, part := range parts {
		name := strings.ToLower(strings.TrimSpace(part))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}

// ApplySubmission 把一次资料提交的全部结果覆盖到资料上：表单可变字段、
// 产物访问地址，并把资料送回审核队列（is_moderated / is_incognito 置 false）。
// is_admin 不在提交路径上改动，管理员身份不因重新提交而丢失。
func ApplySubmission(p *model.Profile, form map[string]interface{}, videoURL, previewURL, logoURL string) {
	ApplyFormData(p, form)
	p.VideoURL = videoURL
	p.PreviewURL = previewURL
	p.LogoURL = logoURL
	p.IsModerated = false
	p.IsIncognito = false
}

// ApplyFormData 把上传表单中的可变字段覆盖到资料上。
// 表单在管道内不再做模式校验，缺失的键保持字段原值不变。
func ApplyFormData(p *model.Profile, form map[string]interface{}) {
	if v, ok := form["name"]; ok {
		p.Name = formString(v)
	}
	if v, ok := form["hobbies"]; ok {
		p.Hobbies = formString(v)
	}
	if v, ok := form["city"]; ok {
		p.City = formString(v)
	}
	if v, ok := form["address"]; ok {
		p.Address = formAddress(v)
	}
	if v, ok := form["latitude"]; ok {
		p.Latitude = formFloat(v)
	}
	if v, ok := form["longitude"]; ok {
		p.Longitude = formFloat(v)
	}
	if v, ok := form["is_mlm"]; ok {
		p.IsMLM = formBool(v)
	}
}

// formString 将表单值归一化为字符串。
func formString(v interface{}) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", s)
	}
}

// formAddress 将地址字段归一化为分号分隔的文本，表单里它可能是字符串或列表。
func formAddress(v interface{}) string {
	if list, ok := v.([]interface{}); ok {
		parts := make([]string, 0, len(list))
		for _, item := range list {
			if s := formString(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "; ")
	}
	return formString(v)
}

// formFloat 将表单值归一化为浮点数，json 解码出的数值是 float64。
func formFloat(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

// formBool 将表单值归一化为布尔值。
func formBool(v interface{}) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(strings.ToLower(b)))
		if err != nil {
			return false
		}
		return parsed
	case float64:
		return b != 0
	default:
		return false
	}
}
