package models

import (
	"time"
)

// Recording 表示一段上传的音频
// 创建后不可修改，只能由上传者删除
type Recording struct {
	ID          string  `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID      uint    `gorm:"index;not null" json:"user_id"`
	EmergencyID *string `gorm:"type:varchar(36);index" json:"emergency_id,omitempty"` // 日常录音时为空

	// 音频内容及声明的元信息
	Filename    string `gorm:"type:varchar(255)" json:"filename"`
	ContentType string `gorm:"type:varchar(100)" json:"content_type"`
	Size        int64  `json:"size"`
	Data        []byte `gorm:"type:longblob" json:"-"` // 音频二进制，列表接口不返回

	// 情绪分析结果标签，未分析或分析失败时为空
	Emotion string `gorm:"type:varchar(30)" json:"emotion,omitempty"`

	// 是否通过紧急上传通道创建
	IsEmergencyRecording bool `gorm:"default:false" json:"is_emergency_recording"`

	CreatedAt time.Time `json:"created_at"`

	// Relations
	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
