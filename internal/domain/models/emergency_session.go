package models

import (
	"time"
)

// 紧急会话状态
type EmergencyStatus string

const (
	EmergencyStatusActive   EmergencyStatus = "active"
	EmergencyStatusResolved EmergencyStatus = "resolved"
)

// Location 一对经纬度坐标
type Location struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
}

// EmergencySession 表示一次紧急求助会话，从SOS触发到解除
// 状态只允许 active -> resolved 单向迁移，resolved 为终态
type EmergencySession struct {
	ID        string          `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID    *uint           `gorm:"index" json:"user_id,omitempty"` // 匿名求助时为空
	Status    EmergencyStatus `gorm:"type:varchar(20);default:'active';index" json:"status"`
	Notes     string          `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`

	// 最近一次落库的位置，是临时缓存的滞后副本
	LastKnownLocation *Location  `gorm:"embedded;embeddedPrefix:loc_" json:"last_known_location,omitempty"`
	LocationUpdatedAt *time.Time `json:"location_updated_at,omitempty"`

	// 解除时间，只在首次解除时写入一次
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`

	// Relations
	User       *User       `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Recordings []Recording `gorm:"foreignKey:EmergencyID" json:"recordings,omitempty"`
}

// IsActive 判断会话是否仍处于活动状态
func (s *EmergencySession) IsActive() bool {
	return s.Status == EmergencyStatusActive
}

// LocationCacheEntry 临时位置缓存条目，只存在于缓存中，不落库
type LocationCacheEntry struct {
	Location    Location  `json:"location"`
	ObservedAt  time.Time `json:"observed_at"`  // 设备侧的观测时间
	ReceivedAt  time.Time `json:"received_at"`  // 服务端收到更新的时间
	BroadcastAt time.Time `json:"broadcast_at"` // 最近一次向订阅者广播的时间
}
