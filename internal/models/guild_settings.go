package models

import "time"

// DefaultTimezone is used for guilds that never configured one
const DefaultTimezone = "Asia/Seoul"

type GuildSettings struct {
	GuildID               string    `gorm:"type:varchar(32);primarykey" json:"guild_id"`
	NotificationChannelID *string   `gorm:"type:varchar(32)" json:"notification_channel_id"`
	AdminRoleID           *string   `gorm:"type:varchar(32)" json:"admin_role_id"`
	PMRoleID              *string   `gorm:"column:pm_role_id;type:varchar(32)" json:"pm_role_id"`
	Timezone              string    `gorm:"type:varchar(64);not null;default:'Asia/Seoul'" json:"timezone"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

func (GuildSettings) TableName() string {
	return "guild_settings"
}

// HasNotificationChannel reports whether alerts for this guild have a destination
func (s *GuildSettings) HasNotificationChannel() bool {
	return s != nil && s.NotificationChannelID != nil && *s.NotificationChannelID != ""
}
