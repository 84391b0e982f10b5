package repository

import (
	"github.com/yukikurage/pmbot/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormGuildSettingsRepository is a GORM implementation of GuildSettingsRepository
type GormGuildSettingsRepository struct {
	db *gorm.DB
}

// NewGuildSettingsRepository creates a new GuildSettingsRepository
func NewGuildSettingsRepository(db *gorm.DB) GuildSettingsRepository {
	return &GormGuildSettingsRepository{db: db}
}

// FindByGuildID finds the settings row of a guild
func (r *GormGuildSettingsRepository) FindByGuildID(guildID string) (*models.GuildSettings, error) {
	var settings models.GuildSettings
	if err := r.db.Where("guild_id = ?", guildID).First(&settings).Error; err != nil {
		return nil, err
	}
	return &settings, nil
}

// FindOrCreate returns the guild's settings, creating defaults on first access
func (r *GormGuildSettingsRepository) FindOrCreate(guildID string) (*models.GuildSettings, error) {
	settings := models.GuildSettings{GuildID: guildID, Timezone: models.DefaultTimezone}
	if err := r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&settings).Error; err != nil {
		return nil, err
	}
	return r.FindByGuildID(guildID)
}

// Upsert creates or updates the guild's settings with the non-nil fields of update
func (r *GormGuildSettingsRepository) Upsert(guildID string, update GuildSettingsUpdate) (*models.GuildSettings, error) {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		settings := models.GuildSettings{GuildID: guildID, Timezone: models.DefaultTimezone}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&settings).Error; err != nil {
			return err
		}

		changes := map[string]interface{}{}
		if update.NotificationChannelID != nil {
			changes["notification_channel_id"] = nullable(*update.NotificationChannelID)
		}
		if update.AdminRoleID != nil {
			changes["admin_role_id"] = nullable(*update.AdminRoleID)
		}
		if update.PMRoleID != nil {
			changes["pm_role_id"] = nullable(*update.PMRoleID)
		}
		if update.Timezone != nil {
			changes["timezone"] = *update.Timezone
		}
		if len(changes) == 0 {
			return nil
		}

		return tx.Model(&models.GuildSettings{}).Where("guild_id = ?", guildID).Updates(changes).Error
	})
	if err != nil {
		return nil, err
	}

	return r.FindByGuildID(guildID)
}

// ListWithNotificationChannel lists guilds that configured a notification channel
func (r *GormGuildSettingsRepository) ListWithNotificationChannel() ([]models.GuildSettings, error) {
	var settings []models.GuildSettings
	if err := r.db.
		Where("notification_channel_id IS NOT NULL AND notification_channel_id <> ''").
		Order("guild_id").
		Find(&settings).Error; err != nil {
		return nil, err
	}
	return settings, nil
}

// nullable stores an empty string as NULL so that a setting can be cleared
func nullable(value string) interface{} {
	if value == "" {
		return gorm.Expr("NULL")
	}
	return value
}
