package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/yukikurage/pmbot/internal/models"
	"github.com/yukikurage/pmbot/internal/repository"
	"gorm.io/gorm"
)

// SettingsService handles per-guild settings
type SettingsService struct {
	settingsRepo repository.GuildSettingsRepository
}

// NewSettingsService creates a new SettingsService
func NewSettingsService(settingsRepo repository.GuildSettingsRepository) *SettingsService {
	return &SettingsService{settingsRepo: settingsRepo}
}

// UpdateSettingsInput holds the settings to change. An empty string clears a value.
type UpdateSettingsInput struct {
	NotificationChannelID *string
	AdminRoleID           *string
	PMRoleID              *string
	Timezone              *string
}

// Get returns a guild's settings, creating the defaults on first access
func (s *SettingsService) Get(guildID string) (*models.GuildSettings, error) {
	settings, err := s.settingsRepo.FindOrCreate(guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to load guild settings: %w", err)
	}
	return settings, nil
}

// Update upserts a guild's settings. Only admins may change them.
func (s *SettingsService) Update(guildID string, input UpdateSettingsInput, actor Actor) (*models.GuildSettings, error) {
	if !actor.Level.AtLeast(PermissionAdmin) {
		return nil, ErrPermissionDenied
	}
	if input.Timezone != nil {
		if *input.Timezone == "" {
			tz := models.DefaultTimezone
			input.Timezone = &tz
		}
		if _, err := time.LoadLocation(*input.Timezone); err != nil {
			return nil, ErrInvalidTimezone
		}
	}

	settings, err := s.settingsRepo.Upsert(guildID, repository.GuildSettingsUpdate{
		NotificationChannelID: input.NotificationChannelID,
		AdminRoleID:           input.AdminRoleID,
		PMRoleID:              input.PMRoleID,
		Timezone:              input.Timezone,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update guild settings: %w", err)
	}
	return settings, nil
}

// ResolvePermission returns the caller's permission level in a guild.
// Guilds without settings only know the platform admin flag.
func (s *SettingsService) ResolvePermission(guildID string, roles []string, isAdmin bool) (PermissionLevel, error) {
	if isAdmin {
		return PermissionAdmin, nil
	}

	settings, err := s.settingsRepo.FindByGuildID(guildID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return PermissionUser, nil
		}
		return 0, fmt.Errorf("failed to load guild settings: %w", err)
	}
	return ResolvePermission(settings, roles, false), nil
}
