package model

import (
	"time"

	"github.com/google/uuid"
)

// SettingModel is a plain key/value row; fee amounts and other tunables live
// here and are read through the cached settings service.
type SettingModel struct {
	SettingID uuid.UUID `json:"setting_id" gorm:"column:setting_id;type:uuid;default:gen_random_uuid();primaryKey"`

	SettingKey   string `json:"setting_key"   gorm:"column:setting_key;type:varchar(64);not null;uniqueIndex"`
	SettingValue string `json:"setting_value" gorm:"column:setting_value;type:text;not null"`

	SettingCreatedAt time.Time `json:"setting_created_at" gorm:"column:setting_created_at;type:timestamptz;not null;default:now()"`
	SettingUpdatedAt time.Time `json:"setting_updated_at" gorm:"column:setting_updated_at;type:timestamptz;not null;default:now()"`
}

func (SettingModel) TableName() string { return "settings" }
