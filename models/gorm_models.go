// models/gorm_models.go
package models

import (
	"gorm.io/gorm"
)

// GormSessionState 会话状态持久化模型
type GormSessionState struct {
	gorm.Model
	Key     string `gorm:"uniqueIndex;not null"` // game_state:{sessionID}
	Payload []byte `gorm:"type:jsonb;not null"`
}

// TableName keeps the table shared with the raw lib/pq store.
func (GormSessionState) TableName() string {
	return "session_states"
}
