// persistence/gorm_postgresql.go
package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/wfunc/courtstream/models"
)

// GormPostgreSQL 使用GORM的PostgreSQL实现
type GormPostgreSQL struct {
	db *gorm.DB
}

func NewGormPostgreSQL(host string, port int, user, password, dbname string) (*GormPostgreSQL, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	gl := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold: time.Second,
			LogLevel:      gormlogger.Silent,
			Colorful:      false,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gl,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&models.GormSessionState{}); err != nil {
		return nil, err
	}

	return &GormPostgreSQL{db: db}, nil
}

func (p *GormPostgreSQL) Get(ctx context.Context, sessionID string) (models.SessionSnapshot, bool, error) {
	var row models.GormSessionState
	err := p.db.WithContext(ctx).Where("key = ?", Key(sessionID)).First(&row).Error
	if err == gorm.ErrRecordNotFound {
		return models.SessionSnapshot{}, false, nil
	}
	if err != nil {
		return models.SessionSnapshot{}, false, err
	}

	var snap models.SessionSnapshot
	if err := json.Unmarshal(row.Payload, &snap); err != nil {
		return models.SessionSnapshot{}, false, err
	}
	return snap, true, nil
}

func (p *GormPostgreSQL) Set(ctx context.Context, sessionID string, snap models.SessionSnapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return err
	}

	key := Key(sessionID)
	var row models.GormSessionState
	result := p.db.WithContext(ctx).Where("key = ?", key).First(&row)

	if result.Error == gorm.ErrRecordNotFound {
		row = models.GormSessionState{Key: key, Payload: payload}
		return p.db.WithContext(ctx).Create(&row).Error
	} else if result.Error != nil {
		return result.Error
	}

	row.Payload = payload
	return p.db.WithContext(ctx).Save(&row).Error
}

func (p *GormPostgreSQL) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
