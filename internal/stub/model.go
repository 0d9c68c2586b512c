// Package stub is a reference implementation of the scheduling backend's
// documented contract. It backs local development and the contract tests; a
// production deployment points the console at the real backend instead.
package stub

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"railboard/internal/model"
)

// TrainRecord is the persisted form of a train.
type TrainRecord struct {
	ID               string    `json:"id" gorm:"type:char(36);primaryKey"`
	TrainNumber      string    `json:"train_number" gorm:"size:32;not null;index"`
	DepartureStation string    `json:"departure_station" gorm:"size:255;not null;index"`
	ArrivalStation   string    `json:"arrival_station" gorm:"size:255;not null;index"`
	DepartureTime    time.Time `json:"departure_time" gorm:"not null;index"`
	ArrivalTime      time.Time `json:"arrival_time" gorm:"not null"`
	Status           string    `json:"status" gorm:"size:16;not null;index"`
	Type             string    `json:"type" gorm:"size:16;not null;index"`
	Platform         string    `json:"platform" gorm:"size:16"`
	CreatedAt        time.Time `json:"-"`
	UpdatedAt        time.Time `json:"-"`
}

// TableName keeps the table name singular-free and explicit.
func (TrainRecord) TableName() string { return "trains" }

// BeforeCreate assigns the server-side id.
func (t *TrainRecord) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	return nil
}

// ToModel converts the persisted record to the wire shape.
func (t *TrainRecord) ToModel() model.Train {
	return model.Train{
		ID:               t.ID,
		TrainNumber:      t.TrainNumber,
		DepartureStation: t.DepartureStation,
		ArrivalStation:   t.ArrivalStation,
		DepartureTime:    t.DepartureTime,
		ArrivalTime:      t.ArrivalTime,
		Status:           model.TrainStatus(t.Status),
		Type:             model.TrainType(t.Type),
		Platform:         t.Platform,
	}
}

// UserRecord is a backend account.
type UserRecord struct {
	ID           string    `json:"id" gorm:"type:char(36);primaryKey"`
	Username     string    `json:"username" gorm:"uniqueIndex;size:64;not null"`
	Email        string    `json:"email" gorm:"uniqueIndex;size:255;not null"`
	PasswordHash string    `json:"-" gorm:"size:255;not null"`
	IsAdmin      bool      `json:"is_admin" gorm:"default:false"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName fixes the table name.
func (UserRecord) TableName() string { return "users" }

// BeforeCreate assigns the id.
func (u *UserRecord) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return nil
}

// ToModel converts the account to the profile shape returned on login.
func (u *UserRecord) ToModel() model.User {
	return model.User{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		IsAdmin:  u.IsAdmin,
	}
}
