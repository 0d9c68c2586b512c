package stub

import (
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"railboard/internal/model"
)

// seedUsers are the accounts created on an empty database. The admin account
// is the one the console's management screens are exercised with.
var seedUsers = []struct {
	Username string
	Email    string
	Password string
	IsAdmin  bool
}{
	{Username: "admin", Email: "admin@railboard.local", Password: "admin123", IsAdmin: true},
	{Username: "viewer", Email: "viewer@railboard.local", Password: "viewer123", IsAdmin: false},
}

type seedTrain struct {
	TrainNumber      string
	DepartureStation string
	ArrivalStation   string
	DepartsIn        time.Duration
	Travel           time.Duration
	Status           model.TrainStatus
	Type             model.TrainType
	Platform         string
}

var seedTrains = []seedTrain{
	{"G101", "Beijing South", "Shanghai Hongqiao", 2 * time.Hour, 4*time.Hour + 30*time.Minute, model.StatusScheduled, model.TypeExpress, "4"},
	{"G102", "Shanghai Hongqiao", "Beijing South", 3 * time.Hour, 4*time.Hour + 30*time.Minute, model.StatusScheduled, model.TypeExpress, "7"},
	{"K511", "Guangzhou", "Changsha", 90 * time.Minute, 7 * time.Hour, model.StatusDelayed, model.TypePassenger, "2"},
	{"D305", "Hangzhou East", "Nanjing South", 45 * time.Minute, 2 * time.Hour, model.StatusScheduled, model.TypeExpress, "1"},
	{"F820", "Tianjin", "Shijiazhuang", 5 * time.Hour, 6 * time.Hour, model.StatusScheduled, model.TypeFreight, ""},
	{"G215", "Shenzhen North", "Wuhan", 30 * time.Minute, 5 * time.Hour, model.StatusDeparted, model.TypeExpress, "9"},
	{"K882", "Chengdu", "Chongqing", -2 * time.Hour, 2 * time.Hour, model.StatusArrived, model.TypePassenger, "3"},
	{"D712", "Xi'an North", "Zhengzhou East", 4 * time.Hour, 2*time.Hour + 15*time.Minute, model.StatusCancelled, model.TypeExpress, "5"},
	{"F101", "Qingdao", "Jinan", 8 * time.Hour, 3 * time.Hour, model.StatusScheduled, model.TypeFreight, ""},
	{"G330", "Nanjing South", "Hefei South", 70 * time.Minute, time.Hour, model.StatusScheduled, model.TypeExpress, "6"},
	{"K215", "Harbin", "Changchun", 2 * time.Hour, 3 * time.Hour, model.StatusDelayed, model.TypePassenger, "8"},
	{"D460", "Kunming South", "Guiyang North", 5 * time.Hour, 2 * time.Hour, model.StatusScheduled, model.TypeExpress, "2"},
}

// Seed populates an empty database with the demo users and schedule. It is a
// no-op when users already exist.
func Seed(db *gorm.DB) error {
	var count int64
	if err := db.Model(&UserRecord{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	for _, u := range seedUsers {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcryptCost)
		if err != nil {
			return err
		}
		record := UserRecord{
			Username:     u.Username,
			Email:        u.Email,
			PasswordHash: string(hash),
			IsAdmin:      u.IsAdmin,
		}
		if err := db.Create(&record).Error; err != nil {
			return err
		}
	}

	now := time.Now().Truncate(time.Minute)
	for _, t := range seedTrains {
		departure := now.Add(t.DepartsIn)
		record := TrainRecord{
			TrainNumber:      t.TrainNumber,
			DepartureStation: t.DepartureStation,
			ArrivalStation:   t.ArrivalStation,
			DepartureTime:    departure,
			ArrivalTime:      departure.Add(t.Travel),
			Status:           string(t.Status),
			Type:             string(t.Type),
			Platform:         t.Platform,
		}
		if err := db.Create(&record).Error; err != nil {
			return err
		}
	}
	return nil
}
