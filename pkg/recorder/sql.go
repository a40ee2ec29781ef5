package recorder

import (
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type Entity struct {
	ID uint `gorm:"primaryKey"`
}

// One invocation of the simulation.
type Run struct {
	Entity

	UUID string `gorm:"unique;size:36"`
	// Free-form label, usually the config files that were used
	Label    string `gorm:"size:256"`
	Started  time.Time
	Finished *time.Time
	Ticks    uint64
	Bodies   int

	Contacts []*Contact
	Samples  []*Sample
}

type Contact struct {
	Entity

	RunID uint   `gorm:"not null;index"`
	Tick  uint64 `gorm:"not null"`
	Body  uint32 `gorm:"not null"`

	ImpulseX float64
	ImpulseY float64
	ImpulseZ float64

	RestingX int8
	RestingY int8
	RestingZ int8

	Stepped bool
	Bounced bool
}

// The state of one body at a given tick.
type Sample struct {
	Entity

	RunID uint   `gorm:"not null;index"`
	Tick  uint64 `gorm:"not null"`
	Body  uint32 `gorm:"not null"`

	X float64
	Y float64
	Z float64

	VelocityX float64
	VelocityY float64
	VelocityZ float64

	RatioInFluid float64
	Asleep       bool
}

func InitDB(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	// sqlite allows one writer at a time
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(&Run{}, &Contact{}, &Sample{})
	if err != nil {
		return nil, err
	}

	return db, nil
}
