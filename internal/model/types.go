package model

import "time"

// Cat is one animated sprite bundle. The nine animation fields hold file
// names relative to BaseURL and may be empty.
type Cat struct {
	ID      string  `gorm:"primaryKey"`
	BaseURL string  `gorm:"column:base_url;not null"`
	Version string  `gorm:"not null;default:1"`
	Idle    *string `gorm:"column:idle"`
	Walk    *string `gorm:"column:walk"`
	Run     *string `gorm:"column:run"`
	Lifted  *string `gorm:"column:lifted"`
	Attack  *string `gorm:"column:attack"`
	Sit     *string `gorm:"column:sit"`
	Liedown *string `gorm:"column:liedown"`
	Jump    *string `gorm:"column:jump"`
	Land    *string `gorm:"column:land"`
}

type Device struct {
	ID            string    `gorm:"primaryKey"`
	Visible       bool      `gorm:"not null;default:false"`
	SelectedCatID *string   `gorm:"column:selected_cat_id;index"`
	SelectedCat   *Cat      `gorm:"foreignKey:SelectedCatID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL"`
	UpdatedAt     time.Time `gorm:"not null"`
}

// DeviceState is the client-visible part of a Device.
type DeviceState struct {
	Visible       bool    `json:"visible"`
	SelectedCatID *string `json:"selectedCatId"`
}

func (d Device) State() DeviceState {
	return DeviceState{Visible: d.Visible, SelectedCatID: d.SelectedCatID}
}

// DefaultDeviceState is reported for devices that have never been written.
func DefaultDeviceState() DeviceState {
	return DeviceState{}
}
