package models

import "time"

// AboutSection names one of the about-page sections
type AboutSection string

const (
	SectionVision  AboutSection = "vision"
	SectionMission AboutSection = "mission"
	SectionStory   AboutSection = "story"
	SectionValues  AboutSection = "values"
)

// AboutSections lists the sections in display order
var AboutSections = []AboutSection{SectionVision, SectionMission, SectionStory, SectionValues}

// AboutContent представляет одну секцию страницы "О нас" (ключ - section)
type AboutContent struct {
	UpdatedAt time.Time    `json:"updatedAt"`
	Title     *string      `json:"title"`
	Content   *string      `json:"content"`
	Image     *string      `json:"image"`
	Section   AboutSection `json:"section"`
	ID        int64        `json:"id"`
}

// SiteSetting представляет настройку сайта (ключ - setting key)
type SiteSetting struct {
	UpdatedAt time.Time `json:"updatedAt"`
	Value     *string   `json:"settingValue"`
	Key       string    `json:"settingKey"`
	ID        int64     `json:"id"`
}

// ContactInfo представляет единственную запись с контактами компании
type ContactInfo struct {
	UpdatedAt time.Time `json:"updatedAt"`
	Address   *string   `json:"address"`
	Phone     *string   `json:"phone"`
	Email     *string   `json:"email"`
	MapLat    *string   `json:"mapLat"`
	MapLng    *string   `json:"mapLng"`
	Facebook  *string   `json:"facebook"`
	Instagram *string   `json:"instagram"`
	Twitter   *string   `json:"twitter"`
	YouTube   *string   `json:"youtube"`
	LinkedIn  *string   `json:"linkedin"`
	ID        int64     `json:"id"`
}

// Record is a row of a content collection keyed by JSON field name.
type Record map[string]any

// ID returns the numeric id of the record, or 0.
func (r Record) ID() int64 {
	id, _ := r["id"].(int64)
	return id
}
