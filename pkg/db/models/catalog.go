package models

// Commodity and Location only supply display names to quotes.
type Commodity struct {
	Ticker   string `gorm:"column:ticker;primaryKey"`
	Name     string `gorm:"column:name;not null"`
	Category string `gorm:"column:category"`
}

type Location struct {
	ID   string `gorm:"column:id;primaryKey"`
	Name string `gorm:"column:name;not null"`
	Type string `gorm:"column:type"`
}
