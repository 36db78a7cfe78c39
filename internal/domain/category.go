package domain

// Category is a stable name lookup for job categories, seeded out of band.
type Category struct {
	ID   int    `gorm:"primaryKey;autoIncrement" json:"id"`
	Name string `gorm:"not null;uniqueIndex:idx_category_name" json:"name"`
}

func (Category) TableName() string { return "categories" }
