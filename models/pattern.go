package models

import "time"

// PersistentPattern 图案库里的一个可复用花纹。
// 名称在同一 product_type_id 范围内唯一（大小写不敏感、去首尾空格）。
type PersistentPattern struct {
	ID            string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Name          string    `gorm:"type:varchar(128)" json:"name"`
	URL           string    `gorm:"type:varchar(512)" json:"url"`
	ProductTypeID string    `gorm:"type:varchar(64)" json:"productTypeId,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

func (PersistentPattern) TableName() string {
	return "pattern"
}
