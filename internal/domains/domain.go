// Package domains holds the tracked-site model. Provisioning and validation of
// domains are owned by the collection side; this package only reads them.
package domains

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Domain is a tracked site. ID namespaces the per-domain statistics tables and
// Name locates the domain's event buffer.
type Domain struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	Name      string `gorm:"uniqueIndex;not null"`
	CreatedAt time.Time
}

// List returns all tracked domains ordered by id.
func List(db *gorm.DB) ([]Domain, error) {
	var out []Domain
	if err := db.Order("id asc").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("domains: failed to list domains: %w", err)
	}
	return out, nil
}

// FindByName returns the domain with the given name.
func FindByName(db *gorm.DB, name string) (Domain, error) {
	var d Domain
	if err := db.Where("name = ?", name).First(&d).Error; err != nil {
		return Domain{}, fmt.Errorf("domains: failed to find domain %q: %w", name, err)
	}
	return d, nil
}
