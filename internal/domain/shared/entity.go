// Package shared holds the building blocks every domain package embeds:
// persisted identity, aggregate revisions, domain errors and the delivery
// idempotency port.
package shared

import (
	"time"

	"github.com/google/uuid"
)

// BaseEntity carries the identity and timestamps of a persisted row.
// GORM maintains CreatedAt and UpdatedAt on write.
type BaseEntity struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// NewBaseEntity returns an entity with a fresh random ID.
func NewBaseEntity() BaseEntity {
	now := time.Now()
	return BaseEntity{ID: uuid.New(), CreatedAt: now, UpdatedAt: now}
}

// BaseAggregateRoot is a BaseEntity with a revision number. The repository
// bumps it on every save, so API readers can tell two states of the same
// aggregate apart.
type BaseAggregateRoot struct {
	BaseEntity
	Version int `gorm:"not null;default:1"`
}

// NewBaseAggregateRoot returns an aggregate at revision 1.
func NewBaseAggregateRoot() BaseAggregateRoot {
	return BaseAggregateRoot{BaseEntity: NewBaseEntity(), Version: 1}
}

// NextVersion advances the revision and returns it.
func (a *BaseAggregateRoot) NextVersion() int {
	a.Version++
	return a.Version
}
