package outbox

import (
	"errors"

	"gorm.io/gorm"

	"github.com/storefrontlabs/storefront/pkg/db/models"
)

// error messages are capped so a runaway gateway response cannot bloat rows
const maxDLQErrorLen = 1024

// DLQRepository persists outbox events that exhausted their retries.
type DLQRepository struct {
	db *gorm.DB
}

func NewDLQRepository(db *gorm.DB) *DLQRepository {
	return &DLQRepository{db: db}
}

// InsertTx writes the dead-letter row inside the caller's transaction so the
// DLQ insert and the terminal mark on the source event commit together.
func (r *DLQRepository) InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	if entry.ErrorMessage != nil {
		msg := truncateDLQError(*entry.ErrorMessage)
		entry.ErrorMessage = &msg
	}
	return tx.Create(&entry).Error
}

func truncateDLQError(message string) string {
	if len(message) <= maxDLQErrorLen {
		return message
	}
	return message[:maxDLQErrorLen]
}
