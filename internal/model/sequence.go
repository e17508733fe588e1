package model

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// NumberSequence is a named atomic counter. Invoice numbering uses one row
// per year-month so numbers restart at 0001 each month.
type NumberSequence struct {
	Key       string    `json:"key" gorm:"primaryKey;type:varchar(50)"`
	Value     int64     `json:"value" gorm:"not null;default:0"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NextSequence increments and returns the counter for key. The row is locked
// for the duration of the surrounding transaction, so concurrent callers
// serialize and never see the same value.
func NextSequence(tx *gorm.DB, key string) (int64, error) {
	var seq NumberSequence
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where(NumberSequence{Key: key}).
		FirstOrCreate(&seq).Error; err != nil {
		// Two transactions can race to insert the first row for a key; the
		// loser's insert hits the primary key. Re-reading locks the winner's
		// row instead of failing the whole create.
		if retryErr := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("key = ?", key).First(&seq).Error; retryErr != nil {
			return 0, err
		}
	}
	seq.Value++
	if err := tx.Model(&NumberSequence{}).Where("key = ?", key).
		Update("value", seq.Value).Error; err != nil {
		return 0, err
	}
	return seq.Value, nil
}

// NextInvoiceNumber allocates the next invoice number for the month of now.
// Must be called inside the transaction that persists the invoice, so a
// rollback releases the number's gap together with the row.
func NextInvoiceNumber(tx *gorm.DB, now time.Time) (string, error) {
	seq, err := NextSequence(tx, InvoiceMonthKey(now))
	if err != nil {
		return "", err
	}
	return FormatInvoiceNumber(now, seq), nil
}
