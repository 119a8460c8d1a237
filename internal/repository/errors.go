package repository

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

var (
	ErrDuplicate = errors.New("duplicate record")
)

// isDuplicateKey recognises unique-index violations from MySQL (1062) and SQLite.
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "Duplicate entry") ||
		strings.Contains(msg, "Error 1062") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}

func orDB(tx, db *gorm.DB) *gorm.DB {
	if tx == nil {
		return db
	}
	return tx
}

func normalizePage(page, pageSize int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}
