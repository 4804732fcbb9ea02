// Package repository implements the data access layer for the application.
package repository

import (
	"errors"
	"strings"

	"chirp/internal/models"

	"gorm.io/gorm"
)

// isUniqueConstraintError checks if a DB error is a unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "23505")
}

// wrap converts a gorm error into an AppError, passing AppErrors through untouched.
func wrap(err error, notFoundMsg string) error {
	if err == nil {
		return nil
	}
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	if errors.Is(err, gorm.ErrRecordNotFound) && notFoundMsg != "" {
		return models.NewNotFoundError(notFoundMsg)
	}
	return models.NewInternalError(err)
}

// escapeLike escapes LIKE wildcards so user input matches literally. Pair with ESCAPE '\'.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
