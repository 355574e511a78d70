package store

import (
	"database/sql"
	"errors"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	TextCodeInvalidSchema = "STORE_INVALID_SCHEMA"
	TextCodeForeignEntity = "STORE_FOREIGN_ENTITY"
	TextCodePartialEntity = "STORE_PARTIAL_ENTITY"
	TextCodeUnknownColumn = "STORE_UNKNOWN_COLUMN"
	TextCodeConflict      = "STORE_CONFLICT"
)

// pgUniqueViolation is the SQLSTATE for unique_violation
const pgUniqueViolation = "23505"

// ErrInvalidSchema is returned when a schema does not describe its model.
var ErrInvalidSchema = goerrors.New("invalid store schema", goerrors.CategoryValidation).
	WithTextCode(TextCodeInvalidSchema)

// ErrForeignEntity is returned by Save and Remove when the record was not
// materialized by the store it is passed to.
var ErrForeignEntity = goerrors.New("entity does not originate from this store", goerrors.CategoryInternal).
	WithTextCode(TextCodeForeignEntity)

// ErrPartialEntity is returned by Save when the record was loaded with a
// column projection, the missing columns would overwrite stored values.
var ErrPartialEntity = goerrors.New("entity was loaded with a column projection", goerrors.CategoryInternal).
	WithTextCode(TextCodePartialEntity)

// ErrUnknownColumn is returned when a predicate or option names a column
// the model does not declare.
var ErrUnknownColumn = goerrors.New("unknown column", goerrors.CategoryBadInput).
	WithTextCode(TextCodeUnknownColumn).
	WithCode(goerrors.CodeBadRequest)

// ErrConflict is returned when a write violates a uniqueness constraint.
var ErrConflict = goerrors.New("unique constraint violation", goerrors.CategoryConflict).
	WithTextCode(TextCodeConflict).
	WithCode(goerrors.CodeConflict)

// IsForeignEntity reports whether err is a provenance violation.
func IsForeignEntity(err error) bool {
	return hasTextCode(err, TextCodeForeignEntity)
}

// IsPartialEntity reports whether err rejected a projected record.
func IsPartialEntity(err error) bool {
	return hasTextCode(err, TextCodePartialEntity)
}

// IsUnknownColumn reports whether err names an undeclared column.
func IsUnknownColumn(err error) bool {
	return hasTextCode(err, TextCodeUnknownColumn)
}

// IsConflict reports whether err is a uniqueness violation, translated or
// still in driver form (for example when raised at commit).
func IsConflict(err error) bool {
	if err == nil {
		return false
	}
	return hasTextCode(err, TextCodeConflict) || isUniqueViolation(err)
}

// IsInvalidSchema reports whether err was raised building a store.
func IsInvalidSchema(err error) bool {
	return hasTextCode(err, TextCodeInvalidSchema)
}

func hasTextCode(err error, code string) bool {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr.TextCode == code
	}
	return false
}

func isNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows) || repository.IsRecordNotFound(err)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// translate maps driver errors to store errors.
func translate(err error, schema *Schema, op string) error {
	if err == nil {
		return nil
	}

	meta := map[string]any{
		"schema":    schema.Name,
		"operation": op,
	}

	if isUniqueViolation(err) {
		conflict := ErrConflict.Clone()
		conflict.Source = err
		return conflict.WithMetadata(meta)
	}

	return goerrors.Wrap(err, goerrors.CategoryInternal, op+" "+schema.Name+" failed").
		WithMetadata(meta)
}
