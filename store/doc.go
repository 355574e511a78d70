// Package store provides a generic Bun repository for records embedding
// Entity. A Store owns one table described by a Schema, generates ids,
// ignores server computed columns on create, pages finds and stamps every
// record it returns so Save and Remove reject records from other stores.
package store
