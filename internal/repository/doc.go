// Package repository defines the persistence interface for lanscope.
//
// The classification cache is a full-snapshot store: every Save rewrites the
// whole record set. That keeps the on-disk state trivially consistent and is
// cheap because a home or small-office segment holds few devices.
//
// # Implementations
//
// The sqlite subpackage is the default backend. It prepares every row before
// opening a transaction and swaps the table contents inside that transaction,
// so a failed Save rolls back to the previous snapshot.
//
// The jsonfile subpackage keeps records in a single JSON document, written
// to a temp file and renamed into place.
//
// # Testing
//
// Both backends are tested for load/save round trips, empty-state loads and
// failed saves that must leave the prior snapshot intact.
package repository
