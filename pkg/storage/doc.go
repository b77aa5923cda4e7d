// Package storage provides JSON document persistence for beacon's analytics state.
//
// # Overview
//
// This package defines the persistence abstraction the analytics engine saves its
// page and session state through. Documents are plain JSON files so an operator can
// inspect or repair them with a text editor, and so state written by earlier
// deployments keeps loading unchanged.
//
// # Store Interface
//
// The Store interface carries two operations:
//
//	type Store interface {
//		Save(name string, v interface{}) error
//		Load(name string, v interface{}) error
//	}
//
// The engine depends on the interface rather than the filesystem type, which lets
// tests inject failing or recording stores to exercise the persistence error paths.
//
// # Filesystem Backend
//
// DocumentStore writes each named document as an indented JSON file under a root
// directory, creating parent directories as needed:
//
//	store, err := storage.NewDocumentStore("data/metrics")
//	if err != nil {
//		return err
//	}
//	err = store.Save("page-metrics.json", pages)
//
// Loads of missing documents return errors satisfying errors.Is(err, fs.ErrNotExist),
// which the engine uses to treat a cold start as an empty state rather than a failure.
//
// # Related Packages
//
//   - pkg/analytics: persists engine state through Store
//   - pkg/observability: health check probing the storage directory
package storage
