// Package session provides session management for light cycle games.
//
// The session package implements:
//   - Thread-safe session storage and retrieval
//   - Unique, case-insensitive session IDs
//   - File persistence of the full game (grid plus per-player histories)
//   - Session cleanup and expiration
//
// Core Types:
//
// Manager is the main session manager that handles all session operations.
// It implements service.SessionManager. FilePersistence stores each session
// as <id>.json holding a replay document, so a restored session resumes at
// the exact tick it was saved.
//
// Session Identifiers:
//
// Sessions use 4-character hex IDs when none is given. IDs may not contain
// path separators, dots or spaces because they double as file names.
//
// Usage:
//
//	persistence, err := session.NewFilePersistence("sessions")
//	if err != nil {
//		log.Fatal(err)
//	}
//	manager := session.NewManagerWithPersistence(persistence)
//
//	sess, err := manager.Create("", "duel", config)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Retrieve it later, from memory or disk
//	sess, err = manager.Get(sess.ID)
package session
