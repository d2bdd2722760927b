// Package ps stores viewer layouts in a Git repository.
//
// Every save or delete is a commit, so layouts carry full history and can be
// read as of any earlier transaction or tag.
//
// # Memory Persistence
//
// For tests or ephemeral sessions:
//
//	persistence, err := ps.NewMemoryPersistence()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # File Persistence
//
// For layouts that survive restarts, optionally cloned from a remote:
//
//	persistence, err := ps.NewFilePersistence("/path/to/layouts", nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Layouts
//
//	txn, _ := persistence.SaveLayout("by-region", viewer.Save(), identity)
//	saved, _ := persistence.GetLayout("by-region")
//	older, _ := persistence.GetLayoutAsOf("by-region", txn.Id)
package ps
