package ps

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing"
	"github.com/go-git/go-git/v6/plumbing/filemode"
	"github.com/go-git/go-git/v6/plumbing/object"

	"github.com/nickyhof/CommitView/core"
)

func (p *Persistence) createBlob(data []byte) (plumbing.Hash, error) {
	obj := p.repo.Storer.NewEncodedObject()
	obj.SetType(plumbing.BlobObject)
	obj.SetSize(int64(len(data)))

	writer, err := obj.Writer()
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to create blob writer: %w", err)
	}
	if _, err := writer.Write(data); err != nil {
		writer.Close()
		return plumbing.ZeroHash, fmt.Errorf("failed to write blob data: %w", err)
	}
	writer.Close()

	hash, err := p.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to store blob: %w", err)
	}
	return hash, nil
}

// headTree returns the tree of HEAD, or ZeroHash before the first commit.
func (p *Persistence) headTree() (plumbing.Hash, error) {
	headRef, err := p.repo.Head()
	if err != nil {
		return plumbing.ZeroHash, nil
	}
	commit, err := p.repo.CommitObject(headRef.Hash())
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to get head commit: %w", err)
	}
	return commit.TreeHash, nil
}

func (p *Persistence) treeEntries(treeHash plumbing.Hash) (map[string]object.TreeEntry, error) {
	entries := make(map[string]object.TreeEntry)
	if treeHash == plumbing.ZeroHash {
		return entries, nil
	}
	tree, err := object.GetTree(p.repo.Storer, treeHash)
	if err != nil {
		return nil, fmt.Errorf("failed to get tree: %w", err)
	}
	for _, entry := range tree.Entries {
		entries[entry.Name] = entry
	}
	return entries, nil
}

// storeTree writes a tree object. An empty entry set yields ZeroHash.
func (p *Persistence) storeTree(entries map[string]object.TreeEntry) (plumbing.Hash, error) {
	if len(entries) == 0 {
		return plumbing.ZeroHash, nil
	}
	list := make([]object.TreeEntry, 0, len(entries))
	for _, entry := range entries {
		list = append(list, entry)
	}
	// Git orders directories as if their names ended in a slash.
	sort.Slice(list, func(i, j int) bool {
		nameI, nameJ := list[i].Name, list[j].Name
		if list[i].Mode == filemode.Dir {
			nameI += "/"
		}
		if list[j].Mode == filemode.Dir {
			nameJ += "/"
		}
		return nameI < nameJ
	})

	obj := p.repo.Storer.NewEncodedObject()
	if err := (&object.Tree{Entries: list}).Encode(obj); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to encode tree: %w", err)
	}
	hash, err := p.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to store tree: %w", err)
	}
	return hash, nil
}

// updateTree sets parts to blob below treeHash, or removes it when blob is
// ZeroHash. Directories left empty are pruned.
func (p *Persistence) updateTree(treeHash plumbing.Hash, parts []string, blob plumbing.Hash) (plumbing.Hash, error) {
	if len(parts) == 0 {
		return plumbing.ZeroHash, fmt.Errorf("empty path")
	}
	entries, err := p.treeEntries(treeHash)
	if err != nil {
		return plumbing.ZeroHash, err
	}

	name := parts[0]
	if len(parts) == 1 {
		if blob == plumbing.ZeroHash {
			delete(entries, name)
		} else {
			entries[name] = object.TreeEntry{Name: name, Mode: filemode.Regular, Hash: blob}
		}
		return p.storeTree(entries)
	}

	sub := plumbing.ZeroHash
	if existing, ok := entries[name]; ok && existing.Mode == filemode.Dir {
		sub = existing.Hash
	} else if blob == plumbing.ZeroHash {
		return treeHash, nil
	}
	newSub, err := p.updateTree(sub, parts[1:], blob)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	if newSub == plumbing.ZeroHash {
		delete(entries, name)
	} else {
		entries[name] = object.TreeEntry{Name: name, Mode: filemode.Dir, Hash: newSub}
	}
	return p.storeTree(entries)
}

func (p *Persistence) commit(treeHash plumbing.Hash, identity core.Identity, message string) (Transaction, error) {
	if treeHash == plumbing.ZeroHash {
		obj := p.repo.Storer.NewEncodedObject()
		if err := (&object.Tree{}).Encode(obj); err != nil {
			return Transaction{}, fmt.Errorf("failed to encode empty tree: %w", err)
		}
		var err error
		if treeHash, err = p.repo.Storer.SetEncodedObject(obj); err != nil {
			return Transaction{}, fmt.Errorf("failed to store empty tree: %w", err)
		}
	}

	var parents []plumbing.Hash
	headRef, err := p.repo.Head()
	if err == nil {
		parents = []plumbing.Hash{headRef.Hash()}
	}

	sig := object.Signature{Name: identity.Name, Email: identity.Email, When: time.Now()}
	c := &object.Commit{
		Author:       sig,
		Committer:    sig,
		Message:      message,
		TreeHash:     treeHash,
		ParentHashes: parents,
	}
	obj := p.repo.Storer.NewEncodedObject()
	if err := c.Encode(obj); err != nil {
		return Transaction{}, fmt.Errorf("failed to encode commit: %w", err)
	}
	hash, err := p.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return Transaction{}, fmt.Errorf("failed to store commit: %w", err)
	}

	branch := plumbing.Master
	if headRef != nil && headRef.Name().IsBranch() {
		branch = headRef.Name()
	}
	if err := p.repo.Storer.SetReference(plumbing.NewHashReference(branch, hash)); err != nil {
		return Transaction{}, fmt.Errorf("failed to update HEAD: %w", err)
	}

	if err := p.syncWorktree(hash); err != nil {
		return Transaction{}, fmt.Errorf("failed to sync worktree: %w", err)
	}
	return newTransaction(hash, c), nil
}

// syncWorktree checks out commit so file repositories show their layouts
// on disk.
func (p *Persistence) syncWorktree(commit plumbing.Hash) error {
	if p.memory {
		return nil
	}
	wt, err := p.repo.Worktree()
	if err != nil {
		return err
	}
	return wt.Reset(&git.ResetOptions{Mode: git.HardReset, Commit: commit})
}

// writeFile commits data at filePath.
func (p *Persistence) writeFile(filePath string, data []byte, identity core.Identity, message string) (Transaction, error) {
	current, err := p.headTree()
	if err != nil {
		return Transaction{}, err
	}
	blob, err := p.createBlob(data)
	if err != nil {
		return Transaction{}, err
	}
	tree, err := p.updateTree(current, strings.Split(filePath, "/"), blob)
	if err != nil {
		return Transaction{}, fmt.Errorf("failed to update tree: %w", err)
	}
	return p.commit(tree, identity, message)
}

// deleteFile commits the removal of filePath.
func (p *Persistence) deleteFile(filePath string, identity core.Identity, message string) (Transaction, error) {
	current, err := p.headTree()
	if err != nil {
		return Transaction{}, err
	}
	tree, err := p.updateTree(current, strings.Split(filePath, "/"), plumbing.ZeroHash)
	if err != nil {
		return Transaction{}, fmt.Errorf("failed to update tree: %w", err)
	}
	return p.commit(tree, identity, message)
}

// treeAt returns the tree of rev, which may be a commit hash, a tag or a
// branch. An empty rev means HEAD.
func (p *Persistence) treeAt(rev string) (*object.Tree, error) {
	if rev == "" {
		rev = "HEAD"
	}
	hash, err := p.repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return nil, fmt.Errorf("unknown revision %s: %w", rev, err)
	}
	commit, err := p.repo.CommitObject(*hash)
	if err != nil {
		return nil, fmt.Errorf("failed to get commit: %w", err)
	}
	return commit.Tree()
}

// readFile reads filePath from the tree of rev.
func (p *Persistence) readFile(rev, filePath string) ([]byte, error) {
	tree, err := p.treeAt(rev)
	if err != nil {
		return nil, err
	}
	file, err := tree.File(filePath)
	if err != nil {
		return nil, err
	}
	content, err := file.Contents()
	if err != nil {
		return nil, fmt.Errorf("failed to read contents: %w", err)
	}
	return []byte(content), nil
}

// listFiles returns the names of the regular files in dirPath at HEAD.
func (p *Persistence) listFiles(dirPath string) ([]string, error) {
	if _, err := p.repo.Head(); err != nil {
		return nil, nil
	}
	tree, err := p.treeAt("")
	if err != nil {
		return nil, err
	}
	dir, err := tree.Tree(dirPath)
	if err != nil {
		return nil, nil
	}
	var names []string
	for _, entry := range dir.Entries {
		if entry.Mode != filemode.Dir {
			names = append(names, entry.Name)
		}
	}
	return names, nil
}
