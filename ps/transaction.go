package ps

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing"
	"github.com/go-git/go-git/v6/plumbing/object"
)

// Transaction identifies one commit of the layout repository.
type Transaction struct {
	Id      string
	When    time.Time
	Author  string // "Name <email>" format
	Message string
}

func (transaction Transaction) String() string {
	return fmt.Sprintf("Transaction{Id: %s, When: %s, Author: %s}", transaction.Id, transaction.When, transaction.Author)
}

func newTransaction(hash plumbing.Hash, c *object.Commit) Transaction {
	author := ""
	if c.Author.Name != "" || c.Author.Email != "" {
		author = fmt.Sprintf("%s <%s>", c.Author.Name, c.Author.Email)
	}
	return Transaction{
		Id:      hash.String(),
		When:    c.Committer.When,
		Author:  author,
		Message: strings.TrimSpace(c.Message),
	}
}

// LatestTransaction returns HEAD, or the zero Transaction before the first
// commit.
func (p *Persistence) LatestTransaction() Transaction {
	if !p.IsInitialized() {
		return Transaction{}
	}
	p.mu.RLock()
	defer p.mu.RUnlock()

	headRef, err := p.repo.Head()
	if err != nil || headRef == nil {
		return Transaction{}
	}
	c, err := p.repo.CommitObject(headRef.Hash())
	if err != nil {
		return Transaction{}
	}
	return newTransaction(headRef.Hash(), c)
}

// history returns the commits touching filePath, newest first.
func (p *Persistence) history(filePath string) ([]Transaction, error) {
	if _, err := p.repo.Head(); err != nil {
		return nil, nil
	}
	iter, err := p.repo.Log(&git.LogOptions{FileName: &filePath})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var transactions []Transaction
	err = iter.ForEach(func(c *object.Commit) error {
		transactions = append(transactions, newTransaction(c.Hash, c))
		return nil
	})
	return transactions, err
}

// Snapshot tags asof, or HEAD when asof is nil, so layouts can later be read
// by tag name.
func (p *Persistence) Snapshot(name string, asof *Transaction) error {
	if err := p.ensureInitialized(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if asof != nil {
		_, err := p.repo.CreateTag(name, plumbing.NewHash(asof.Id), nil)
		return err
	}
	headRef, err := p.repo.Head()
	if err != nil {
		return fmt.Errorf("nothing to snapshot: %w", err)
	}
	_, err = p.repo.CreateTag(name, headRef.Hash(), nil)
	return err
}
