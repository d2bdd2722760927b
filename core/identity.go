package core

import "fmt"

// Identity is the author recorded on saved layouts.
type Identity struct {
	Name  string `json:"name" yaml:"name"`
	Email string `json:"email" yaml:"email"`
}

func (i Identity) String() string {
	return fmt.Sprintf("%s <%s>", i.Name, i.Email)
}

// DefaultIdentity is used when no author is configured.
var DefaultIdentity = Identity{Name: "CommitView", Email: "commitview@localhost"}
