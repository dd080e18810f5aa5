// Package workflow implements the document lifecycle.
//
// A caller obtains a workflow for a document, folder or request from the Manager and invokes its methods.
// Every mutating method runs in one store transaction, holds an advisory lock on the document,
// and fails with core.ErrConflict if the document has been modified since the workflow was obtained.
// The workflow follows its own successful mutations, so a sequence of calls on the same workflow works.
package workflow

import (
	"context"
)

const (
	CategoryDefault    = "default"    // reviewed actions, requests, folders and the attic
	CategoryVersioning = "versioning" // history
	CategoryCore       = "core"       // rename, move, restore, hard delete
)

type Kind string

const (
	KindBasic   Kind = "BasicReviewedActions"
	KindFull    Kind = "FullReviewedActions"
	KindRequest Kind = "Request"
	KindVersion Kind = "Version"
	KindFolder  Kind = "Folder"
	KindDefault Kind = "Default"
)

// Hints tells which operations are currently available. They are an optimization for the user interface,
// every operation checks its preconditions and authorization again.
type Hints map[string]bool

type Workflow interface {
	Kind() Kind
	Category() string
	Hints(ctx context.Context) (Hints, error)
}
