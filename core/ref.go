package core

import "fmt"

type RefKind int

const (
	FolderRef RefKind = iota
	HandleRef
	VariantRef
	RequestRef
)

func (k RefKind) String() string {
	switch k {
	case FolderRef:
		return "folder"
	case HandleRef:
		return "handle"
	case VariantRef:
		return "variant"
	case RequestRef:
		return "request"
	}
	return "unknown"
}

// A Ref addresses the subject of a workflow: a folder by path, or a handle, variant or request by id.
type Ref struct {
	Kind RefKind
	ID   string // handles, variants, requests
	Path string // folders
}

func Folder(path string) Ref {
	return Ref{Kind: FolderRef, Path: path}
}

func HandleOf(id string) Ref {
	return Ref{Kind: HandleRef, ID: id}
}

func VariantOf(id string) Ref {
	return Ref{Kind: VariantRef, ID: id}
}

func RequestOf(id string) Ref {
	return Ref{Kind: RequestRef, ID: id}
}

func (r Ref) String() string {
	if r.Kind == FolderRef {
		return fmt.Sprintf("%s %s", r.Kind, r.Path)
	}
	return fmt.Sprintf("%s %s", r.Kind, r.ID)
}
