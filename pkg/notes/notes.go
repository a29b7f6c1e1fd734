package notes

import (
	"context"
	"errors"
)

// Ref is an opaque reference to one note. The vault store uses the note's
// relative path, the Postgres store uses the row's id.
type Ref string

var ErrNoteNotFound = errors.New("note not found")

// Store is the host document store: full-body reads and writes of notes,
// addressed by opaque refs. The host guarantees single-writer access per
// note for the duration of one read-modify-write.
type Store interface {
	ReadBody(ctx context.Context, ref Ref) (string, error)
	WriteBody(ctx context.Context, ref Ref, body string) error
	ResolveOrCreate(ctx context.Context, path string) (Ref, error)
}

// MonthResolver maps a year-month ("2025-04") to the note that holds that
// month's expense table.
type MonthResolver interface {
	NoteFor(ctx context.Context, month string) (Ref, error)
}

// FolderMonthResolver keeps one note per month under a fixed folder.
type FolderMonthResolver struct {
	store  Store
	folder string
}

func NewFolderMonthResolver(store Store, folder string) *FolderMonthResolver {
	return &FolderMonthResolver{store: store, folder: folder}
}

func (r *FolderMonthResolver) NoteFor(ctx context.Context, month string) (Ref, error) {
	return r.store.ResolveOrCreate(ctx, r.folder+"/"+month+".md")
}
