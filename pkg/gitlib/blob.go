package gitlib

import (
	git2go "github.com/libgit2/git2go/v34"
)

// Blob wraps a libgit2 blob.
type Blob struct {
	blob *git2go.Blob
}

// Hash returns the blob hash.
func (b *Blob) Hash() Hash {
	return HashFromOid(b.blob.Id())
}

// Size returns the blob size.
func (b *Blob) Size() int64 {
	return b.blob.Size()
}

// Contents returns the blob contents. The slice is owned by libgit2 and is
// valid until Free.
func (b *Blob) Contents() []byte {
	return b.blob.Contents()
}

// Native returns the underlying libgit2 blob. A nil Blob yields nil, which
// libgit2 treats as an empty side.
func (b *Blob) Native() *git2go.Blob {
	if b == nil {
		return nil
	}

	return b.blob
}

// Free releases the blob resources. It is safe on nil.
func (b *Blob) Free() {
	if b != nil && b.blob != nil {
		b.blob.Free()
		b.blob = nil
	}
}
