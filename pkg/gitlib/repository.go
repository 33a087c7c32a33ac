package gitlib

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	git2go "github.com/libgit2/git2go/v34"
)

// ErrNotBlob is returned when a revision path names something other than a file.
var ErrNotBlob = errors.New("not a blob")

// Repository wraps a libgit2 repository, either on disk or purely in memory.
type Repository struct {
	repo    *git2go.Repository
	odb     *git2go.Odb
	mempack *git2go.Mempack
	path    string
}

// OpenRepository opens a git repository at the given path.
func OpenRepository(path string) (*Repository, error) {
	repo, err := git2go.OpenRepository(path)
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}

	return &Repository{repo: repo, path: path}, nil
}

// NewMemoryRepository returns a repository whose object database lives only
// in memory. It holds the blobs handed to libgit2 for diffing.
func NewMemoryRepository() (*Repository, error) {
	odb, err := git2go.NewOdb()
	if err != nil {
		return nil, fmt.Errorf("new odb: %w", err)
	}

	mempack, err := git2go.NewMempack(odb)
	if err != nil {
		odb.Free()

		return nil, fmt.Errorf("new mempack: %w", err)
	}

	repo, err := git2go.NewRepositoryWrapOdb(odb)
	if err != nil {
		odb.Free()

		return nil, fmt.Errorf("wrap odb: %w", err)
	}

	return &Repository{repo: repo, odb: odb, mempack: mempack}, nil
}

// Path returns the repository path, empty for in-memory repositories.
func (r *Repository) Path() string {
	return r.path
}

// Native returns the underlying libgit2 repository.
func (r *Repository) Native() *git2go.Repository {
	return r.repo
}

// Free releases the repository resources.
func (r *Repository) Free() {
	if r.repo != nil {
		r.repo.Free()
		r.repo = nil
	}

	if r.odb != nil {
		r.odb.Free()
		r.odb = nil
	}

	r.mempack = nil
}

// Reset drops every object written to an in-memory repository.
func (r *Repository) Reset() error {
	if r.mempack == nil {
		return nil
	}

	err := r.mempack.Reset()
	if err != nil {
		return fmt.Errorf("reset mempack: %w", err)
	}

	return nil
}

// CreateBlob stores data as a blob and returns its hash.
func (r *Repository) CreateBlob(data []byte) (Hash, error) {
	oid, err := r.repo.CreateBlobFromBuffer(data)
	if err != nil {
		return Hash{}, fmt.Errorf("create blob: %w", err)
	}

	return HashFromOid(oid), nil
}

// LookupBlob returns the blob with the given hash.
func (r *Repository) LookupBlob(hash Hash) (*Blob, error) {
	blob, err := r.repo.LookupBlob(hash.ToOid())
	if err != nil {
		return nil, fmt.Errorf("lookup blob: %w", err)
	}

	return &Blob{blob: blob}, nil
}

// WriteBlob stores data and returns the looked-up blob. Empty data yields a
// nil Blob, which libgit2 diffs as an absent side.
func (r *Repository) WriteBlob(data []byte) (*Blob, error) {
	if len(data) == 0 {
		return nil, nil //nolint:nilnil // nil blob is the empty side.
	}

	hash, err := r.CreateBlob(data)
	if err != nil {
		return nil, err
	}

	return r.LookupBlob(hash)
}

// ReadFile returns the contents of path at rev, e.g. ("HEAD~1", "main.go").
func (r *Repository) ReadFile(rev, path string) ([]byte, error) {
	obj, err := r.repo.RevparseSingle(rev)
	if err != nil {
		return nil, fmt.Errorf("resolve %q: %w", rev, err)
	}
	defer obj.Free()

	peeled, err := obj.Peel(git2go.ObjectCommit)
	if err != nil {
		return nil, fmt.Errorf("resolve %q: %w", rev, err)
	}
	defer peeled.Free()

	commit, err := peeled.AsCommit()
	if err != nil {
		return nil, fmt.Errorf("resolve %q: %w", rev, err)
	}
	defer commit.Free()

	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("tree of %q: %w", rev, err)
	}
	defer tree.Free()

	entry, err := tree.EntryByPath(path)
	if err != nil {
		return nil, fmt.Errorf("entry %q at %q: %w", path, rev, err)
	}

	if entry.Type != git2go.ObjectBlob {
		return nil, fmt.Errorf("%w: %s:%s", ErrNotBlob, rev, path)
	}

	blob, err := r.repo.LookupBlob(entry.Id)
	if err != nil {
		return nil, fmt.Errorf("lookup blob: %w", err)
	}
	defer blob.Free()

	return bytes.Clone(blob.Contents()), nil
}

// ReadRevisionFile reads the combined form "rev:path", e.g. "HEAD:README.md".
func (r *Repository) ReadRevisionFile(revPath string) ([]byte, error) {
	rev, path, ok := strings.Cut(revPath, ":")
	if !ok || rev == "" || path == "" {
		return nil, fmt.Errorf("%w: %q is not rev:path", ErrNotBlob, revPath)
	}

	return r.ReadFile(rev, path)
}
