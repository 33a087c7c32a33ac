package xdiff

import "bytes"

// buffer is the owned byte storage shared by File and Line.
type buffer struct {
	data      []byte
	kind      ObjectKind
	alloc     Allocator
	destroyed bool
}

func newBuffer(kind ObjectKind, data []byte, opts []Option) (buffer, error) {
	set := resolve(opts)

	err := set.alloc.Acquire(kind, len(data))
	if err != nil {
		return buffer{}, err
	}

	return buffer{
		data:  bytes.Clone(data),
		kind:  kind,
		alloc: set.alloc,
	}, nil
}

func (b *buffer) release() {
	if b.destroyed {
		return
	}

	b.alloc.Release(b.kind, len(b.data))
	b.data = nil
	b.destroyed = true
}

// File is an immutable whole-file buffer. The bytes are copied at
// construction and never shared with the caller.
type File struct {
	buf buffer
}

// NewFile copies data into a new File.
func NewFile(data []byte, opts ...Option) (*File, error) {
	buf, err := newBuffer(KindFile, data, opts)
	if err != nil {
		return nil, err
	}

	return &File{buf: buf}, nil
}

// Bytes returns the file content. The slice must not be modified.
// A nil or destroyed File has no content.
func (f *File) Bytes() []byte {
	if f == nil {
		return nil
	}

	return f.buf.data
}

// Len returns the content length in bytes.
func (f *File) Len() int {
	return len(f.Bytes())
}

// String returns the content as a string.
func (f *File) String() string {
	return string(f.Bytes())
}

// Destroy releases the file. It is safe to call more than once and on nil.
func (f *File) Destroy() {
	if f == nil {
		return
	}

	f.buf.release()
}

// Line is an immutable short content buffer, typically a single line.
type Line struct {
	buf buffer
}

// NewLine copies data into a new Line.
func NewLine(data []byte, opts ...Option) (*Line, error) {
	buf, err := newBuffer(KindLine, data, opts)
	if err != nil {
		return nil, err
	}

	return &Line{buf: buf}, nil
}

// Bytes returns the exact content, without any terminator. The slice must
// not be modified.
func (l *Line) Bytes() []byte {
	if l == nil {
		return nil
	}

	return l.buf.data
}

// Len returns the content length in bytes.
func (l *Line) Len() int {
	return len(l.Bytes())
}

// String returns the content as a string.
func (l *Line) String() string {
	return string(l.Bytes())
}

// Destroy releases the line. It is safe to call more than once and on nil.
func (l *Line) Destroy() {
	if l == nil {
		return
	}

	l.buf.release()
}
