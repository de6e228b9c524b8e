package mail

import (
	"crypto/rand"
	"encoding/hex"
	"os"
	"sync"

	"github.com/pkg/errors"
)

// fileIDSuffix is appended to every generated file ID.
const fileIDSuffix = "@app"

// File is an attachment or embedding. It holds either inline content or a
// path to an existing file.
type File struct {
	name        *string
	path        *string
	content     *string
	contentType *string

	idOnce sync.Once
	id     string
}

// FromContent creates a file from inline content. Empty name and
// contentType are treated as unset.
func FromContent(content, name, contentType string) *File {
	return &File{
		name:        nonEmpty(name),
		content:     ptr(content),
		contentType: nonEmpty(contentType),
	}
}

// FromPath creates a file referencing path, which must be an existing
// regular file.
func FromPath(path, name, contentType string) (*File, error) {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return nil, errors.Wrapf(ErrFileNotFound, "the file %s does not exist", path)
	}
	return &File{
		name:        nonEmpty(name),
		path:        ptr(path),
		contentType: nonEmpty(contentType),
	}, nil
}

// ID returns the file ID: 128 random bits as 32 hex digits followed by
// "@app". It is generated on first use and stable afterwards.
func (f *File) ID() string {
	f.idOnce.Do(func() {
		f.id = newFileID()
	})
	return f.id
}

func newFileID() string {
	var b [16]byte
	// crypto/rand.Read never returns an error and always fills b
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:]) + fileIDSuffix
}

// CID returns the content-ID reference for use in HTML bodies.
func (f *File) CID() string {
	return "cid:" + f.ID()
}

// Name returns the name that should be used to attach the file.
func (f *File) Name() (string, bool) { return optional(f.name) }

// Path returns the full path to the file.
func (f *File) Path() (string, bool) { return optional(f.path) }

// Content returns the inline content.
func (f *File) Content() (string, bool) { return optional(f.content) }

// ContentType returns the MIME type that should be used to attach the file.
func (f *File) ContentType() (string, bool) { return optional(f.contentType) }

// Bytes returns the file data, reading it from disk for path based files.
func (f *File) Bytes() ([]byte, error) {
	if f.content != nil {
		return []byte(*f.content), nil
	}
	if f.path == nil {
		return nil, nil
	}
	data, err := os.ReadFile(*f.path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read file %s", *f.path)
	}
	return data, nil
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func cloneFiles(files []*File) []*File {
	if files == nil {
		return nil
	}
	return setFiles(files)
}

func setFiles(files []*File) []*File {
	result := make([]*File, len(files))
	copy(result, files)
	return result
}
