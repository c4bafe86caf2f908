// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package shader

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/pierrec/lz4"
)

// Archive layout: magic, little endian uint64 header size, gob encoded
// header, then one lz4 frame per entry. Entry offsets are relative to the
// end of the header, so every entry can be read and decompressed in place.
const (
	archiveMagic   = "SLSA"
	archiveVersion = 1
	prefixLength   = len(archiveMagic) + 8
)

// ErrFileFormat is returned when opening something that is not a shader
// archive.
var ErrFileFormat = errors.New("corrupted or not a shader archive")

// IndexEntry is info for one shader in the archive index.
type IndexEntry struct {
	Name           string
	Offset         int64
	Size           int64
	CompressedSize int64
}

type archiveHeader struct {
	Version     int64
	DateCreated int64
	Index       []IndexEntry
}

// ArchiveBuilder collects compressed shaders and writes them out as one
// archive. Add is safe to use from several goroutines.
type ArchiveBuilder struct {
	mutex   sync.Mutex
	entries map[string]compressed
}

type compressed struct {
	size int64
	data []byte
}

// NewArchiveBuilder creates an empty builder.
func NewArchiveBuilder() *ArchiveBuilder {
	return &ArchiveBuilder{entries: make(map[string]compressed)}
}

// Add compresses data and stores it under name. Adding a name twice is an
// error.
func (b *ArchiveBuilder) Add(name string, data []byte) error {
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}

	b.mutex.Lock()
	defer b.mutex.Unlock()
	if _, ok := b.entries[name]; ok {
		return fmt.Errorf("shader %q added twice", name)
	}
	b.entries[name] = compressed{size: int64(len(data)), data: buf.Bytes()}
	return nil
}

// Len returns the number of shaders added.
func (b *ArchiveBuilder) Len() int {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return len(b.entries)
}

// WriteTo writes the archive to w. Entries are ordered by name.
func (b *ArchiveBuilder) WriteTo(w io.Writer) (int64, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	names := make([]string, 0, len(b.entries))
	for name := range b.entries {
		names = append(names, name)
	}
	sort.Strings(names)

	header := archiveHeader{
		Version:     archiveVersion,
		DateCreated: time.Now().Unix(),
	}
	var offset int64
	for _, name := range names {
		e := b.entries[name]
		header.Index = append(header.Index, IndexEntry{
			Name:           name,
			Offset:         offset,
			Size:           e.size,
			CompressedSize: int64(len(e.data)),
		})
		offset += int64(len(e.data))
	}

	var encoded bytes.Buffer
	if err := gob.NewEncoder(&encoded).Encode(header); err != nil {
		return 0, err
	}
	prefix := make([]byte, prefixLength)
	copy(prefix, archiveMagic)
	binary.LittleEndian.PutUint64(prefix[len(archiveMagic):], uint64(encoded.Len()))

	var written int64
	chunks := [][]byte{prefix, encoded.Bytes()}
	for _, name := range names {
		chunks = append(chunks, b.entries[name].data)
	}
	for _, chunk := range chunks {
		n, err := w.Write(chunk)
		written += int64(n)
		if err != nil {
			return written, err
		}
	}
	return written, nil
}

// Archive reads shaders from an archive. It can be read from concurrently.
type Archive struct {
	reader  io.ReaderAt
	closer  io.Closer
	created time.Time
	data    int64
	index   map[string]IndexEntry
	names   []string
}

// OpenArchive reads the index of the archive in r.
func OpenArchive(r io.ReaderAt) (*Archive, error) {
	prefix := make([]byte, prefixLength)
	if _, err := r.ReadAt(prefix, 0); err != nil {
		if err == io.EOF {
			return nil, ErrFileFormat
		}
		return nil, err
	}
	if string(prefix[:len(archiveMagic)]) != archiveMagic {
		return nil, ErrFileFormat
	}
	headerSize := binary.LittleEndian.Uint64(prefix[len(archiveMagic):])
	if headerSize > 1<<30 {
		return nil, ErrFileFormat
	}

	var header archiveHeader
	section := io.NewSectionReader(r, int64(prefixLength), int64(headerSize))
	if err := gob.NewDecoder(section).Decode(&header); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFileFormat, err)
	}
	if header.Version != archiveVersion {
		return nil, fmt.Errorf("%w: version %d", ErrFileFormat, header.Version)
	}

	ar := &Archive{
		reader:  r,
		created: time.Unix(header.DateCreated, 0),
		data:    int64(prefixLength) + int64(headerSize),
		index:   make(map[string]IndexEntry, len(header.Index)),
	}
	for _, e := range header.Index {
		ar.index[e.Name] = e
		ar.names = append(ar.names, e.Name)
	}
	sort.Strings(ar.names)
	return ar, nil
}

// OpenArchiveFile opens the archive at path. Close releases the file.
func OpenArchiveFile(path string) (*Archive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	ar, err := OpenArchive(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	ar.closer = f
	return ar, nil
}

// Close closes the file opened by OpenArchiveFile.
func (a *Archive) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer.Close()
}

// Names lists the shaders in the archive in order.
func (a *Archive) Names() []string {
	return append([]string(nil), a.names...)
}

// Created returns when the archive was written.
func (a *Archive) Created() time.Time {
	return a.created
}

// Load decompresses the shader called name or name.spv.
func (a *Archive) Load(name string) ([]byte, error) {
	e, ok := a.index[name]
	if !ok {
		if e, ok = a.index[name+compiledSuffix]; !ok {
			return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
		}
	}
	section := io.NewSectionReader(a.reader, a.data+e.Offset, e.CompressedSize)
	out := make([]byte, e.Size)
	if _, err := io.ReadFull(lz4.NewReader(section), out); err != nil {
		return nil, fmt.Errorf("shader %s: %w", e.Name, err)
	}
	return out, nil
}
