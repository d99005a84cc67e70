// Package grf reads and writes GRF 0x200 archives, a zlib-compressed asset
// container format. Reads are safe for concurrent use.
package grf

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

const (
	grfMagic   = "Master of Magic"
	headerSize = 46
	version200 = 0x200

	flagFile      = 0x01
	flagEncrypted = 0x02
)

// ErrNotFound is returned by Read for paths the archive does not contain.
var ErrNotFound = errors.New("file not found in archive")

// Archive represents an opened GRF archive.
type Archive struct {
	r        io.ReaderAt
	closer   io.Closer
	header   Header
	fileList map[string]*Entry
}

// Header contains GRF file header information.
type Header struct {
	Magic         [15]byte
	EncryptionKey [15]byte
	TableOffset   uint32
	Seed          uint32
	FileCount     uint32
	Version       uint32
}

// Entry represents a file entry in the archive.
type Entry struct {
	Name             string
	CompressedSize   uint32
	AlignedSize      uint32
	UncompressedSize uint32
	Flags            uint8
	Offset           uint32
}

// Open opens a GRF archive for reading.
func Open(path string) (*Archive, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}

	archive, err := NewReader(file)
	if err != nil {
		file.Close()
		return nil, err
	}
	archive.closer = file
	return archive, nil
}

// NewReader reads the header and file table from r.
func NewReader(r io.ReaderAt) (*Archive, error) {
	archive := &Archive{
		r:        r,
		fileList: make(map[string]*Entry),
	}

	if err := archive.readHeader(); err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	if err := archive.readFileTable(); err != nil {
		return nil, fmt.Errorf("reading file table: %w", err)
	}
	return archive, nil
}

// Close closes the archive.
func (a *Archive) Close() error {
	if a.closer != nil {
		return a.closer.Close()
	}
	return nil
}

func (a *Archive) readHeader() error {
	sr := io.NewSectionReader(a.r, 0, headerSize)
	if err := binary.Read(sr, binary.LittleEndian, &a.header); err != nil {
		return err
	}

	if string(a.header.Magic[:]) != grfMagic {
		return fmt.Errorf("invalid GRF magic")
	}
	if a.header.Version != version200 {
		return fmt.Errorf("unsupported GRF version: 0x%x", a.header.Version)
	}
	return nil
}

func (a *Archive) readFileTable() error {
	tableOffset := int64(a.header.TableOffset) + headerSize

	var sizes [8]byte
	if _, err := a.r.ReadAt(sizes[:], tableOffset); err != nil {
		return fmt.Errorf("table sizes: %w", err)
	}
	compressedSize := binary.LittleEndian.Uint32(sizes[0:])
	uncompressedSize := binary.LittleEndian.Uint32(sizes[4:])

	compressedData := make([]byte, compressedSize)
	if _, err := a.r.ReadAt(compressedData, tableOffset+8); err != nil {
		return fmt.Errorf("table data: %w", err)
	}

	tableData, err := inflate(compressedData, uncompressedSize)
	if err != nil {
		return fmt.Errorf("table data: %w", err)
	}

	if a.header.FileCount < a.header.Seed+7 {
		return fmt.Errorf("corrupt file count %d", a.header.FileCount)
	}
	fileCount := a.header.FileCount - a.header.Seed - 7
	offset := 0

	for i := uint32(0); i < fileCount; i++ {
		nameEnd := bytes.IndexByte(tableData[offset:], 0)
		if nameEnd < 0 {
			break
		}
		name := string(tableData[offset : offset+nameEnd])
		offset += nameEnd + 1

		if offset+17 > len(tableData) {
			break
		}

		entry := &Entry{
			Name:             normalizePath(name),
			CompressedSize:   binary.LittleEndian.Uint32(tableData[offset:]),
			AlignedSize:      binary.LittleEndian.Uint32(tableData[offset+4:]),
			UncompressedSize: binary.LittleEndian.Uint32(tableData[offset+8:]),
			Flags:            tableData[offset+12],
			Offset:           binary.LittleEndian.Uint32(tableData[offset+13:]),
		}
		offset += 17

		if entry.Flags&flagFile != 0 {
			a.fileList[entry.Name] = entry
		}
	}

	return nil
}

// List returns all file paths in the archive, sorted.
func (a *Archive) List() []string {
	result := make([]string, 0, len(a.fileList))
	for path := range a.fileList {
		result = append(result, path)
	}
	sort.Strings(result)
	return result
}

// Contains checks if a file exists.
func (a *Archive) Contains(path string) bool {
	_, ok := a.fileList[normalizePath(path)]
	return ok
}

// Stat returns the entry for path.
func (a *Archive) Stat(path string) (Entry, bool) {
	e, ok := a.fileList[normalizePath(path)]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Read reads a file from the archive.
func (a *Archive) Read(path string) ([]byte, error) {
	entry, ok := a.fileList[normalizePath(path)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if entry.Flags&flagEncrypted != 0 {
		return nil, fmt.Errorf("%s: encrypted entries are not supported", path)
	}

	compressedData := make([]byte, entry.CompressedSize)
	if _, err := a.r.ReadAt(compressedData, int64(entry.Offset)+headerSize); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	if entry.CompressedSize == entry.UncompressedSize {
		return compressedData, nil
	}

	data, err := inflate(compressedData, entry.UncompressedSize)
	if err != nil {
		return nil, fmt.Errorf("inflating %s: %w", path, err)
	}
	return data, nil
}

func inflate(compressed []byte, size uint32) ([]byte, error) {
	reader, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	result := make([]byte, size)
	if _, err := io.ReadFull(reader, result); err != nil {
		return nil, err
	}
	return result, nil
}

func normalizePath(path string) string {
	path = strings.ReplaceAll(path, "\\", "/")
	return strings.ToLower(path)
}
