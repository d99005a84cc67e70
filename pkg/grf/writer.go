package grf

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"io"
	"strings"
)

// File is one entry to write into an archive.
type File struct {
	Name string
	Data []byte
}

// Write encodes files as a GRF 0x200 archive. Entries are zlib-compressed
// and padded to 8 bytes; names are stored with backslashes.
func Write(w io.Writer, files []File) error {
	var body bytes.Buffer
	var table bytes.Buffer

	for _, f := range files {
		var compressed bytes.Buffer
		zw := zlib.NewWriter(&compressed)
		if _, err := zw.Write(f.Data); err != nil {
			return fmt.Errorf("compressing %s: %w", f.Name, err)
		}
		if err := zw.Close(); err != nil {
			return fmt.Errorf("compressing %s: %w", f.Name, err)
		}

		compressedSize := uint32(compressed.Len())
		alignedSize := compressedSize
		if alignedSize%8 != 0 {
			alignedSize += 8 - alignedSize%8
		}
		offset := uint32(body.Len())

		body.Write(compressed.Bytes())
		body.Write(make([]byte, alignedSize-compressedSize))

		table.WriteString(strings.ReplaceAll(f.Name, "/", "\\"))
		table.WriteByte(0)
		var rec [17]byte
		binary.LittleEndian.PutUint32(rec[0:], compressedSize)
		binary.LittleEndian.PutUint32(rec[4:], alignedSize)
		binary.LittleEndian.PutUint32(rec[8:], uint32(len(f.Data)))
		rec[12] = flagFile
		binary.LittleEndian.PutUint32(rec[13:], offset)
		table.Write(rec[:])
	}

	var compressedTable bytes.Buffer
	tw := zlib.NewWriter(&compressedTable)
	if _, err := tw.Write(table.Bytes()); err != nil {
		return fmt.Errorf("compressing table: %w", err)
	}
	if err := tw.Close(); err != nil {
		return fmt.Errorf("compressing table: %w", err)
	}

	header := Header{
		TableOffset: uint32(body.Len()),
		FileCount:   uint32(len(files)) + 7, // seed 0
		Version:     version200,
	}
	copy(header.Magic[:], grfMagic)

	if err := binary.Write(w, binary.LittleEndian, &header); err != nil {
		return err
	}
	if _, err := w.Write(body.Bytes()); err != nil {
		return err
	}
	var sizes [8]byte
	binary.LittleEndian.PutUint32(sizes[0:], uint32(compressedTable.Len()))
	binary.LittleEndian.PutUint32(sizes[4:], uint32(table.Len()))
	if _, err := w.Write(sizes[:]); err != nil {
		return err
	}
	_, err := w.Write(compressedTable.Bytes())
	return err
}
