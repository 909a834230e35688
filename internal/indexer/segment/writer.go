package segment

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"

	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/internal/indexer/tokenizer"
)

// Encode writes idx to w in segment format.
func Encode(w io.Writer, idx *index.InvertedIndex) error {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		return fmt.Errorf("creating cbor encoder: %w", err)
	}
	raw, err := em.Marshal(payload{
		TokenizerPolicy: tokenizer.PolicyVersion,
		Docs:            idx.DocLengths(),
		Terms:           idx.Snapshot(),
	})
	if err != nil {
		return fmt.Errorf("marshaling index: %w", err)
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderConcurrency(1))
	if err != nil {
		return fmt.Errorf("creating zstd encoder: %w", err)
	}
	body := enc.EncodeAll(raw, nil)
	enc.Close()

	header := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(header[0:4], MagicBytes)
	binary.LittleEndian.PutUint32(header[4:8], FormatVersion)
	binary.LittleEndian.PutUint32(header[8:12], uint32(len(idx.Terms())))
	binary.LittleEndian.PutUint32(header[12:16], uint32(idx.DocumentCount()))

	footer := make([]byte, FooterSize)
	binary.LittleEndian.PutUint32(footer[0:4], crc32.ChecksumIEEE(body))
	binary.LittleEndian.PutUint64(footer[4:12], uint64(len(body)))

	for _, part := range [][]byte{header, body, footer} {
		if _, err := w.Write(part); err != nil {
			return fmt.Errorf("writing segment: %w", err)
		}
	}
	return nil
}

// Bytes returns the encoded segment for idx.
func Bytes(idx *index.InvertedIndex) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, idx); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFile atomically replaces path with the encoded index. It writes to a
// .tmp file first and renames on success.
func WriteFile(path string, idx *index.InvertedIndex) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating segment directory: %w", err)
	}
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("creating temp segment file: %w", err)
	}
	if err := Encode(f, idx); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("syncing segment file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing segment file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming segment file: %w", err)
	}
	return nil
}
