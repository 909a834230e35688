package segment

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"os"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"

	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/pkg/errors"
)

// Decode reads a segment from r and reconstructs the index. Corrupt data,
// a foreign file, or a segment built under another tokenizer policy all
// yield a CorpusError.
func Decode(r io.Reader) (*index.InvertedIndex, Header, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, Header{}, fmt.Errorf("reading segment: %w", err)
	}
	if len(data) < HeaderSize+FooterSize {
		return nil, Header{}, apperrors.Corpusf("segment truncated: %d bytes", len(data))
	}
	header := Header{
		Magic:     binary.LittleEndian.Uint32(data[0:4]),
		Version:   binary.LittleEndian.Uint32(data[4:8]),
		TermCount: binary.LittleEndian.Uint32(data[8:12]),
		DocCount:  binary.LittleEndian.Uint32(data[12:16]),
	}
	if header.Magic != MagicBytes {
		return nil, header, apperrors.Corpusf("invalid segment file: bad magic bytes %x", header.Magic)
	}
	if header.Version != FormatVersion {
		return nil, header, apperrors.Corpusf("unsupported segment version %d", header.Version)
	}

	footer := data[len(data)-FooterSize:]
	body := data[HeaderSize : len(data)-FooterSize]
	if n := binary.LittleEndian.Uint64(footer[4:12]); n != uint64(len(body)) {
		return nil, header, apperrors.Corpusf("segment body length %d, footer says %d", len(body), n)
	}
	if sum := binary.LittleEndian.Uint32(footer[0:4]); sum != crc32.ChecksumIEEE(body) {
		return nil, header, apperrors.Corpusf("segment checksum mismatch")
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, header, fmt.Errorf("creating zstd decoder: %w", err)
	}
	defer dec.Close()
	raw, err := dec.DecodeAll(body, nil)
	if err != nil {
		return nil, header, apperrors.Corpusf("decompressing segment: %v", err)
	}

	var p payload
	if err := cbor.Unmarshal(raw, &p); err != nil {
		return nil, header, apperrors.Corpusf("parsing segment: %v", err)
	}
	if p.TokenizerPolicy != tokenizer.PolicyVersion {
		return nil, header, apperrors.Corpusf("segment built with tokenizer policy %q, running %q; rebuild the index",
			p.TokenizerPolicy, tokenizer.PolicyVersion)
	}
	idx, err := index.New(p.Terms, p.Docs)
	if err != nil {
		return nil, header, err
	}
	if uint32(idx.DocumentCount()) != header.DocCount || uint32(len(idx.Terms())) != header.TermCount {
		return nil, header, apperrors.Corpusf("segment header counts do not match body")
	}
	return idx, header, nil
}

// ReadFile loads the index stored at path.
func ReadFile(path string) (*index.InvertedIndex, Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Header{}, fmt.Errorf("opening segment file: %w", err)
	}
	defer f.Close()
	idx, header, err := Decode(f)
	if err != nil {
		return nil, header, fmt.Errorf("%s: %w", path, err)
	}
	return idx, header, nil
}
