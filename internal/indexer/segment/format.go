// Package segment persists a built index to a single file so that the
// search service and evaluator can load it instead of rebuilding. The body
// is deterministic CBOR compressed with zstd, so the same index always
// produces the same bytes.
//
// Layout:
//
//	header  16 bytes  magic, format version, term count, doc count
//	body    n bytes   zstd(cbor(payload))
//	footer  12 bytes  crc32(body), body length
package segment

import (
	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/internal/indexer/index"
)

const (
	MagicBytes    uint32 = 0x51585347 // "QXSG"
	FormatVersion uint32 = 1
	HeaderSize           = 16
	FooterSize           = 12
)

// Header is the fixed-size prefix of every segment file.
type Header struct {
	Magic     uint32
	Version   uint32
	TermCount uint32
	DocCount  uint32
}

type payload struct {
	TokenizerPolicy string            `cbor:"1,keyasint"`
	Docs            []index.DocStats  `cbor:"2,keyasint"`
	Terms           []index.TermEntry `cbor:"3,keyasint"`
}
