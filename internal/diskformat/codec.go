// Package diskformat implements the fixed, little-endian, length-prefixed
// binary encoding used for every on-disk entity, plus the directory-level
// load/save protocol built on top of it. The encoding is hand-rolled,
// explicit field-by-field framing rather than a generic reflection-based
// codec, since no serialization library in the dependency set fits a
// fixed little-endian wire format this precisely.
package diskformat

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/jtsearch/tfidxd/internal/corpus"
	"github.com/jtsearch/tfidxd/internal/metastore"
	"github.com/jtsearch/tfidxd/internal/tagset"
	"github.com/jtsearch/tfidxd/internal/vectorizer"
)

var order = binary.LittleEndian

func writeUint32(w io.Writer, v uint32) error {
	var buf [4]byte
	order.PutUint32(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func writeUint64(w io.Writer, v uint64) error {
	var buf [8]byte
	order.PutUint64(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func writeInt64(w io.Writer, v int64) error {
	return writeUint64(w, uint64(v))
}

func writeFloat64(w io.Writer, v float64) error {
	return writeUint64(w, math.Float64bits(v))
}

func writeString(w io.Writer, s string) error {
	if err := writeUint32(w, uint32(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func readUint32(r io.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return order.Uint32(buf[:]), nil
}

func readUint64(r io.Reader) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return order.Uint64(buf[:]), nil
}

func readInt64(r io.Reader) (int64, error) {
	v, err := readUint64(r)
	return int64(v), err
}

func readFloat64(r io.Reader) (float64, error) {
	v, err := readUint64(r)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(v), nil
}

func readString(r io.Reader) (string, error) {
	n, err := readUint32(r)
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

// EncodeCorpus serializes the full ordered term list of c.
func EncodeCorpus(c *corpus.Corpus) []byte {
	terms := c.Snapshot()
	var buf bytes.Buffer
	_ = writeUint32(&buf, uint32(len(terms)))
	for _, t := range terms {
		_ = writeString(&buf, t)
	}
	return buf.Bytes()
}

// DecodeCorpus deserializes a Corpus from data produced by EncodeCorpus.
func DecodeCorpus(data []byte) (*corpus.Corpus, error) {
	r := bytes.NewReader(data)
	n, err := readUint32(r)
	if err != nil {
		return nil, fmt.Errorf("diskformat: corpus header: %w", err)
	}
	terms := make([]string, n)
	for i := range terms {
		s, err := readString(r)
		if err != nil {
			return nil, fmt.Errorf("diskformat: corpus term %d: %w", i, err)
		}
		terms[i] = s
	}
	return corpus.FromTerms(terms), nil
}

// EncodeVectorizer serializes a Vectorizer's document table.
func EncodeVectorizer(v *vectorizer.Vectorizer) []byte {
	snap := v.Export()
	var buf bytes.Buffer
	_ = writeUint32(&buf, uint32(len(snap.DocIDs)))
	for i, id := range snap.DocIDs {
		_ = writeInt64(&buf, int64(id))
		_ = writeUint64(&buf, snap.Totals[i])
		terms := snap.TermIDs[i]
		counts := snap.TermCount[i]
		_ = writeUint32(&buf, uint32(len(terms)))
		for j, term := range terms {
			var tbuf [2]byte
			order.PutUint16(tbuf[:], term)
			buf.Write(tbuf[:])
			_ = writeUint32(&buf, counts[j])
		}
	}
	return buf.Bytes()
}

// DecodeVectorizer deserializes a Vectorizer bound to c from data produced
// by EncodeVectorizer, refreshing its IDF cache before returning.
func DecodeVectorizer(data []byte, c *corpus.Corpus) (*vectorizer.Vectorizer, error) {
	r := bytes.NewReader(data)
	n, err := readUint32(r)
	if err != nil {
		return nil, fmt.Errorf("diskformat: vectorizer header: %w", err)
	}
	snap := vectorizer.Snapshot{
		DocIDs:    make([]int, n),
		TermIDs:   make([][]uint16, n),
		TermCount: make([][]uint32, n),
		Totals:    make([]uint64, n),
	}
	for i := uint32(0); i < n; i++ {
		id, err := readInt64(r)
		if err != nil {
			return nil, fmt.Errorf("diskformat: vectorizer doc id: %w", err)
		}
		total, err := readUint64(r)
		if err != nil {
			return nil, fmt.Errorf("diskformat: vectorizer doc total: %w", err)
		}
		termCount, err := readUint32(r)
		if err != nil {
			return nil, fmt.Errorf("diskformat: vectorizer term count: %w", err)
		}
		terms := make([]uint16, termCount)
		counts := make([]uint32, termCount)
		for j := uint32(0); j < termCount; j++ {
			var tbuf [2]byte
			if _, err := io.ReadFull(r, tbuf[:]); err != nil {
				return nil, fmt.Errorf("diskformat: vectorizer term id: %w", err)
			}
			terms[j] = order.Uint16(tbuf[:])
			c, err := readUint32(r)
			if err != nil {
				return nil, fmt.Errorf("diskformat: vectorizer term freq: %w", err)
			}
			counts[j] = c
		}
		snap.DocIDs[i] = int(id)
		snap.Totals[i] = total
		snap.TermIDs[i] = terms
		snap.TermCount[i] = counts
	}
	return vectorizer.FromSnapshot(c, snap), nil
}

// EncodeMetadata serializes a metastore.Store's full record sequence,
// tombstones included.
func EncodeMetadata(records []metastore.Record) []byte {
	var buf bytes.Buffer
	_ = writeUint32(&buf, uint32(len(records)))
	for _, rec := range records {
		_ = writeInt64(&buf, int64(rec.ID))
		_ = writeString(&buf, rec.URL)
		_ = writeString(&buf, rec.Title)
		_ = writeString(&buf, rec.Description)
		_ = writeString(&buf, rec.Favicon)
		_ = writeInt64(&buf, rec.Timestamp.UTC().UnixNano())
		_ = writeFloat64(&buf, rec.Points)
		_ = writeUint64(&buf, uint64(rec.Tags))
	}
	return buf.Bytes()
}

// DecodeMetadata deserializes the record sequence produced by
// EncodeMetadata.
func DecodeMetadata(data []byte) ([]metastore.Record, error) {
	r := bytes.NewReader(data)
	n, err := readUint32(r)
	if err != nil {
		return nil, fmt.Errorf("diskformat: meta header: %w", err)
	}
	records := make([]metastore.Record, n)
	for i := uint32(0); i < n; i++ {
		id, err := readInt64(r)
		if err != nil {
			return nil, fmt.Errorf("diskformat: meta id: %w", err)
		}
		url, err := readString(r)
		if err != nil {
			return nil, fmt.Errorf("diskformat: meta url: %w", err)
		}
		title, err := readString(r)
		if err != nil {
			return nil, fmt.Errorf("diskformat: meta title: %w", err)
		}
		desc, err := readString(r)
		if err != nil {
			return nil, fmt.Errorf("diskformat: meta description: %w", err)
		}
		favicon, err := readString(r)
		if err != nil {
			return nil, fmt.Errorf("diskformat: meta favicon: %w", err)
		}
		ts, err := readInt64(r)
		if err != nil {
			return nil, fmt.Errorf("diskformat: meta timestamp: %w", err)
		}
		points, err := readFloat64(r)
		if err != nil {
			return nil, fmt.Errorf("diskformat: meta points: %w", err)
		}
		tags, err := readUint64(r)
		if err != nil {
			return nil, fmt.Errorf("diskformat: meta tags: %w", err)
		}
		records[i] = metastore.Record{
			ID:          int(id),
			URL:         url,
			Title:       title,
			Description: desc,
			Favicon:     favicon,
			Timestamp:   time.Unix(0, ts).UTC(),
			Points:      points,
			Tags:        tagset.Set(tags),
		}
	}
	return records, nil
}
