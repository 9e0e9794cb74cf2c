package embedcache

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spigell/resume-matcher/internal/vector"
)

const artifactVersion uint16 = 1

var artifactMagic = [4]byte{'R', 'M', 'E', 'C'}

type header struct {
	Magic    [4]byte
	Version  uint16
	Scheme   uint8
	Reserved uint8
	Dim      uint32
	Count    uint32
	Key      Key
}

func readArtifact(path string, key Key, scheme vector.Scheme, dim, count int) (*vector.Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return decode(data, key, scheme, dim, count)
}

func decode(data []byte, key Key, scheme vector.Scheme, dim, count int) (*vector.Set, error) {
	r := bytes.NewReader(data)

	var h header
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	switch {
	case h.Magic != artifactMagic:
		return nil, errors.New("not an embedding cache artifact")
	case h.Version != artifactVersion:
		return nil, fmt.Errorf("artifact version %d, want %d", h.Version, artifactVersion)
	case h.Key != key:
		return nil, errors.New("artifact key does not match corpus")
	case vector.Scheme(h.Scheme) != scheme:
		return nil, fmt.Errorf("artifact scheme %s, want %s", vector.Scheme(h.Scheme), scheme)
	case int(h.Dim) != dim:
		return nil, fmt.Errorf("artifact dimension %d, want %d", h.Dim, dim)
	case int(h.Count) != count:
		return nil, fmt.Errorf("artifact holds %d vectors, want %d", h.Count, count)
	}

	set := &vector.Set{Scheme: scheme, Dim: dim}
	var err error
	switch scheme {
	case vector.SchemeNone:
		set.Floats, err = readRows[float32](r, count, dim)
	case vector.SchemeInt8:
		set.Codes, err = readRows[int8](r, count, dim)
	case vector.SchemeBinary:
		set.Bits, err = readRows[uint64](r, count, vector.Words(dim))
	default:
		err = fmt.Errorf("unknown scheme %d", h.Scheme)
	}
	if err != nil {
		return nil, err
	}

	if r.Len() != 0 {
		return nil, fmt.Errorf("artifact has %d trailing bytes", r.Len())
	}
	return set, nil
}

func readRows[T float32 | int8 | uint64](r io.Reader, count, width int) ([][]T, error) {
	flat := make([]T, count*width)
	if err := binary.Read(r, binary.LittleEndian, flat); err != nil {
		return nil, fmt.Errorf("read payload: %w", err)
	}
	rows := make([][]T, count)
	for i := range rows {
		rows[i] = flat[i*width : (i+1)*width : (i+1)*width]
	}
	return rows, nil
}

func encode(w io.Writer, key Key, set *vector.Set) error {
	h := header{
		Magic:   artifactMagic,
		Version: artifactVersion,
		Scheme:  uint8(set.Scheme),
		Dim:     uint32(set.Dim),
		Count:   uint32(set.Len()),
		Key:     key,
	}
	if err := binary.Write(w, binary.LittleEndian, &h); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	var rows any
	switch set.Scheme {
	case vector.SchemeNone:
		rows = set.Floats
	case vector.SchemeInt8:
		rows = set.Codes
	case vector.SchemeBinary:
		rows = set.Bits
	}

	switch rows := rows.(type) {
	case [][]float32:
		return writeRows(w, rows)
	case [][]int8:
		return writeRows(w, rows)
	case [][]uint64:
		return writeRows(w, rows)
	default:
		return fmt.Errorf("unknown scheme %d", set.Scheme)
	}
}

func writeRows[T float32 | int8 | uint64](w io.Writer, rows [][]T) error {
	for i, row := range rows {
		if err := binary.Write(w, binary.LittleEndian, row); err != nil {
			return fmt.Errorf("write vector %d: %w", i, err)
		}
	}
	return nil
}

// writeArtifact replaces path atomically.
func writeArtifact(path string, key Key, set *vector.Set) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	var buf bytes.Buffer
	if err = encode(&buf, key, set); err != nil {
		return err
	}
	if _, err = tmp.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
