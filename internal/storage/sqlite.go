package storage

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteDialect stores embeddings as little-endian float32 BLOBs.
var SQLiteDialect = Dialect{
	Name:   "sqlite",
	Driver: "sqlite3",
	Schema: func(table string) []string {
		return []string{
			fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
				id TEXT PRIMARY KEY,
				embedding BLOB NOT NULL,
				text TEXT NOT NULL,
				metadata TEXT NOT NULL,
				updated_at INTEGER NOT NULL
			);`, table),
		}
	},
	Encode:      encodeFloat32Blob,
	Decode:      decodeFloat32Blob,
	Placeholder: func(int) string { return "?" },
}

// NewSQLiteStore creates or opens a SQLite database at path.
func NewSQLiteStore(ctx context.Context, path, table string) (*SQLStore, error) {
	return Open(ctx, SQLiteDialect, path, table)
}

func encodeFloat32Blob(embedding []float32) (any, error) {
	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.LittleEndian, embedding); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeFloat32Blob(column any) ([]float32, error) {
	var blob []byte
	switch v := column.(type) {
	case []byte:
		blob = v
	case string:
		blob = []byte(v)
	case nil:
		return []float32{}, nil
	default:
		return nil, fmt.Errorf("unexpected embedding column type %T", column)
	}
	if len(blob)%4 != 0 {
		return nil, fmt.Errorf("embedding blob has %d bytes, not a multiple of 4", len(blob))
	}

	embedding := make([]float32, len(blob)/4)
	if err := binary.Read(bytes.NewReader(blob), binary.LittleEndian, &embedding); err != nil {
		return nil, err
	}
	return embedding, nil
}
