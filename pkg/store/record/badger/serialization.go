package badger

import (
	"encoding/json"
	"fmt"

	"github.com/marmos91/dittodir/pkg/directory"
	"github.com/marmos91/dittodir/pkg/store/record"
)

// Records are stored as JSON: human-readable, tolerant of new fields, and the
// same encoding the S3 backend uses. Payloads are base64 inside the document.

func encodeRecord(rec *directory.Record) ([]byte, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to encode record %s: %w", rec.FullPath, err)
	}
	return data, nil
}

func decodeRecord(data []byte) (*directory.Record, error) {
	var rec directory.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode record: %w", err)
	}
	return record.NormalizeLoaded(&rec), nil
}
