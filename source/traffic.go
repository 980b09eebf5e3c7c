package source

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/floodwatch/routing/router"
)

// TrafficFile reads traffic snapshots from a JSON file that an external
// collector rewrites periodically. The file is re-read on every call so the
// engine always sees the collector's latest write.
type TrafficFile struct {
	file string
}

func NewTrafficFile(file string) *TrafficFile {
	return &TrafficFile{file: file}
}

// Latest parses the current file content. A missing file yields an empty
// snapshot, the collector may simply not have produced one yet.
func (t *TrafficFile) Latest() (*router.TrafficSnapshot, error) {
	if t.file == "" {
		return &router.TrafficSnapshot{}, nil
	}
	data, err := os.ReadFile(t.file)
	if os.IsNotExist(err) {
		return &router.TrafficSnapshot{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read traffic file %s: %w", t.file, err)
	}
	var snap router.TrafficSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parse traffic file %s: %w", t.file, err)
	}
	return &snap, nil
}
