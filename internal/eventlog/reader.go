package eventlog

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/platformbuilds/vigilante-core/internal/models"
)

// maxLineBytes bounds one record; advisor replies make lines long.
const maxLineBytes = 8 << 20

// ReadTail returns the last limit parseable records of the log at path,
// oldest first. limit <= 0 returns every record. A missing file yields an
// empty slice.
func ReadTail(path string, limit int) ([]models.StepRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []models.StepRecord{}, nil
		}
		return nil, fmt.Errorf("open event log: %w", err)
	}
	defer f.Close()

	return readTail(f, limit)
}

func readTail(r io.Reader, limit int) ([]models.StepRecord, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)

	var ring []models.StepRecord
	next := 0
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec models.StepRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			continue
		}
		if limit <= 0 || len(ring) < limit {
			ring = append(ring, rec)
			continue
		}
		ring[next] = rec
		next = (next + 1) % limit
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read event log: %w", err)
	}

	if next == 0 {
		if ring == nil {
			return []models.StepRecord{}, nil
		}
		return ring, nil
	}
	out := make([]models.StepRecord, 0, len(ring))
	out = append(out, ring[next:]...)
	out = append(out, ring[:next]...)
	return out, nil
}
