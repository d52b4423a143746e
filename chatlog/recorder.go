package chatlog

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/boltdb/bolt"
	"github.com/dustin/go-humanize"
)

// Recorder persists finalized log lines.
type Recorder interface {
	Record(line string) error
}

// NopRecorder drops everything.
type NopRecorder struct{}

func (NopRecorder) Record(string) error { return nil }

const (
	// Bucket names
	bucketTextLog = "TEXTLOG"
)

// RecordedLine is a stored line.
type RecordedLine struct {
	ID   uint64    `json:"id"`
	Time time.Time `json:"time"`
	Line string    `json:"line"`
}

// String is the line as a plain text log would have it.
func (r RecordedLine) String() string {
	return "[" + r.Time.Format("15:04:05") + "]" + r.Line
}

// BoltRecorder is a Recorder backed by a bolt database.
type BoltRecorder struct {
	db  *bolt.DB
	now func() time.Time
}

func OpenBoltRecorder(path string) (*BoltRecorder, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("could not open db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(bucketTextLog)); err != nil {
			return fmt.Errorf("could not create bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("could not set up buckets: %w", err)
	}

	return &BoltRecorder{db: db, now: time.Now}, nil
}

func (r *BoltRecorder) Close() error {
	return r.db.Close()
}

// itob returns an 8-byte big endian representation of v.
func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

// Record appends line. Newest lines are at the end of the bucket.
func (r *BoltRecorder) Record(line string) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketTextLog))

		id, err := b.NextSequence()
		if err != nil {
			return err
		}
		buf, err := json.Marshal(RecordedLine{ID: id, Time: r.now(), Line: line})
		if err != nil {
			return err
		}
		if err := b.Put(itob(id), buf); err != nil {
			return fmt.Errorf("failed to put: %w", err)
		}
		return nil
	})
}

// Lines returns the last n lines, oldest first. n <= 0 returns all.
func (r *BoltRecorder) Lines(n int) ([]RecordedLine, error) {
	var lines []RecordedLine

	err := r.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket([]byte(bucketTextLog)).Cursor()

		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if n > 0 && len(lines) == n {
				break
			}
			var l RecordedLine
			if err := json.Unmarshal(v, &l); err != nil {
				return err
			}
			lines = append(lines, l)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for i, j := 0, len(lines)-1; i < j; i, j = i+1, j-1 {
		lines[i], lines[j] = lines[j], lines[i]
	}
	return lines, nil
}

// Stats describes the recording.
type Stats struct {
	Lines    int    `json:"lines"`
	Size     string `json:"size"`
	Path     string `json:"path"`
	LastLine string `json:"lastLine,omitempty"`
	LastSeen string `json:"lastSeen,omitempty"`
}

func (r *BoltRecorder) Stats() (Stats, error) {
	s := Stats{Path: r.db.Path()}

	if fi, err := os.Stat(r.db.Path()); err == nil {
		s.Size = humanize.Bytes(uint64(fi.Size()))
	}

	err := r.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketTextLog))
		s.Lines = b.Stats().KeyN

		if _, v := b.Cursor().Last(); v != nil {
			var l RecordedLine
			if err := json.Unmarshal(v, &l); err != nil {
				return err
			}
			s.LastLine = l.Line
			s.LastSeen = humanize.Time(l.Time)
		}
		return nil
	})
	return s, err
}
