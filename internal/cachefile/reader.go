package cachefile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/gogpu/statecache/state"
)

// Status describes the usability of a cache file.
type Status int

const (
	// StatusMissing means the file does not exist or could not be opened.
	StatusMissing Status = iota

	// StatusStale means the header is absent, truncated or from another
	// format version or record size. The records are not read.
	StatusStale

	// StatusValid means the header matches the current build.
	StatusValid
)

func (s Status) String() string {
	switch s {
	case StatusMissing:
		return "missing"
	case StatusStale:
		return "stale"
	case StatusValid:
		return "valid"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// LoadResult is the outcome of reading a cache file.
type LoadResult struct {
	Status  Status
	Entries []state.Entry

	// Invalid counts records that failed the integrity or primary stage
	// check, including a truncated trailing record.
	Invalid int
}

// NeedsRewrite reports whether the file must be regenerated before entries
// can be appended to it.
func (r *LoadResult) NeedsRewrite() bool {
	return r.Status != StatusValid || r.Invalid > 0
}

// Load reads every valid entry of the cache file at path. A missing file or a
// mismatched header is reported through Status, not as an error. The error is
// non-nil only when the file exists but could not be read; the result then
// still holds the entries read so far.
func Load(path string) (*LoadResult, error) {
	res := &LoadResult{Status: StatusMissing}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return res, nil
		}
		return res, fmt.Errorf("cachefile: open %s: %w", path, err)
	}
	defer f.Close()

	res.Status, res.Invalid, err = Scan(bufio.NewReader(f), func(e state.Entry) {
		res.Entries = append(res.Entries, e)
	})
	if err != nil {
		return res, fmt.Errorf("cachefile: read %s: %w", path, err)
	}
	return res, nil
}

// Scan reads a cache file stream and calls fn for every valid record in file
// order. A record that fails verification is counted and skipped; scanning
// resumes at the next record boundary.
func Scan(r io.Reader, fn func(state.Entry)) (status Status, invalid int, err error) {
	hdr, err := readHeader(r)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return StatusStale, 0, nil
		}
		return StatusStale, 0, err
	}
	if hdr != CurrentHeader() {
		return StatusStale, 0, nil
	}

	buf := make([]byte, state.EntrySize)
	for {
		_, err := io.ReadFull(r, buf)
		if errors.Is(err, io.EOF) {
			return StatusValid, invalid, nil
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return StatusValid, invalid + 1, nil
		}
		if err != nil {
			return StatusValid, invalid, err
		}

		if !state.VerifyRecord(buf) {
			invalid++
			continue
		}

		var e state.Entry
		if err := e.UnmarshalBinary(buf); err != nil {
			invalid++
			continue
		}
		if e.Validate() != nil {
			invalid++
			continue
		}
		fn(e)
	}
}
