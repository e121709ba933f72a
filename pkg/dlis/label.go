package dlis

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/ssargent/welllog/pkg/fault"
)

// Storage unit label: SEQ(4)|VERSION(5)|STRUCTURE(6)|MAXLEN(5)|ID(60)
const (
	// StorageLabelSize is the size of the storage unit label
	StorageLabelSize = 80

	labelSequence  = 0
	labelVersion   = 4
	labelStructure = 9
	labelMaxLength = 15
	labelID        = 20

	// bytes searched for a label that is not at the start of the file
	labelSearchSize = 1700
)

// StorageLabel is the decoded storage unit label.
type StorageLabel struct {
	Sequence  int    `json:"sequence"`
	Version   string `json:"version"`
	Layout    string `json:"layout"`
	MaxLength int    `json:"maxlen"`
	ID        string `json:"id"`
}

// ParseStorageLabel decodes an 80-byte storage unit label.
func ParseStorageLabel(buf []byte) (StorageLabel, error) {
	var label StorageLabel
	if len(buf) < StorageLabelSize {
		return label, errors.Wrapf(fault.ErrUnreadableHeader,
			"storage label needs %d bytes, got %d", StorageLabelSize, len(buf))
	}

	seq, err := strconv.Atoi(strings.TrimSpace(string(buf[labelSequence:labelVersion])))
	if err != nil {
		return label, errors.Wrapf(fault.ErrCorruptFormat,
			"storage label sequence number %q is not a number", buf[labelSequence:labelVersion])
	}

	version := buf[labelVersion:labelStructure]
	if version[0] != 'V' || version[2] != '.' {
		return label, errors.Wrapf(fault.ErrCorruptFormat, "storage label version %q is malformed", version)
	}
	major, err1 := strconv.Atoi(string(version[1:2]))
	minor, err2 := strconv.Atoi(string(version[3:5]))
	if err1 != nil || err2 != nil {
		return label, errors.Wrapf(fault.ErrCorruptFormat, "storage label version %q is malformed", version)
	}

	maxlen, err := strconv.Atoi(strings.TrimSpace(string(buf[labelMaxLength:labelID])))
	if err != nil {
		return label, errors.Wrapf(fault.ErrCorruptFormat,
			"storage label max record length %q is not a number", buf[labelMaxLength:labelID])
	}

	label.Sequence = seq
	label.Version = fmt.Sprintf("%d.%d", major, minor)
	label.MaxLength = maxlen
	label.ID = string(buf[labelID:StorageLabelSize])

	switch string(buf[labelStructure:labelMaxLength]) {
	case "RECORD":
		label.Layout = "record"
	case "STREAM":
		label.Layout = "stream"
	default:
		label.Layout = "unknown"
	}
	return label, nil
}

// FindStorageLabel returns the offset in buf at which a storage label
// starts. It looks for the version field followed by a known structure.
func FindStorageLabel(buf []byte) (int, error) {
	from := 0
	for {
		i := bytes.Index(buf[from:], []byte("V1."))
		if i < 0 {
			return -1, errors.Wrapf(fault.ErrNotFound,
				"searched %d bytes, but could not find storage label", len(buf))
		}
		i += from

		structure := i + labelStructure - labelVersion
		if structure+6 <= len(buf) {
			s := string(buf[structure : structure+6])
			if s == "RECORD" || s == "STREAM" {
				if i < labelVersion {
					return -1, errors.Wrapf(fault.ErrCorruptFormat,
						"found something that could be parts of a storage label at %d, file may be corrupted", i)
				}
				return i - labelVersion, nil
			}
		}
		from = i + 1
	}
}
