package lis

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/ssargent/welllog/pkg/fault"
)

const (
	fileHeaderSize = 56
	reelHeaderSize = 126
	componentSize  = 12
)

// FileHeaderRecord is the payload of a file header or file trailer.
type FileHeaderRecord struct {
	FileName        string `json:"file_name"`
	ServiceSubLevel string `json:"service_sublevel"`
	Version         string `json:"version"`
	Date            string `json:"date"`
	MaxPRLength     string `json:"max_pr_length"`
	FileType        string `json:"file_type"`
	AdjacentFile    string `json:"adjacent_file"` // previous in a header, next in a trailer
}

// ParseFileHeader decodes a file header or trailer payload.
//
//	NAME(10)|2|SUBLEVEL(6)|VERSION(8)|DATE(8)|1|MAXPR(5)|2|TYPE(2)|2|ADJACENT(10)
func ParseFileHeader(data []byte) (*FileHeaderRecord, error) {
	if len(data) < fileHeaderSize {
		return nil, errors.Wrapf(fault.ErrTruncatedInput,
			"file header needs %d bytes, got %d", fileHeaderSize, len(data))
	}
	return &FileHeaderRecord{
		FileName:        field(data, 0, 10),
		ServiceSubLevel: field(data, 12, 6),
		Version:         field(data, 18, 8),
		Date:            field(data, 26, 8),
		MaxPRLength:     field(data, 35, 5),
		FileType:        field(data, 42, 2),
		AdjacentFile:    field(data, 46, 10),
	}, nil
}

// ReelHeaderRecord is the payload of a reel or tape header or trailer.
type ReelHeaderRecord struct {
	ServiceName  string `json:"service_name"`
	Date         string `json:"date"`
	Origin       string `json:"origin"`
	Name         string `json:"name"`
	Continuation string `json:"continuation"`
	AdjacentName string `json:"adjacent_name"`
	Comment      string `json:"comment"`
}

// ParseReelHeader decodes a reel or tape header or trailer payload.
//
//	SERVICE(6)|6|DATE(8)|2|ORIGIN(4)|2|NAME(8)|2|CONT(2)|2|ADJACENT(8)|2|COMMENT(74)
func ParseReelHeader(data []byte) (*ReelHeaderRecord, error) {
	if len(data) < reelHeaderSize {
		return nil, errors.Wrapf(fault.ErrTruncatedInput,
			"reel header needs %d bytes, got %d", reelHeaderSize, len(data))
	}
	return &ReelHeaderRecord{
		ServiceName:  field(data, 0, 6),
		Date:         field(data, 12, 8),
		Origin:       field(data, 22, 4),
		Name:         field(data, 28, 8),
		Continuation: field(data, 38, 2),
		AdjacentName: field(data, 42, 8),
		Comment:      field(data, 52, 74),
	}, nil
}

func field(data []byte, at, n int) string {
	return strings.TrimRight(string(data[at:at+n]), " \x00")
}

// Component is one component block of an information record, such as
// wellsite data.
type Component struct {
	Type     uint8    `json:"type"`
	Code     ReprCode `json:"reprc"`
	Size     uint8    `json:"size"`
	Category uint8    `json:"category"`
	Mnemonic string   `json:"mnemonic"`
	Units    string   `json:"units"`
	Value    any      `json:"value"`
}

// ParseComponents decodes the component blocks of an information record.
//
//	TYPE(1)|REPRC(1)|SIZE(1)|CATEGORY(1)|MNEMONIC(4)|UNITS(4)|VALUE(SIZE)
func ParseComponents(data []byte) ([]Component, error) {
	var out []Component
	pos := 0
	for pos < len(data) {
		if len(data)-pos < componentSize {
			return nil, errors.Wrapf(fault.ErrTruncatedInput,
				"component %d: header needs %d bytes, %d left", len(out)+1, componentSize, len(data)-pos)
		}
		c := Component{
			Type:     data[pos],
			Code:     ReprCode(data[pos+1]),
			Size:     data[pos+2],
			Category: data[pos+3],
			Mnemonic: field(data, pos+4, 4),
			Units:    field(data, pos+8, 4),
		}
		pos += componentSize

		if len(data)-pos < int(c.Size) {
			return nil, errors.Wrapf(fault.ErrTruncatedInput,
				"component %s: value needs %d bytes, %d left", c.Mnemonic, c.Size, len(data)-pos)
		}
		if c.Size > 0 {
			v, err := Decode(data[pos:pos+int(c.Size)], c.Code, int(c.Size))
			if err != nil {
				return nil, errors.Wrapf(errors.Mark(err, fault.ErrMalformedComponent), "component %s", c.Mnemonic)
			}
			c.Value = v
		}
		pos += int(c.Size)
		out = append(out, c)
	}
	return out, nil
}
