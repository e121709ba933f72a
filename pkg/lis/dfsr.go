package lis

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/ssargent/welllog/pkg/fault"
)

// Entry block types of a data format specification
const (
	EntryTerminator       = 0
	EntryDataRecordType   = 1
	EntrySpecBlockType    = 2
	EntryFrameSize        = 3
	EntryUpDown           = 4
	EntryDepthScaleUnits  = 5
	EntryReferencePoint   = 6
	EntryReferenceUnits   = 7
	EntrySpacing          = 8
	EntrySpacingUnits     = 9
	EntryMaxFrames        = 11
	EntryAbsentValue      = 12
	EntryDepthMode        = 13
	EntryDepthUnits       = 14
	EntryDepthReprc       = 15
	EntrySpecBlockSubtype = 16
)

const (
	entryHeaderSize = 3
	specBlockSize   = 40
)

// EntryBlock is one {type, size, reprc, value} block.
type EntryBlock struct {
	Type  uint8    `json:"type"`
	Size  uint8    `json:"size"`
	Code  ReprCode `json:"reprc"`
	Value any      `json:"value"`
}

// SpecBlock describes one channel of a frame.
type SpecBlock struct {
	Mnemonic     string   `json:"mnemonic"`
	ServiceID    string   `json:"service_id"`
	ServiceOrder string   `json:"service_order"`
	Units        string   `json:"units"`
	APICodes     [4]uint8 `json:"api_codes"`
	FileNumber   int16    `json:"file_number"`
	Size         int      `json:"size"` // bytes per frame
	ProcessLevel uint8    `json:"process_level"`
	Samples      int      `json:"samples"`
	Code         ReprCode `json:"reprc"`
	ProcessFlags [5]byte  `json:"process_indicators"`
}

// DFSR is a decoded data format specification record.
type DFSR struct {
	Entries []EntryBlock
	Specs   []SpecBlock

	RecordType  RecordType
	Subtype     int
	FrameSize   int
	Direction   int
	Spacing     float64
	HasSpacing  bool
	DepthMode   int
	DepthCode   ReprCode
	DepthUnits  string
	AbsentValue float64
}

// ParseDFSR decodes the payload of a data format specification record.
func ParseDFSR(data []byte) (*DFSR, error) {
	d := &DFSR{
		RecordType:  NormalData,
		Direction:   1,
		DepthCode:   I32,
		DepthUnits:  ".1IN",
		AbsentValue: -999.25,
	}

	pos := 0
	for {
		if len(data)-pos < entryHeaderSize {
			return nil, errors.Wrapf(fault.ErrTruncatedInput,
				"entry block at %d: header needs %d bytes, %d left", pos, entryHeaderSize, len(data)-pos)
		}
		e := EntryBlock{Type: data[pos], Size: data[pos+1], Code: ReprCode(data[pos+2])}
		pos += entryHeaderSize
		if len(data)-pos < int(e.Size) {
			return nil, errors.Wrapf(fault.ErrTruncatedInput,
				"entry block %d: value needs %d bytes, %d left", e.Type, e.Size, len(data)-pos)
		}

		if e.Size > 0 {
			v, err := Decode(data[pos:pos+int(e.Size)], e.Code, int(e.Size))
			if err != nil {
				return nil, errors.Wrapf(err, "entry block %d", e.Type)
			}
			e.Value = v
		}
		pos += int(e.Size)
		d.Entries = append(d.Entries, e)

		if e.Type == EntryTerminator {
			break
		}
		d.apply(e)
	}

	for pos < len(data) {
		if len(data)-pos < specBlockSize {
			return nil, errors.Wrapf(fault.ErrTruncatedInput,
				"spec block %d: needs %d bytes, %d left", len(d.Specs)+1, specBlockSize, len(data)-pos)
		}
		spec, err := parseSpecBlock(data[pos : pos+specBlockSize])
		if err != nil {
			return nil, errors.Wrapf(err, "spec block %d", len(d.Specs)+1)
		}
		d.Specs = append(d.Specs, spec)
		pos += specBlockSize
	}
	return d, nil
}

func (d *DFSR) apply(e EntryBlock) {
	i, isInt := asInt(e.Value)
	f, isFloat := asFloat(e.Value)
	s, isString := e.Value.(string)

	switch e.Type {
	case EntryDataRecordType:
		if isInt {
			d.RecordType = RecordType(i)
		}
	case EntrySpecBlockSubtype:
		if isInt {
			d.Subtype = i
		}
	case EntryFrameSize:
		if isInt {
			d.FrameSize = i
		}
	case EntryUpDown:
		if isInt {
			d.Direction = i
		}
	case EntrySpacing:
		if isFloat {
			d.Spacing, d.HasSpacing = f, true
		}
	case EntryDepthMode:
		if isInt {
			d.DepthMode = i
		}
	case EntryDepthReprc:
		if isInt {
			d.DepthCode = ReprCode(i)
		}
	case EntryDepthUnits:
		if isString {
			d.DepthUnits = strings.TrimSpace(s)
		}
	case EntryAbsentValue:
		if isFloat {
			d.AbsentValue = f
		}
	}
}

// Spec block layout, subtype 0 and 1
//
//	MNEMONIC(4)|SERVICE ID(6)|SERVICE ORDER(8)|UNITS(4)|API(4)|FILE NR(2)|
//	SIZE(2)|SPARE(2)|PROCESS LEVEL(1)|SAMPLES(1)|REPRC(1)|INDICATORS(5)
func parseSpecBlock(b []byte) (SpecBlock, error) {
	var s SpecBlock
	s.Mnemonic = strings.TrimRight(string(b[0:4]), " ")
	s.ServiceID = strings.TrimRight(string(b[4:10]), " ")
	s.ServiceOrder = strings.TrimRight(string(b[10:18]), " ")
	s.Units = strings.TrimRight(string(b[18:22]), " ")
	copy(s.APICodes[:], b[22:26])
	s.FileNumber = int16(uint16(b[26])<<8 | uint16(b[27]))
	s.Size = int(uint16(b[28])<<8 | uint16(b[29]))
	s.ProcessLevel = b[32]
	s.Samples = int(b[33])
	s.Code = ReprCode(b[34])
	copy(s.ProcessFlags[:], b[35:40])

	if !s.Code.Valid() {
		return s, errors.Wrapf(fault.ErrUnsupportedReprCode,
			"%s has representation code %d", s.Mnemonic, uint8(s.Code))
	}
	return s, nil
}
