package lis

import "fmt"

// RecordType is the type byte of a logical record header.
type RecordType uint8

// Logical record types
const (
	NormalData         RecordType = 0
	AlternateData      RecordType = 1
	JobIdentification  RecordType = 32
	WellsiteData       RecordType = 34
	ToolStringInfo     RecordType = 39
	EncodedTableDump   RecordType = 42
	TableDump          RecordType = 47
	DataFormatSpec     RecordType = 64
	DataDescriptor     RecordType = 65
	SoftwareBoot       RecordType = 85
	BootstrapLoader    RecordType = 86
	KernelLoader       RecordType = 87
	ProgramFileHeader  RecordType = 95
	ProgramOverlay     RecordType = 96
	ProgramOverlayLoad RecordType = 97
	FileHeader         RecordType = 128
	FileTrailer        RecordType = 129
	TapeHeader         RecordType = 130
	TapeTrailer        RecordType = 131
	ReelHeader         RecordType = 132
	ReelTrailer        RecordType = 133
	LogicalEOF         RecordType = 134
	LogicalBOT         RecordType = 135
	LogicalEOT         RecordType = 136
	LogicalEOM         RecordType = 137
	OperatorCommand    RecordType = 224
	OperatorResponse   RecordType = 227
	SystemOutput       RecordType = 232
	FlicComment        RecordType = 234
	Unknown            RecordType = 0xFF
)

var typeNames = map[RecordType]string{
	NormalData:         "normal-data",
	AlternateData:      "alternate-data",
	JobIdentification:  "job-identification",
	WellsiteData:       "wellsite-data",
	ToolStringInfo:     "tool-string-info",
	EncodedTableDump:   "encoded-table-dump",
	TableDump:          "table-dump",
	DataFormatSpec:     "data-format-spec",
	DataDescriptor:     "data-descriptor",
	SoftwareBoot:       "tu10-software-boot",
	BootstrapLoader:    "bootstrap-loader",
	KernelLoader:       "cp-kernel-loader",
	ProgramFileHeader:  "program-file-header",
	ProgramOverlay:     "program-overlay-header",
	ProgramOverlayLoad: "program-overlay-load",
	FileHeader:         "file-header",
	FileTrailer:        "file-trailer",
	TapeHeader:         "tape-header",
	TapeTrailer:        "tape-trailer",
	ReelHeader:         "reel-header",
	ReelTrailer:        "reel-trailer",
	LogicalEOF:         "logical-eof",
	LogicalBOT:         "logical-bot",
	LogicalEOT:         "logical-eot",
	LogicalEOM:         "logical-eom",
	OperatorCommand:    "operator-command-inputs",
	OperatorResponse:   "operator-response-inputs",
	SystemOutput:       "system-outputs",
	FlicComment:        "flic-comment",
}

// Classify maps a type byte to its RecordType, Unknown when undefined.
func Classify(code uint8) RecordType {
	t := RecordType(code)
	if _, ok := typeNames[t]; ok {
		return t
	}
	return Unknown
}

func (t RecordType) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	if t == Unknown {
		return "unknown"
	}
	return fmt.Sprintf("RecordType(%d)", uint8(t))
}

// Implicit reports whether records of type t hold frame data.
func (t RecordType) Implicit() bool {
	return t == NormalData || t == AlternateData
}

// tapeLevel reports whether t belongs to the reel or tape rather than a
// logical file.
func (t RecordType) tapeLevel() bool {
	return t >= TapeHeader && t <= ReelTrailer
}
