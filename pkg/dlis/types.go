package dlis

import "fmt"

// Tag classifies a logical record by its segment header type code and
// the explicit bit.
type Tag int

// Explicitly formatted record types
const (
	TagUnknown Tag = iota
	TagFileHeader
	TagOrigin
	TagAxis
	TagChannel
	TagFrame
	TagStatic
	TagScript
	TagUpdate
	TagUnformattedDataIdentifier
	TagLongName
	TagSpecification
	TagDictionary

	// Indirectly formatted record types
	TagFrameData
	TagNoFormat
	TagEndOfData
)

var explicitTags = map[int]Tag{
	0:  TagFileHeader,
	1:  TagOrigin,
	2:  TagAxis,
	3:  TagChannel,
	4:  TagFrame,
	5:  TagStatic,
	6:  TagScript,
	7:  TagUpdate,
	8:  TagUnformattedDataIdentifier,
	9:  TagLongName,
	10: TagSpecification,
	11: TagDictionary,
}

var implicitTags = map[int]Tag{
	0:   TagFrameData,
	1:   TagNoFormat,
	127: TagEndOfData,
}

var tagNames = map[Tag]string{
	TagUnknown:                   "UNKNOWN",
	TagFileHeader:                "FILE-HEADER",
	TagOrigin:                    "ORIGIN",
	TagAxis:                      "AXIS",
	TagChannel:                   "CHANNEL",
	TagFrame:                     "FRAME",
	TagStatic:                    "STATIC",
	TagScript:                    "SCRIPT",
	TagUpdate:                    "UPDATE",
	TagUnformattedDataIdentifier: "UDI",
	TagLongName:                  "LNAME",
	TagSpecification:             "SPEC",
	TagDictionary:                "DICT",
	TagFrameData:                 "FDATA",
	TagNoFormat:                  "NOFORM",
	TagEndOfData:                 "EOD",
}

// Classify maps a record type code to its tag. Codes outside the
// closed set map to TagUnknown.
func Classify(explicit bool, code int) Tag {
	table := implicitTags
	if explicit {
		table = explicitTags
	}
	if tag, ok := table[code]; ok {
		return tag
	}
	return TagUnknown
}

func (t Tag) String() string {
	if name, ok := tagNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Tag(%d)", int(t))
}

// Explicit reports whether the tag names an explicitly formatted record.
func (t Tag) Explicit() bool {
	return t >= TagFileHeader && t <= TagDictionary
}
