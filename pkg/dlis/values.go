package dlis

import (
	"fmt"
	"time"
)

// ObjectName identifies an object within a set type.
type ObjectName struct {
	Origin uint32 `json:"origin"`
	Copy   uint8  `json:"copy"`
	ID     string `json:"id"`
}

func (n ObjectName) String() string {
	return fmt.Sprintf("%s(%d,%d)", n.ID, n.Origin, n.Copy)
}

// ObjectRef is an OBJREF value: a set type and an object name.
type ObjectRef struct {
	Type string     `json:"type"`
	Name ObjectName `json:"name"`
}

// AttributeRef is an ATTREF value pointing at one attribute of an object.
type AttributeRef struct {
	Type  string     `json:"type"`
	Name  ObjectName `json:"name"`
	Label string     `json:"label"`
}

// Fingerprint is the pool key of an object.
type Fingerprint struct {
	Type string
	Name ObjectName
}

func (f Fingerprint) String() string {
	return fmt.Sprintf("T.%s-I.%s-O.%d-C.%d", f.Type, f.Name.ID, f.Name.Origin, f.Name.Copy)
}

// Validated1 is a value paired with a bound (FSING1, FDOUB1).
type Validated1[T float32 | float64] struct {
	V T `json:"v"`
	A T `json:"a"`
}

// Validated2 is a value with lower and upper bounds (FSING2, FDOUB2).
type Validated2[T float32 | float64] struct {
	V T `json:"v"`
	A T `json:"a"`
	B T `json:"b"`
}

// Time zone codes of a DTIME value
const (
	TimeZoneLocalStandard = 0
	TimeZoneLocalDaylight = 1
	TimeZoneUTC           = 2
)

// DateTime is a DTIME value.
type DateTime struct {
	Year        int `json:"year"`
	TimeZone    int `json:"tz"`
	Month       int `json:"month"`
	Day         int `json:"day"`
	Hour        int `json:"hour"`
	Minute      int `json:"minute"`
	Second      int `json:"second"`
	Millisecond int `json:"ms"`
}

// Time converts d to a time.Time. Local time zones have no offset
// information and are returned in UTC.
func (d DateTime) Time() time.Time {
	return time.Date(d.Year, time.Month(d.Month), d.Day, d.Hour, d.Minute, d.Second,
		d.Millisecond*int(time.Millisecond), time.UTC)
}

func (d DateTime) String() string {
	return d.Time().Format("2006-01-02 15:04:05.000")
}
