// Package gazetteer holds the administrative district records searched by placeserve.
//
// A Gazetteer is built once from a static dataset and never changes afterwards,
// so it can be shared by any number of readers without locking.
package gazetteer

import (
	"errors"
	"fmt"
)

// Level is the administrative tier of a District.
type Level string

const (
	LevelSido         Level = "sido"         // province / metropolitan city
	LevelSigungu      Level = "sigungu"      // city / county / district
	LevelEupmyeondong Level = "eupmyeondong" // town / neighborhood
)

// Levels lists every level from the widest to the narrowest.
var Levels = []Level{LevelSido, LevelSigungu, LevelEupmyeondong}

var levelLabels = map[Level]string{
	LevelSido:         "시/도",
	LevelSigungu:      "시/군/구",
	LevelEupmyeondong: "읍/면/동",
}

// ParseLevel converts a raw level string.
func ParseLevel(s string) (Level, error) {
	l := Level(s)
	if !l.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidLevel, s)
	}
	return l, nil
}

// Valid reports whether l is one of the three known levels.
func (l Level) Valid() bool {
	_, ok := levelLabels[l]
	return ok
}

// Depth is 1 for sido, 2 for sigungu, 3 for eupmyeondong and 0 otherwise.
func (l Level) Depth() int {
	for i, known := range Levels {
		if l == known {
			return i + 1
		}
	}
	return 0
}

// Label returns the Korean display label of the level.
func (l Level) Label() string {
	if label, ok := levelLabels[l]; ok {
		return label
	}
	return string(l)
}

func (l Level) String() string { return string(l) }

// District is a single administrative unit.
// Ancestry is recorded as plain names, never as references to other rows.
type District struct {
	ID           string `json:"id" yaml:"id" msgpack:"id" db:"id"`
	Name         string `json:"name" yaml:"name" msgpack:"name" db:"name"`
	FullName     string `json:"fullName" yaml:"fullName" msgpack:"fullName" db:"full_name"`
	Level        Level  `json:"level" yaml:"level" msgpack:"level" db:"level"`
	Sido         string `json:"sido" yaml:"sido" msgpack:"sido" db:"sido"`
	Sigungu      string `json:"sigungu,omitempty" yaml:"sigungu,omitempty" msgpack:"sigungu,omitempty" db:"sigungu"`
	Eupmyeondong string `json:"eupmyeondong,omitempty" yaml:"eupmyeondong,omitempty" msgpack:"eupmyeondong,omitempty" db:"eupmyeondong"`
}

var (
	ErrEmptyID       = errors.New("district id is empty")
	ErrDuplicateID   = errors.New("duplicate district id")
	ErrEmptyFullName = errors.New("district full name is empty")
	ErrInvalidLevel  = errors.New("invalid district level")
	ErrAncestry      = errors.New("district ancestry does not match its level")
	ErrUnknownFormat = errors.New("unknown dataset format")
)

// ValidationError reports the dataset row that broke an invariant.
type ValidationError struct {
	Index int
	ID    string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("district #%d (%q): %v", e.Index, e.ID, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Validate checks the per-row invariants. Uniqueness of IDs is checked by New.
func (d *District) Validate() error {
	if d.ID == "" {
		return ErrEmptyID
	}
	if d.FullName == "" {
		return ErrEmptyFullName
	}
	if !d.Level.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidLevel, d.Level)
	}

	switch d.Level {
	case LevelSido:
		if d.Sigungu != "" || d.Eupmyeondong != "" {
			return fmt.Errorf("%w: sido row carries sigungu/eupmyeondong", ErrAncestry)
		}
	case LevelSigungu:
		if d.Sido == "" || d.Sigungu == "" {
			return fmt.Errorf("%w: sigungu row needs sido and sigungu", ErrAncestry)
		}
		if d.Eupmyeondong != "" {
			return fmt.Errorf("%w: sigungu row carries eupmyeondong", ErrAncestry)
		}
	case LevelEupmyeondong:
		if d.Sido == "" || d.Sigungu == "" || d.Eupmyeondong == "" {
			return fmt.Errorf("%w: eupmyeondong row needs every ancestor", ErrAncestry)
		}
	}
	return nil
}
