// Package outline models the ordered section and lecture tree of a course and
// the units of work a recording run walks through.
package outline

import (
	"errors"
	"fmt"
	"strings"
)

// Discovery errors. Any of them aborts a recording before it starts.
var (
	ErrNoCourseContext = errors.New("no course context on page")
	ErrEmptyOutline    = errors.New("course outline has no lectures")
	ErrParseFailure    = errors.New("course outline could not be parsed")
)

// KeySeparator joins section and lecture titles in a unit key.
const KeySeparator = "::"

// Lecture is one playable item. ID is opaque: a page element reference for
// scraped outlines or the platform item id for API outlines.
type Lecture struct {
	Title string `json:"title"`
	ID    string `json:"id,omitempty"`
}

// Section groups lectures in traversal order.
type Section struct {
	Title    string    `json:"title"`
	Lectures []Lecture `json:"lectures"`
}

// Outline is the course tree in traversal order.
type Outline struct {
	Title    string    `json:"title,omitempty"`
	CourseID string    `json:"course_id,omitempty"`
	Sections []Section `json:"sections"`
}

// Discovery is the result of structure discovery: either an outline scraped
// from the page or a course id that the platform client can expand.
type Discovery struct {
	Outline  *Outline `json:"outline,omitempty"`
	CourseID string   `json:"course_id,omitempty"`
	// Title is the course title when the page exposes one.
	Title string `json:"title,omitempty"`
}

// Unit is one (section, lecture) pair to navigate to and capture.
type Unit struct {
	SectionIndex int     `json:"section_index"`
	LectureIndex int     `json:"lecture_index"`
	Section      string  `json:"section"`
	Lecture      Lecture `json:"lecture"`
}

// Key returns the idempotency key for the unit.
func (u Unit) Key() string {
	return Key(u.Section, u.Lecture.Title)
}

// Key builds the idempotency key for a section and lecture title pair.
func Key(section, lecture string) string {
	return section + KeySeparator + lecture
}

// Validate checks that the outline holds at least one lecture and that every
// title is usable as a key. Sections without lectures are allowed.
func (o *Outline) Validate() error {
	if o == nil {
		return ErrEmptyOutline
	}
	for si, section := range o.Sections {
		if strings.TrimSpace(section.Title) == "" {
			return fmt.Errorf("%w: section %d has no title", ErrParseFailure, si+1)
		}
		for li, lecture := range section.Lectures {
			if strings.TrimSpace(lecture.Title) == "" {
				return fmt.Errorf("%w: lecture %d of %q has no title", ErrParseFailure, li+1, section.Title)
			}
		}
	}
	if o.LectureCount() == 0 {
		return ErrEmptyOutline
	}
	return nil
}

// LectureCount returns the number of units in the outline.
func (o *Outline) LectureCount() int {
	if o == nil {
		return 0
	}
	total := 0
	for _, section := range o.Sections {
		total += len(section.Lectures)
	}
	return total
}

// Unit returns the unit at the cursor, or false when the indices are out of range.
func (o *Outline) Unit(sectionIndex, lectureIndex int) (Unit, bool) {
	if o == nil || sectionIndex < 0 || sectionIndex >= len(o.Sections) {
		return Unit{}, false
	}
	section := o.Sections[sectionIndex]
	if lectureIndex < 0 || lectureIndex >= len(section.Lectures) {
		return Unit{}, false
	}
	return Unit{
		SectionIndex: sectionIndex,
		LectureIndex: lectureIndex,
		Section:      section.Title,
		Lecture:      section.Lectures[lectureIndex],
	}, true
}

// Find locates the unit whose section and lecture titles match.
func (o *Outline) Find(section, lecture string) (Unit, bool) {
	if o == nil {
		return Unit{}, false
	}
	for si, s := range o.Sections {
		if s.Title != section {
			continue
		}
		for li, l := range s.Lectures {
			if l.Title == lecture {
				return o.Unit(si, li)
			}
		}
	}
	return Unit{}, false
}

// Units lists every unit in section-major, lecture-minor order.
func (o *Outline) Units() []Unit {
	if o == nil {
		return nil
	}
	units := make([]Unit, 0, o.LectureCount())
	for si, section := range o.Sections {
		for li := range section.Lectures {
			unit, _ := o.Unit(si, li)
			units = append(units, unit)
		}
	}
	return units
}

// Clone returns a deep copy.
func (o *Outline) Clone() *Outline {
	if o == nil {
		return nil
	}
	clone := &Outline{Title: o.Title, CourseID: o.CourseID, Sections: make([]Section, len(o.Sections))}
	for i, section := range o.Sections {
		clone.Sections[i] = Section{
			Title:    section.Title,
			Lectures: append([]Lecture(nil), section.Lectures...),
		}
	}
	return clone
}
