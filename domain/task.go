package domain

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

const (
	// TitleMaxLen and DescriptionMaxLen are measured in characters, not bytes.
	TitleMaxLen       = 200
	DescriptionMaxLen = 1000
)

// ErrTaskNotFound is returned by the repository when an id does not resolve
// to a stored task. Only the HTTP layer turns it into a user-facing error.
var ErrTaskNotFound = errors.New("task not found")

// Task is the single entity this service manages. Description is a pointer so
// that an absent description stays distinct from an empty one and serializes
// as JSON null.
type Task struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Description *string `json:"description"`
	IsDone      bool    `json:"is_done"`
}

// TaskPatch is a tri-state partial update: nil fields are left unchanged.
type TaskPatch struct {
	Title       *string
	Description *string
	IsDone      *bool
}

// IsEmpty reports whether the patch carries no fields at all.
func (p TaskPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.IsDone == nil
}

// Validate checks whichever fields the patch carries against the same rules
// the create path enforces.
func (p TaskPatch) Validate() error {
	if p.Title != nil {
		if err := ValidateTitle(*p.Title); err != nil {
			return err
		}
	}
	return ValidateDescription(p.Description)
}

// ValidateTitle enforces the title contract: non-empty, at most TitleMaxLen
// characters.
func ValidateTitle(title string) error {
	if title == "" {
		return errors.New("title must not be empty")
	}
	if utf8.RuneCountInString(title) > TitleMaxLen {
		return fmt.Errorf("title must be at most %d characters", TitleMaxLen)
	}
	return nil
}

// ValidateDescription enforces the description contract. A nil description is
// valid; it means the field is absent.
func ValidateDescription(description *string) error {
	if description == nil {
		return nil
	}
	if utf8.RuneCountInString(*description) > DescriptionMaxLen {
		return fmt.Errorf("description must be at most %d characters", DescriptionMaxLen)
	}
	return nil
}
