// Package columns tracks the ordered table layout: fixed identity columns,
// one column per ingested source and the optional computed columns.
package columns

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pable/go-playcall/internal/model"
)

var (
	ErrEmptyName       = errors.New("column name cannot be empty")
	ErrDuplicateColumn = errors.New("a column with that name already exists")
	ErrUnknownColumn   = errors.New("unknown column")
	ErrFixedColumn     = errors.New("this column is not editable")
)

// reservedKeys are player fields a source column may never be renamed to,
// whether or not the field's column is currently shown.
var reservedKeys = []string{
	model.KeySnakeRank, model.KeyName, model.KeyPosition, model.KeyTeam,
	model.KeyBye, model.KeyAITier, model.KeyFAABRec,
}

// Default computed-column labels.
const (
	LabelAITier  = "AI Tier"
	LabelFAABRec = "FAAB Rec. ($)"
)

// Registry is an ordered set of columns keyed by Column.Key. Not safe for
// concurrent use; the session serializes access.
type Registry struct {
	cols []model.Column
}

// New returns a registry holding the fixed identity columns.
func New() *Registry {
	r := &Registry{}
	r.Reset()
	return r
}

func defaults() []model.Column {
	return []model.Column{
		{Key: model.KeySnakeRank, Label: "Snake Rank", Sortable: true},
		{Key: model.KeyName, Label: "Player", Sortable: true},
		{Key: model.KeyPosition, Label: "Pos", Sortable: true},
		{Key: model.KeyTeam, Label: "Team", Sortable: true},
		{Key: model.KeyBye, Label: "Bye", Sortable: true},
	}
}

// Reset drops every source and computed column.
func (r *Registry) Reset() {
	r.cols = defaults()
}

// Columns returns a copy of the columns in display order.
func (r *Registry) Columns() []model.Column {
	out := make([]model.Column, len(r.cols))
	copy(out, r.cols)
	return out
}

// Len returns the number of columns.
func (r *Registry) Len() int { return len(r.cols) }

func (r *Registry) index(key string) int {
	for i, c := range r.cols {
		if c.Key == key {
			return i
		}
	}
	return -1
}

// Has reports whether a column with exactly key exists.
func (r *Registry) Has(key string) bool { return r.index(key) >= 0 }

// Label returns the label for key, or key itself when absent.
func (r *Registry) Label(key string) string {
	if i := r.index(key); i >= 0 {
		return r.cols[i].Label
	}
	return key
}

// AddSourceColumn appends a source column labelled key unless one exists.
// It reports whether a column was added.
func (r *Registry) AddSourceColumn(key string) bool {
	if r.Has(key) {
		return false
	}
	r.cols = append(r.cols, model.Column{Key: key, Label: key, Sortable: true})
	return true
}

// EnsureComputed places the computed column key at the end of the layout,
// adding it if absent.
func (r *Registry) EnsureComputed(key, label string) {
	if i := r.index(key); i >= 0 {
		r.cols = append(r.cols[:i], r.cols[i+1:]...)
	}
	r.cols = append(r.cols, model.Column{Key: key, Label: label, Sortable: true})
}

// NextSourceLabel is the label given to a source with no name of its own.
func (r *Registry) NextSourceLabel() string {
	return fmt.Sprintf("Source %d", len(r.cols))
}

// IsRankKey reports whether key is a source rank column rather than a player field.
func (r *Registry) IsRankKey(key string) bool {
	return !model.IsPlayerField(key)
}

// KeyForLabel maps an exported header label back to its column key. Fixed
// and computed columns carry constant labels; a source column's key is its
// label.
func KeyForLabel(label string) string {
	for _, c := range defaults() {
		if c.Label == label {
			return c.Key
		}
	}
	switch label {
	case LabelAITier:
		return model.KeyAITier
	case LabelFAABRec:
		return model.KeyFAABRec
	}
	return label
}

// IsReserved reports whether key case-insensitively names a player field or
// a fixed or computed column label, and so cannot be used as a source key.
// Exported headers are mapped back through KeyForLabel, so a source sharing
// one of those labels would not survive a CSV round trip.
func IsReserved(key string) bool {
	for _, k := range reservedKeys {
		if strings.EqualFold(k, key) {
			return true
		}
	}
	for _, c := range defaults() {
		if strings.EqualFold(c.Label, key) {
			return true
		}
	}
	return strings.EqualFold(LabelAITier, key) || strings.EqualFold(LabelFAABRec, key)
}

// Rename sets both key and label of source column oldKey to the trimmed
// newLabel and returns the new key. The registry is unchanged on error.
func (r *Registry) Rename(oldKey, newLabel string) (string, error) {
	newKey := strings.TrimSpace(newLabel)
	if newKey == "" {
		return "", ErrEmptyName
	}
	i := r.index(oldKey)
	if i < 0 {
		return "", fmt.Errorf("%w: %q", ErrUnknownColumn, oldKey)
	}
	if !r.IsRankKey(oldKey) {
		return "", fmt.Errorf("%w: %q", ErrFixedColumn, oldKey)
	}
	if IsReserved(newKey) {
		return "", fmt.Errorf("%w: %q", ErrDuplicateColumn, newKey)
	}
	for _, c := range r.cols {
		if c.Key != oldKey && strings.EqualFold(c.Key, newKey) {
			return "", fmt.Errorf("%w: %q", ErrDuplicateColumn, newKey)
		}
	}
	r.cols[i].Key = newKey
	r.cols[i].Label = newKey
	return newKey, nil
}
