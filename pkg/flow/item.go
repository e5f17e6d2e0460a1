package flow

import (
	"encoding/json"
	"maps"
	"time"
)

const (
	FieldID   = "id"
	FieldText = "text"
)

// Item is one unit of work. Its id is fixed at ingestion; stages derive new
// items from it with With and WithText, which never touch the receiver.
type Item struct {
	id     int
	text   string
	fields map[string]any
}

// NewItem creates an item with the given id and payload text.
func NewItem(id int, text string) Item {
	return Item{id: id, text: text}
}

func (it Item) ID() int {
	return it.id
}

func (it Item) Text() string {
	return it.text
}

// With returns a copy of the item with key set to value.
func (it Item) With(key string, value any) Item {
	fields := make(map[string]any, len(it.fields)+1)
	maps.Copy(fields, it.fields)
	fields[key] = value
	return Item{id: it.id, text: it.text, fields: fields}
}

// WithText returns a copy of the item with a new payload text.
func (it Item) WithText(text string) Item {
	return Item{id: it.id, text: text, fields: it.fields}
}

func (it Item) Get(key string) (any, bool) {
	v, ok := it.fields[key]
	return v, ok
}

// String returns the field as a string, or "" when it is missing or not a string.
func (it Item) String(key string) string {
	s, _ := it.fields[key].(string)
	return s
}

// Time returns the field as a time.Time, or the zero time.
func (it Item) Time(key string) time.Time {
	t, _ := it.fields[key].(time.Time)
	return t
}

// Fields returns a copy of the stage-added fields.
func (it Item) Fields() map[string]any {
	return maps.Clone(it.fields)
}

// Map flattens the item into one map. The id and text keys always reflect
// ID and Text.
func (it Item) Map() map[string]any {
	m := make(map[string]any, len(it.fields)+2)
	maps.Copy(m, it.fields)
	m[FieldID] = it.id
	m[FieldText] = it.text
	return m
}

func (it Item) MarshalJSON() ([]byte, error) {
	return json.Marshal(it.Map())
}
