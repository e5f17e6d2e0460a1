package flow

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestItem_WithDoesNotTouchReceiver(t *testing.T) {
	t.Parallel()

	base := NewItem(3, "hello")
	next := base.With("classification", "greeting")

	_, ok := base.Get("classification")
	assert.False(t, ok)
	assert.Equal(t, "greeting", next.String("classification"))
	assert.Equal(t, 3, next.ID())
	assert.Equal(t, "hello", next.Text())

	other := next.With("classification", "farewell")
	assert.Equal(t, "greeting", next.String("classification"))
	assert.Equal(t, "farewell", other.String("classification"))
}

func TestItem_WithText(t *testing.T) {
	t.Parallel()

	a := NewItem(0, "x").With("k", 1)
	b := a.WithText("y")

	assert.Equal(t, "x", a.Text())
	assert.Equal(t, "y", b.Text())
	v, _ := b.Get("k")
	assert.Equal(t, 1, v)
}

func TestItem_TypedGetters(t *testing.T) {
	t.Parallel()

	now := time.Now()
	it := NewItem(0, "").With("at", now).With("n", 5)

	assert.Equal(t, now, it.Time("at"))
	assert.True(t, it.Time("n").IsZero())
	assert.Equal(t, "", it.String("n"))
	assert.Equal(t, "", it.String("missing"))
}

func TestItem_MapKeepsIdentity(t *testing.T) {
	t.Parallel()

	it := NewItem(7, "text").With(FieldID, 99).With(FieldText, "spoof").With("extra", true)
	m := it.Map()

	assert.Equal(t, 7, m[FieldID])
	assert.Equal(t, "text", m[FieldText])
	assert.Equal(t, true, m["extra"])

	fields := it.Fields()
	fields["extra"] = false
	v, _ := it.Get("extra")
	assert.Equal(t, true, v, "Fields returns a copy")
}

func TestItem_MarshalJSON(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(NewItem(1, "hi").With("classification", "greeting"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":1,"text":"hi","classification":"greeting"}`, string(data))
}

func TestStageFailure_Matching(t *testing.T) {
	t.Parallel()

	cause := errors.New("bad input")
	var err error = &StageFailure{Stage: "parse", ItemID: 2, Err: cause}

	assert.ErrorIs(t, err, ErrStageFailure)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), `"parse"`)
	assert.Contains(t, err.Error(), "item 2")

	var sf *StageFailure
	require.ErrorAs(t, err, &sf)
	assert.Equal(t, "parse", sf.Stage)
}
