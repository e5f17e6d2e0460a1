package schema

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/ib-77/chatflow/pkg/chat"
	"github.com/ib-77/chatflow/pkg/flow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_YAML(t *testing.T) {
	t.Parallel()

	s, err := Load(filepath.Join("testdata", "chat.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "1", s.Version)
	assert.Equal(t, 200, s.Bus.RetentionBound)
	require.Len(t, s.Stages, 3)
	assert.Equal(t, "reply", s.Stages[2].StageName())
	assert.Equal(t, "trim", s.Stages[0].StageName())

	cfg, err := s.BusConfig()
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, cfg.WaitTimeout)
}

func TestLoad_JSON(t *testing.T) {
	t.Parallel()

	s, err := Load(filepath.Join("testdata", "shout.json"))
	require.NoError(t, err)
	require.Len(t, s.Stages, 1)
	assert.Equal(t, "upper", s.Stages[0].Ref)
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join("testdata", "missing.yaml"))
	assert.Error(t, err)

	_, err = Load("pipeline.toml")
	assert.Error(t, err)
}

func TestParse_Invalid(t *testing.T) {
	t.Parallel()

	_, err := Parse([]byte("stages: [unclosed"))
	assert.ErrorContains(t, err, "failed to parse YAML")
}

func TestValidate_ReportsAllProblems(t *testing.T) {
	t.Parallel()

	s := Schema{
		Bus: Bus{RetentionBound: -1, WaitTimeout: "soon"},
		Stages: []Stage{
			{Ref: "classifier"},
			{Ref: "nope"},
			{Ref: ""},
			{Name: "classifier", Ref: "upper"},
		},
	}

	err := Validate(s, DefaultRegistry())
	require.Error(t, err)

	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs))
	assert.Len(t, verrs, 5)
	assert.Contains(t, err.Error(), "5 validation errors")
	assert.Contains(t, err.Error(), "stages[1].ref: unknown stage ref 'nope'")
	assert.Contains(t, err.Error(), "stages[3].name: duplicate stage name 'classifier'")
}

func TestValidate_Empty(t *testing.T) {
	t.Parallel()

	err := Validate(Schema{}, nil)
	require.Error(t, err)
	assert.Equal(t, "stages: at least one stage is required", err.Error())
}

func TestBuild_ChatPipeline(t *testing.T) {
	t.Parallel()

	e, err := LoadAndBuild(filepath.Join("testdata", "chat.yaml"), DefaultRegistry())
	require.NoError(t, err)
	assert.Equal(t, []string{"trim", "classifier", "reply"}, e.Stages())

	items, err := e.ProcessBatch(context.Background(), []string{"  Hello  ", "Bye"})
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "Hello", items[0].Text())
	assert.Equal(t, chat.Greeting, chat.ClassificationOf(items[0]))
	assert.Equal(t, chat.Farewell, chat.ClassificationOf(items[1]))
	assert.NotEmpty(t, chat.ResponseOf(items[1]))

	payload, err := func() (any, error) {
		w := e.Bus().WaitFor("reply:end", time.Second)
		if _, err := e.ProcessBatch(context.Background(), []string{"again"}); err != nil {
			return nil, err
		}
		return w.Wait(context.Background())
	}()
	require.NoError(t, err)
	assert.IsType(t, flow.EndPayload{}, payload)
}

func TestBuild_InvalidSchema(t *testing.T) {
	t.Parallel()

	e, err := Build(Schema{Stages: []Stage{{Ref: "missing"}}}, nil)
	assert.Nil(t, e)

	var verrs ValidationErrors
	assert.ErrorAs(t, err, &verrs)
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	r := DefaultRegistry()
	assert.Equal(t, []string{"classifier", "responder", "trim", "upper"}, r.Refs())

	r.Register("reverse", func(name string) flow.StageFactory {
		return flow.StageFunc(name, func(_ context.Context, it flow.Item) (flow.Item, error) {
			runes := []rune(it.Text())
			for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
				runes[i], runes[j] = runes[j], runes[i]
			}
			return it.WithText(string(runes)), nil
		})
	})

	e, err := Build(Schema{Stages: []Stage{{Ref: "reverse"}, {Ref: "upper"}}}, r)
	require.NoError(t, err)

	items, err := e.ProcessBatch(context.Background(), []string{"abc"})
	require.NoError(t, err)
	assert.Equal(t, "CBA", items[0].Text())

	assert.Panics(t, func() { r.Register("", nil) })
}
