package cli

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/ib-77/chatflow/pkg/chat"
	"github.com/ib-77/chatflow/pkg/flow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newChatEngine(t *testing.T) *flow.Engine {
	t.Helper()
	e, err := chat.NewEngine()
	require.NoError(t, err)
	return e
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "chatflow.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
format: json
no_color: true
log_level: debug
bus:
  retention_bound: 50
  wait_timeout: 250ms
`), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, FormatJSON, cfg.Format)
	assert.True(t, cfg.NoColor)
	assert.Equal(t, 50, cfg.Bus.RetentionBound)
	assert.Equal(t, 250*time.Millisecond, cfg.Bus.WaitTimeout)

	bc := cfg.BusConfig(nil)
	assert.Equal(t, 50, bc.RetentionBound)
}

func TestLoadConfig_Missing(t *testing.T) {
	t.Parallel()

	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")
}

func TestApplyEnv(t *testing.T) {
	t.Parallel()

	env := map[string]string{
		"CHATFLOW_FORMAT":              "msgpack",
		"CHATFLOW_NO_COLOR":            "true",
		"CHATFLOW_LOG_LEVEL":           "error",
		"CHATFLOW_BUS_RETENTION_BOUND": "7",
		"CHATFLOW_BUS_WAIT_TIMEOUT":    "3s",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := DefaultConfig()
	cfg.Pipeline = "kept.yaml"
	require.NoError(t, cfg.ApplyEnv(lookup))

	assert.Equal(t, FormatMsgpack, cfg.Format)
	assert.True(t, cfg.NoColor)
	assert.Equal(t, "error", cfg.LogLevel)
	assert.Equal(t, "kept.yaml", cfg.Pipeline)
	assert.Equal(t, 7, cfg.Bus.RetentionBound)
	assert.Equal(t, 3*time.Second, cfg.Bus.WaitTimeout)
}

func TestApplyEnv_Invalid(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	err := cfg.ApplyEnv(func(k string) (string, bool) {
		if k == "CHATFLOW_BUS_RETENTION_BOUND" {
			return "many", true
		}
		return "", false
	})
	assert.ErrorContains(t, err, "CHATFLOW_BUS_RETENTION_BOUND")
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"bad format", func(c *Config) { c.Format = "xml" }, false},
		{"bad level", func(c *Config) { c.LogLevel = "loud" }, false},
		{"negative bound", func(c *Config) { c.Bus.RetentionBound = -1 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if tt.ok {
				assert.NoError(t, cfg.Validate())
			} else {
				assert.Error(t, cfg.Validate())
			}
		})
	}
}

func TestConfig_FormatFor(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	assert.Equal(t, FormatJSON, cfg.FormatFor(true))
	assert.Equal(t, FormatText, cfg.FormatFor(false))

	cfg.Format = FormatMsgpack
	assert.Equal(t, FormatMsgpack, cfg.FormatFor(false))
}

func TestTextEncoder(t *testing.T) {
	t.Parallel()

	r := Result{Message: "Hello", Category: "greeting", Response: "Hi!"}

	var plain bytes.Buffer
	enc, err := NewEncoder(FormatText, &plain, false)
	require.NoError(t, err)
	require.NoError(t, enc.Encode(r))
	assert.Equal(t, "Message: Hello\n[GREETING] Hi!\n\n", plain.String())

	var colored bytes.Buffer
	enc, err = NewEncoder(FormatText, &colored, true)
	require.NoError(t, err)
	require.NoError(t, enc.Encode(r))
	assert.Contains(t, colored.String(), ColorFor(chat.Greeting))
	assert.Contains(t, colored.String(), "[GREETING]")
}

func TestColorFor_Unknown(t *testing.T) {
	t.Parallel()

	assert.Equal(t, ColorFor(chat.General), ColorFor("mystery"))
}

func TestNewEncoder_Unsupported(t *testing.T) {
	t.Parallel()

	_, err := NewEncoder("xml", io.Discard, false)
	assert.Error(t, err)
}

func TestMsgpackEncoder_Frames(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	enc, err := NewEncoder(FormatMsgpack, &buf, false)
	require.NoError(t, err)

	in := []Result{
		{ID: 0, Message: "Hello", Category: "greeting", Response: "a"},
		{ID: 1, Message: "Bye", Category: "farewell", Response: "b"},
	}
	for _, r := range in {
		require.NoError(t, enc.Encode(r))
	}

	var out []Result
	for {
		r, err := ReadFrame(&buf)
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		out = append(out, r)
	}
	assert.Equal(t, in, out)
}

func TestResultOf_Defaults(t *testing.T) {
	t.Parallel()

	r := ResultOf(flow.NewItem(4, "raw"))
	assert.Equal(t, 4, r.ID)
	assert.Equal(t, "general", r.Category)
	assert.Equal(t, "No response", r.Response)
}

func TestRunner_Demo(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	enc, err := NewEncoder(FormatText, &out, false)
	require.NoError(t, err)

	r := &Runner{Engine: newChatEngine(t), Encoder: enc, Out: &out}
	require.NoError(t, r.Demo(testContext(t), chat.DemoMessages))

	s := out.String()
	assert.Contains(t, s, "Demo Mode")
	assert.Contains(t, s, "Processed 50 messages")
	assert.Equal(t, 50, strings.Count(s, "Message: "))
	assert.Contains(t, s, "[GREETING] Hello! Thanks for reaching out.")
}

func TestRunner_Pipe(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	enc, err := NewEncoder(FormatJSON, &out, false)
	require.NoError(t, err)

	r := &Runner{Engine: newChatEngine(t), Encoder: enc, Out: &out}
	in := strings.NewReader("Hello\n\n   \nWhat is your name?\nGoodbye\n")
	require.NoError(t, r.Pipe(testContext(t), in))

	var got []Result
	sc := bufio.NewScanner(&out)
	for sc.Scan() {
		var res Result
		require.NoError(t, json.Unmarshal(sc.Bytes(), &res))
		got = append(got, res)
	}

	require.Len(t, got, 3)
	assert.Equal(t, []string{"greeting", "question", "farewell"},
		[]string{got[0].Category, got[1].Category, got[2].Category})
	for i, res := range got {
		assert.Equal(t, i, res.ID)
	}
}

func TestRunner_Interactive(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	enc, err := NewEncoder(FormatText, &out, false)
	require.NoError(t, err)

	r := &Runner{Engine: newChatEngine(t), Encoder: enc, Out: &out}
	require.NoError(t, r.Interactive(testContext(t), strings.NewReader("Thanks!\n\nsorry\n")))

	s := out.String()
	assert.Contains(t, s, "[GRATITUDE] You're welcome! Happy to help.")
	assert.Contains(t, s, "[APOLOGY]")
	assert.Equal(t, 3, strings.Count(s, "> "))
	assert.True(t, strings.HasSuffix(s, "Goodbye!\n"))
}

func TestTracer(t *testing.T) {
	t.Parallel()

	e := newChatEngine(t)

	var buf bytes.Buffer
	tr := AttachTrace(e.Bus(), e.Stages(), &buf)

	_, err := e.ProcessBatch(testContext(t), []string{"Hello"})
	require.NoError(t, err)
	require.NoError(t, e.Bus().Sync(testContext(t)))
	tr.Detach()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)

	var types []string
	for _, line := range lines {
		ev := cloudevents.NewEvent()
		require.NoError(t, json.Unmarshal([]byte(line), &ev))
		assert.Equal(t, TraceSource, ev.Source())
		assert.Equal(t, "0", ev.Subject())
		assert.NotEmpty(t, ev.Extensions()["runid"])
		types = append(types, ev.Type())
	}
	assert.Equal(t, []string{
		"chatflow.classifier.start",
		"chatflow.classifier.end",
		"chatflow.responder.start",
		"chatflow.responder.end",
	}, types)

	assert.Equal(t, 0, e.Bus().SubscriberCount("classifier:start"))
}

func TestLifecycleEvent_UnexpectedPayload(t *testing.T) {
	t.Parallel()

	_, err := LifecycleEvent("x", "start", "not a payload")
	assert.Error(t, err)
}
