package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/google/uuid"
	"github.com/ib-77/chatflow/pkg/flow"
	"github.com/ib-77/chatflow/pkg/flow/bus"
)

const (
	TraceSource     = "/chatflow"
	traceTypePrefix = "chatflow."
	runIDExtension  = "runid"
)

// Tracer writes the lifecycle events of a bus as CloudEvents, one JSON
// document per line.
type Tracer struct {
	bus    *bus.Bus
	logger *slog.Logger

	mu   sync.Mutex
	w    io.Writer
	subs []bus.Subscription
}

// AttachTrace subscribes to the start and end topics of every stage.
func AttachTrace(b *bus.Bus, stages []string, w io.Writer) *Tracer {
	t := &Tracer{bus: b, w: w, logger: b.Logger().With("component", "trace")}

	for _, stage := range stages {
		for _, phase := range []bus.Phase{bus.PhaseStart, bus.PhaseEnd} {
			t.subs = append(t.subs, b.Subscribe(bus.Lifecycle(stage, phase), func(payload any) {
				t.write(stage, phase, payload)
			}))
		}
	}
	return t
}

// Detach removes the subscriptions.
func (t *Tracer) Detach() {
	t.mu.Lock()
	subs := t.subs
	t.subs = nil
	t.mu.Unlock()

	for _, s := range subs {
		t.bus.Unsubscribe(s)
	}
}

func (t *Tracer) write(stage string, phase bus.Phase, payload any) {
	event, err := LifecycleEvent(stage, phase, payload)
	if err != nil {
		t.logger.Warn("trace: cannot build event", "stage", stage, "phase", phase, "error", err)
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		t.logger.Warn("trace: cannot encode event", "stage", stage, "phase", phase, "error", err)
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if _, err := t.w.Write(append(data, '\n')); err != nil {
		t.logger.Warn("trace: write failed", "error", err)
	}
}

// LifecycleEvent converts a lifecycle payload into a CloudEvent of type
// "chatflow.<stage>.<phase>". The subject is the item id and the run id is
// carried in the "runid" extension.
func LifecycleEvent(stage string, phase bus.Phase, payload any) (cloudevents.Event, error) {
	var (
		id    int
		runID uuid.UUID
	)
	switch p := payload.(type) {
	case flow.StartPayload:
		id, runID = p.ID, p.RunID
	case flow.EndPayload:
		id, runID = p.ID, p.RunID
	default:
		return cloudevents.Event{}, fmt.Errorf("unexpected payload %T", payload)
	}

	e := cloudevents.NewEvent()
	e.SetID(uuid.NewString())
	e.SetSource(TraceSource)
	e.SetType(traceTypePrefix + stage + "." + string(phase))
	e.SetTime(time.Now().UTC())
	e.SetSubject(strconv.Itoa(id))
	e.SetExtension(runIDExtension, runID.String())
	if err := e.SetData(cloudevents.ApplicationJSON, payload); err != nil {
		return cloudevents.Event{}, fmt.Errorf("set data: %w", err)
	}
	if err := e.Validate(); err != nil {
		return cloudevents.Event{}, err
	}
	return e, nil
}
