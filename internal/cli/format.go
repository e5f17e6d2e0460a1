package cli

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/ib-77/chatflow/pkg/chat"
	"github.com/ib-77/chatflow/pkg/flow"
	"github.com/vmihailenco/msgpack/v5"
)

// ANSI escapes
const (
	reset = "\x1b[0m"
	bold  = "\x1b[1m"
	dim   = "\x1b[2m"
)

var categoryColors = map[chat.Category]string{
	chat.Greeting:  "\x1b[32m", // green
	chat.Question:  "\x1b[36m", // cyan
	chat.Command:   "\x1b[33m", // yellow
	chat.Farewell:  "\x1b[35m", // magenta
	chat.Gratitude: "\x1b[34m", // blue
	chat.Apology:   "\x1b[91m", // light red
	chat.Agreement: "\x1b[92m", // light green
	chat.Negation:  "\x1b[31m", // red
	chat.General:   "\x1b[37m", // white
}

// ColorFor returns the ANSI color of category.
func ColorFor(category chat.Category) string {
	if c, ok := categoryColors[category]; ok {
		return c
	}
	return categoryColors[chat.General]
}

// Result is the printable summary of one processed item.
type Result struct {
	ID       int    `json:"id" msgpack:"id"`
	Message  string `json:"message" msgpack:"message"`
	Category string `json:"category" msgpack:"category"`
	Response string `json:"response" msgpack:"response"`
}

// ResultOf summarises item. A missing classification reads as general and
// a missing response as "No response".
func ResultOf(item flow.Item) Result {
	category := chat.ClassificationOf(item)
	if category == "" {
		category = chat.General
	}
	response := chat.ResponseOf(item)
	if response == "" {
		response = "No response"
	}
	return Result{
		ID:       item.ID(),
		Message:  item.Text(),
		Category: string(category),
		Response: response,
	}
}

// Encoder writes results to an output stream.
type Encoder interface {
	Encode(r Result) error
}

// NewEncoder returns the encoder for format. Color only affects text.
func NewEncoder(format string, w io.Writer, color bool) (Encoder, error) {
	switch format {
	case FormatText, "":
		return &textEncoder{w: w, color: color}, nil
	case FormatJSON:
		return &jsonEncoder{enc: json.NewEncoder(w)}, nil
	case FormatMsgpack:
		return &msgpackEncoder{w: w}, nil
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
}

type textEncoder struct {
	w     io.Writer
	color bool
}

func (e *textEncoder) Encode(r Result) error {
	var err error
	if e.color {
		_, err = fmt.Fprintf(e.w, "%sMessage:%s %s\n%s%s[%s]%s %s\n\n",
			dim, reset, r.Message,
			ColorFor(chat.Category(r.Category)), bold, strings.ToUpper(r.Category), reset, r.Response)
	} else {
		_, err = fmt.Fprintf(e.w, "Message: %s\n[%s] %s\n\n",
			r.Message, strings.ToUpper(r.Category), r.Response)
	}
	return err
}

// jsonEncoder writes one JSON object per line.
type jsonEncoder struct {
	enc *json.Encoder
}

func (e *jsonEncoder) Encode(r Result) error {
	return e.enc.Encode(r)
}

// msgpackEncoder writes each result as a msgpack map behind a 4-byte
// big-endian length prefix.
type msgpackEncoder struct {
	w io.Writer
}

func (e *msgpackEncoder) Encode(r Result) error {
	data, err := msgpack.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal msgpack result: %w", err)
	}

	frame := make([]byte, 4+len(data))
	binary.BigEndian.PutUint32(frame, uint32(len(data)))
	copy(frame[4:], data)

	if _, err := e.w.Write(frame); err != nil {
		return fmt.Errorf("failed to write msgpack frame: %w", err)
	}
	return nil
}

// ReadFrame decodes the next length-prefixed msgpack result from r. It
// returns io.EOF when r is exhausted between frames.
func ReadFrame(r io.Reader) (Result, error) {
	var prefix [4]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		return Result{}, err
	}

	data := make([]byte, binary.BigEndian.Uint32(prefix[:]))
	if _, err := io.ReadFull(r, data); err != nil {
		return Result{}, fmt.Errorf("failed to read msgpack frame: %w", err)
	}

	var res Result
	if err := msgpack.Unmarshal(data, &res); err != nil {
		return Result{}, fmt.Errorf("failed to unmarshal msgpack result: %w", err)
	}
	return res, nil
}
