package relay

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
)

const (
	eventDone  = "done"
	eventError = "error"
)

// wireEvent is the structured frame interleaved with raw content: the
// terminal done/error marker for a module's stream.
type wireEvent struct {
	Type   string `json:"type"`
	Module string `json:"module"`
}

// emitter abstracts the transport the tailer writes to, so SSE and websocket
// responses share one state machine. Content fragments pass through as raw
// bytes; events are JSON.
type emitter interface {
	Content(chunk string) error
	Event(typ, module string) error
}

// sseEmitter writes SSE framing: raw content bytes, events as data: lines,
// flushed per write so intermediaries do not batch the stream.
type sseEmitter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func newSSEEmitter(w http.ResponseWriter) (*sseEmitter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, errors.New("response writer does not support streaming")
	}
	return &sseEmitter{w: w, flusher: flusher}, nil
}

func (e *sseEmitter) Content(chunk string) error {
	if chunk == "" {
		return nil
	}
	if _, err := e.w.Write([]byte(chunk)); err != nil {
		return err
	}
	e.flusher.Flush()
	return nil
}

func (e *sseEmitter) Event(typ, module string) error {
	b, err := json.Marshal(wireEvent{Type: typ, Module: module})
	if err != nil {
		return err
	}
	if _, err := e.w.Write(append(append([]byte("data: "), b...), '\n', '\n')); err != nil {
		return err
	}
	e.flusher.Flush()
	return nil
}

// wsEmitter mirrors the same frames over a websocket: content as raw text
// frames, events as JSON text frames.
type wsEmitter struct {
	conn *websocket.Conn
}

func (e *wsEmitter) Content(chunk string) error {
	if chunk == "" {
		return nil
	}
	return e.conn.WriteMessage(websocket.TextMessage, []byte(chunk))
}

func (e *wsEmitter) Event(typ, module string) error {
	b, err := json.Marshal(wireEvent{Type: typ, Module: module})
	if err != nil {
		return err
	}
	return e.conn.WriteMessage(websocket.TextMessage, b)
}
