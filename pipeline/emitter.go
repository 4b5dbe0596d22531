package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/pterm/pterm"
	"go.uber.org/zap"

	"github.com/teranos/mangasync/logger"
	"github.com/teranos/mangasync/sym"
)

// Emitter receives progress of a flow. Implementations must be safe to
// call from one goroutine at a time; flows never emit concurrently.
type Emitter interface {
	// EmitStage announces the start of a stage
	EmitStage(stage string, message string)

	// EmitProgress reports count items handled by a stage
	EmitProgress(count int, metadata map[string]interface{})

	// EmitComplete announces a successful flow with its counts
	EmitComplete(summary map[string]interface{})

	// EmitError reports the error that aborted a stage
	EmitError(stage string, err error)

	// EmitInfo emits a general message
	EmitInfo(message string)
}

// LogEmitter writes progress to a zap logger.
type LogEmitter struct {
	logger *zap.SugaredLogger
}

// NewLogEmitter returns an emitter over log; nil discards.
func NewLogEmitter(log *zap.SugaredLogger) *LogEmitter {
	return &LogEmitter{logger: logger.OrNop(log)}
}

func (e *LogEmitter) EmitStage(stage string, message string) {
	e.logger.Infow(message, logger.FieldStage, stage)
}

func (e *LogEmitter) EmitProgress(count int, metadata map[string]interface{}) {
	e.logger.Infow("Progress", append([]interface{}{logger.FieldCount, count}, flatten(metadata)...)...)
}

func (e *LogEmitter) EmitComplete(summary map[string]interface{}) {
	e.logger.Infow("Flow complete", flatten(summary)...)
}

func (e *LogEmitter) EmitError(stage string, err error) {
	e.logger.Errorw("Stage failed", logger.FieldStage, stage, logger.FieldError, err)
}

func (e *LogEmitter) EmitInfo(message string) {
	e.logger.Info(message)
}

// CLIEmitter prints progress to the terminal with pterm.
type CLIEmitter struct {
	verbosity int
}

// NewCLIEmitter returns a terminal emitter. Summaries and info lines need
// verbosity >= 1.
func NewCLIEmitter(verbosity int) *CLIEmitter {
	return &CLIEmitter{verbosity: verbosity}
}

func (e *CLIEmitter) EmitStage(stage string, message string) {
	pterm.Printf("%s %s: %s\n", pterm.LightCyan(sym.Open), pterm.LightCyan(stage), message)
}

func (e *CLIEmitter) EmitProgress(count int, metadata map[string]interface{}) {
	what := "items"
	if t, ok := metadata["type"].(string); ok {
		what = t
	}
	pterm.Printf("  %s %s\n", pterm.Green(fmt.Sprintf("%d", count)), what)
}

func (e *CLIEmitter) EmitComplete(summary map[string]interface{}) {
	status, _ := summary["status"].(string)
	if status == string(StatusSkipped) {
		pterm.Info.Println("Nothing to do")
	} else {
		pterm.Success.Println(sym.Close + " Done")
	}
	if e.verbosity >= 1 {
		for _, key := range sortedKeys(summary) {
			pterm.Printf("  %s: %v\n", key, summary[key])
		}
	}
}

func (e *CLIEmitter) EmitError(stage string, err error) {
	pterm.Error.Printf("%s failed: %v\n", stage, err)
}

func (e *CLIEmitter) EmitInfo(message string) {
	if e.verbosity >= 1 {
		pterm.Info.Println(message)
	}
}

// Event is one line of JSONEmitter output.
type Event struct {
	Type      string                 `json:"type"` // stage, progress, complete, error, info
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

// JSONEmitter writes one JSON event per line.
type JSONEmitter struct {
	mu  sync.Mutex
	enc *json.Encoder
	now func() time.Time
}

// NewJSONEmitter returns an emitter writing to w.
func NewJSONEmitter(w io.Writer) *JSONEmitter {
	return &JSONEmitter{enc: json.NewEncoder(w), now: time.Now}
}

func (e *JSONEmitter) emit(kind string, data map[string]interface{}) {
	e.mu.Lock()
	defer e.mu.Unlock()
	_ = e.enc.Encode(Event{Type: kind, Timestamp: e.now(), Data: data})
}

func (e *JSONEmitter) EmitStage(stage string, message string) {
	e.emit("stage", map[string]interface{}{"stage": stage, "message": message})
}

func (e *JSONEmitter) EmitProgress(count int, metadata map[string]interface{}) {
	data := map[string]interface{}{"count": count}
	for k, v := range metadata {
		data[k] = v
	}
	e.emit("progress", data)
}

func (e *JSONEmitter) EmitComplete(summary map[string]interface{}) {
	e.emit("complete", summary)
}

func (e *JSONEmitter) EmitError(stage string, err error) {
	e.emit("error", map[string]interface{}{"stage": stage, "error": err.Error()})
}

func (e *JSONEmitter) EmitInfo(message string) {
	e.emit("info", map[string]interface{}{"message": message})
}

func flatten(m map[string]interface{}) []interface{} {
	kv := make([]interface{}, 0, 2*len(m))
	for _, k := range sortedKeys(m) {
		kv = append(kv, k, m[k])
	}
	return kv
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
