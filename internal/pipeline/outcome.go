package pipeline

import (
	"errors"
	"fmt"
	"time"
)

// Stage names a step of a scan.
type Stage string

const (
	StageCapture    Stage = "Capture"
	StageStage      Stage = "Stage"
	StageRecognize  Stage = "Recognize"
	StageUploadBlob Stage = "UploadBlob"
	StageResolveURL Stage = "ResolveUrl"
	StageInsertDoc  Stage = "InsertDoc"
)

var (
	// ErrBusy is the cause of a Capture failure when another scan is in flight.
	ErrBusy = errors.New("scan already in progress")
	// ErrTimeout tags a stage that exceeded its deadline.
	ErrTimeout = errors.New("timeout")
)

// Outcome is one of Recognized, Persisted or Failed.
type Outcome interface {
	outcome()
}

// Recognized is emitted as soon as text is available, before persistence.
type Recognized struct {
	Text string
}

// Persisted is emitted once the image and its document are durable.
type Persisted struct {
	ScanID    string
	Text      string
	URL       string
	ImageKey  string
	OwnerID   string
	Timestamp time.Time
}

// Failed reports the stage a scan stopped at and why.
type Failed struct {
	Stage Stage
	Err   error
}

func (Recognized) outcome() {}
func (Persisted) outcome()  {}
func (Failed) outcome()     {}

func (f Failed) Error() string { return fmt.Sprintf("%s: %v", f.Stage, f.Err) }
func (f Failed) Unwrap() error { return f.Err }

// Sink receives every outcome of every scan, in order.
type Sink interface {
	Emit(Outcome)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Outcome)

func (f SinkFunc) Emit(o Outcome) { f(o) }

// MultiSink delivers each outcome to every sink in order.
type MultiSink []Sink

func (m MultiSink) Emit(o Outcome) {
	for _, s := range m {
		s.Emit(o)
	}
}
