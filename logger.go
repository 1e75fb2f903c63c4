package proteinagent

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
)

// AnalysisLogger records the stages of each analysis for offline review.
type AnalysisLogger interface {
	LogStage(stage StageLog) error
}

// NewAnalysisLogFilePath returns a file path under dir named after the model, so logs
// produced with different models are easy to tell apart.
func NewAnalysisLogFilePath(dir, model string) string {
	if dir == "" {
		dir = "./logs"
	}
	name := strings.NewReplacer(":", "_", "/", "_").Replace(strings.ToLower(model))
	return filepath.Join(dir, fmt.Sprintf("%d.%s.json", time.Now().Unix(), name))
}

// StageLog is one pipeline stage of one analysis.
type StageLog struct {
	AnalysisID string        `json:"analysis_id"`
	Stage      string        `json:"stage"`
	Timestamp  time.Time     `json:"timestamp"`
	Duration   time.Duration `json:"duration_ns"`
	Input      any           `json:"input,omitempty"`
	Output     any           `json:"output"`
	Error      string        `json:"error,omitempty"`
}

// FileAnalysisLogger accumulates stages and writes them all on Flush.
type FileAnalysisLogger struct {
	mu     sync.Mutex
	stages []StageLog
	writer io.Writer
}

func NewFileAnalysisLogger(writer io.Writer) *FileAnalysisLogger {
	return &FileAnalysisLogger{
		stages: make([]StageLog, 0),
		writer: writer,
	}
}

// LogStage buffers the stage; nothing is written until Flush.
func (fl *FileAnalysisLogger) LogStage(stage StageLog) error {
	fl.mu.Lock()
	defer fl.mu.Unlock()
	fl.stages = append(fl.stages, stage)
	return nil
}

// Flush writes all buffered stages and clears the buffer.
func (fl *FileAnalysisLogger) Flush() error {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.writer == nil {
		return nil
	}

	data, err := json.MarshalIndent(map[string]any{
		"analysis_session": map[string]any{
			"timestamp": time.Now(),
			"stages":    fl.stages,
		},
	}, "", "  ")
	if err != nil {
		return eris.Wrap(err, "failed to marshal analysis log")
	}

	if _, err := fl.writer.Write(data); err != nil {
		return eris.Wrap(err, "failed to write analysis log")
	}

	fl.stages = fl.stages[:0]
	return nil
}

// Len reports the number of buffered stages.
func (fl *FileAnalysisLogger) Len() int {
	fl.mu.Lock()
	defer fl.mu.Unlock()
	return len(fl.stages)
}

type NoOpAnalysisLogger struct{}

func NewNoOpAnalysisLogger() *NoOpAnalysisLogger {
	return &NoOpAnalysisLogger{}
}

func (nop *NoOpAnalysisLogger) LogStage(stage StageLog) error {
	return nil
}

// StdoutAnalysisLogger writes each stage as a JSON line (for Lambda/CloudWatch).
type StdoutAnalysisLogger struct {
	mu sync.Mutex
	w  io.Writer
}

func NewStdoutAnalysisLogger() *StdoutAnalysisLogger {
	return &StdoutAnalysisLogger{w: os.Stdout}
}

func (l *StdoutAnalysisLogger) LogStage(stage StageLog) error {
	data, err := json.Marshal(stage)
	if err != nil {
		return eris.Wrap(err, "failed to marshal stage log")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	_, err = fmt.Fprintln(l.w, string(data))
	return err
}
