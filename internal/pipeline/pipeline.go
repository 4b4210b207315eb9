// Package pipeline chains remote document transformations over one working
// buffer. Stages run once each, in order; each stage is a complete
// start → upload → process → download task, and its failure policy decides
// whether the pipeline continues with the previous buffer or aborts.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/text/encoding/unicode"

	"github.com/JaimeStill/scribe/pkg/docservice"
	"github.com/JaimeStill/scribe/pkg/formatting"
)

// InputFilename names the document handed to the first stage.
const InputFilename = "input.pdf"

// TaskClient is the remote task protocol the pipeline drives.
type TaskClient interface {
	Start(ctx context.Context, tool string) (*docservice.Task, error)
	Upload(ctx context.Context, task *docservice.Task, data []byte, filename string) (string, error)
	Process(ctx context.Context, task *docservice.Task, serverFilename, originalFilename string, params map[string]any) error
	Download(ctx context.Context, task *docservice.Task) ([]byte, error)
}

// Document is the working buffer threaded through the stages.
type Document struct {
	Data     []byte
	Filename string
}

// Report describes how one stage went.
type Report struct {
	Stage       State         `json:"stage"`
	Tool        string        `json:"tool"`
	InputBytes  int           `json:"input_bytes"`
	OutputBytes int           `json:"output_bytes"`
	Duration    time.Duration `json:"duration"`
	Absorbed    bool          `json:"absorbed,omitempty"`
	Error       string        `json:"error,omitempty"`
}

// Result is the outcome of a successful run.
type Result struct {
	Text    string   `json:"text"`
	Reports []Report `json:"reports"`
}

// Pipeline runs a fixed stage table against a TaskClient.
type Pipeline struct {
	client TaskClient
	stages []Stage
	logger *slog.Logger
}

// New creates a Pipeline over the given stage table.
func New(client TaskClient, stages []Stage, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		client: client,
		stages: stages,
		logger: logger.With("system", "pipeline"),
	}
}

// Stages returns the pipeline's stage table.
func (p *Pipeline) Stages() []Stage {
	return p.stages
}

// Run passes data through every stage and returns the final stage output
// decoded as UTF-8 text with surrounding whitespace trimmed.
func (p *Pipeline) Run(ctx context.Context, data []byte) (*Result, error) {
	if len(data) == 0 {
		return nil, ErrEmptyDocument
	}

	doc := Document{Data: data, Filename: InputFilename}
	result := &Result{Reports: make([]Report, 0, len(p.stages))}
	last := Stage{State: StateReceived}

	p.logger.InfoContext(ctx, "pipeline started", "size", formatting.FormatBytes(int64(len(data))))

	for _, stage := range p.stages {
		last = stage
		start := time.Now()

		out, err := p.runStage(ctx, stage, doc)

		report := Report{
			Stage:      stage.State,
			Tool:       stage.Tool,
			InputBytes: len(doc.Data),
			Duration:   time.Since(start),
		}

		if err != nil {
			report.Error = err.Error()

			if stage.Policy == Absorb {
				report.Absorbed = true
				result.Reports = append(result.Reports, report)
				p.logger.WarnContext(
					ctx, "stage failed, continuing with previous document",
					"stage", stage.State,
					"tool", stage.Tool,
					"error", err,
				)
				continue
			}

			result.Reports = append(result.Reports, report)
			p.logger.ErrorContext(
				ctx, "stage failed, aborting pipeline",
				"stage", stage.State,
				"tool", stage.Tool,
				"state", StateFailed,
				"error", err,
			)
			return nil, &StageError{Stage: stage.State, Tool: stage.Tool, Err: err, Reports: result.Reports}
		}

		report.OutputBytes = len(out)
		result.Reports = append(result.Reports, report)

		p.logger.InfoContext(
			ctx, "stage complete",
			"stage", stage.State,
			"tool", stage.Tool,
			"input", formatting.FormatBytes(int64(report.InputBytes)),
			"output", formatting.FormatBytes(int64(report.OutputBytes)),
			"duration", report.Duration,
		)

		doc.Data = out
		if stage.Output != "" {
			doc.Filename = stage.Output
		}
	}

	text, err := decodeText(doc.Data)
	if err != nil {
		return nil, &StageError{
			Stage:   last.State,
			Tool:    last.Tool,
			Err:     fmt.Errorf("decode text: %w", err),
			Reports: result.Reports,
		}
	}
	result.Text = text

	p.logger.InfoContext(ctx, "pipeline complete", "state", StateDone, "chars", len(text))
	return result, nil
}

// runStage performs one full task. Any failing step fails the whole stage.
func (p *Pipeline) runStage(ctx context.Context, stage Stage, doc Document) ([]byte, error) {
	task, err := p.client.Start(ctx, stage.Tool)
	if err != nil {
		return nil, err
	}

	serverFilename, err := p.client.Upload(ctx, task, doc.Data, doc.Filename)
	if err != nil {
		return nil, err
	}

	if err := p.client.Process(ctx, task, serverFilename, doc.Filename, stage.Params); err != nil {
		return nil, err
	}

	return p.client.Download(ctx, task)
}

// decodeText strips a UTF-8 BOM and replaces invalid sequences with U+FFFD.
func decodeText(data []byte) (string, error) {
	decoded, err := unicode.UTF8BOM.NewDecoder().Bytes(data)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(decoded)), nil
}
