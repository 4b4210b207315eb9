package pipeline_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"testing"

	"github.com/JaimeStill/scribe/internal/pipeline"
	"github.com/JaimeStill/scribe/pkg/docservice"
)

type fakeClient struct {
	outputs   map[string][]byte
	failOn    map[string]string
	calls     []string
	uploaded  map[string][]byte
	filenames map[string]string
	params    map[string]map[string]any
	tasks     int
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		outputs:   make(map[string][]byte),
		failOn:    make(map[string]string),
		uploaded:  make(map[string][]byte),
		filenames: make(map[string]string),
		params:    make(map[string]map[string]any),
	}
}

func (f *fakeClient) fail(tool, op string, sentinel error) error {
	if f.failOn[tool] == op {
		return fmt.Errorf("%w: %s %s: status 503", sentinel, tool, op)
	}
	return nil
}

func (f *fakeClient) Start(_ context.Context, tool string) (*docservice.Task, error) {
	f.calls = append(f.calls, "start:"+tool)
	if err := f.fail(tool, "start", docservice.ErrTaskStart); err != nil {
		return nil, err
	}
	f.tasks++
	return docservice.NewTask(fmt.Sprintf("task-%d", f.tasks), "worker.example", tool), nil
}

func (f *fakeClient) Upload(_ context.Context, task *docservice.Task, data []byte, filename string) (string, error) {
	f.calls = append(f.calls, "upload:"+task.Tool())
	if err := f.fail(task.Tool(), "upload", docservice.ErrUpload); err != nil {
		return "", err
	}
	f.uploaded[task.Tool()] = data
	f.filenames[task.Tool()] = filename
	return "srv-" + task.ID(), nil
}

func (f *fakeClient) Process(_ context.Context, task *docservice.Task, serverFilename, originalFilename string, params map[string]any) error {
	f.calls = append(f.calls, "process:"+task.Tool())
	if serverFilename != "srv-"+task.ID() {
		return fmt.Errorf("%w: unexpected server filename %s", docservice.ErrProcess, serverFilename)
	}
	f.params[task.Tool()] = params
	return f.fail(task.Tool(), "process", docservice.ErrProcess)
}

func (f *fakeClient) Download(_ context.Context, task *docservice.Task) ([]byte, error) {
	f.calls = append(f.calls, "download:"+task.Tool())
	if err := f.fail(task.Tool(), "download", docservice.ErrDownload); err != nil {
		return nil, err
	}
	return f.outputs[task.Tool()], nil
}

func (f *fakeClient) called(tool string) bool {
	return slices.Contains(f.calls, "start:"+tool)
}

func newPipeline(client pipeline.TaskClient) *pipeline.Pipeline {
	stages := pipeline.DefaultStages(pipeline.Options{
		CompressionLevel: "recommended",
		OCRLanguages:     []string{"ita"},
	})
	return pipeline.New(client, stages, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func successfulClient() *fakeClient {
	f := newFakeClient()
	f.outputs["compress"] = bytes.Repeat([]byte("c"), 6000)
	f.outputs["pdfocr"] = bytes.Repeat([]byte("o"), 6500)
	f.outputs["extract"] = []byte("\n  Hello world \r\n")
	return f
}

func TestRunSuccess(t *testing.T) {
	client := successfulClient()
	input := bytes.Repeat([]byte("p"), 10000)

	result, err := newPipeline(client).Run(context.Background(), input)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if result.Text != "Hello world" {
		t.Errorf("text: got %q, want %q", result.Text, "Hello world")
	}

	wantCalls := []string{
		"start:compress", "upload:compress", "process:compress", "download:compress",
		"start:pdfocr", "upload:pdfocr", "process:pdfocr", "download:pdfocr",
		"start:extract", "upload:extract", "process:extract", "download:extract",
	}
	if !slices.Equal(client.calls, wantCalls) {
		t.Errorf("calls: got %v, want %v", client.calls, wantCalls)
	}

	if len(client.uploaded["compress"]) != 10000 {
		t.Errorf("compress input: got %d bytes", len(client.uploaded["compress"]))
	}
	if len(client.uploaded["pdfocr"]) != 6000 {
		t.Errorf("ocr input: got %d bytes, want compressed 6000", len(client.uploaded["pdfocr"]))
	}
	if len(client.uploaded["extract"]) != 6500 {
		t.Errorf("extract input: got %d bytes, want ocr 6500", len(client.uploaded["extract"]))
	}

	wantNames := map[string]string{
		"compress": "input.pdf",
		"pdfocr":   "compressed.pdf",
		"extract":  "ocr_output.pdf",
	}
	for tool, want := range wantNames {
		if got := client.filenames[tool]; got != want {
			t.Errorf("%s filename: got %s, want %s", tool, got, want)
		}
	}

	if client.params["compress"]["compression_level"] != "recommended" {
		t.Errorf("compress params: got %v", client.params["compress"])
	}
	if langs, _ := client.params["pdfocr"]["ocr_languages"].([]string); !slices.Equal(langs, []string{"ita"}) {
		t.Errorf("ocr params: got %v", client.params["pdfocr"])
	}
	if len(client.params["extract"]) != 0 {
		t.Errorf("extract params: got %v, want none", client.params["extract"])
	}

	if len(result.Reports) != 3 {
		t.Fatalf("reports: got %d, want 3", len(result.Reports))
	}
	if r := result.Reports[0]; r.InputBytes != 10000 || r.OutputBytes != 6000 || r.Absorbed {
		t.Errorf("compress report: got %+v", r)
	}
}

func TestCompressionFailureAbsorbed(t *testing.T) {
	for _, op := range []string{"start", "upload", "process", "download"} {
		t.Run(op, func(t *testing.T) {
			client := successfulClient()
			client.failOn["compress"] = op
			input := bytes.Repeat([]byte("p"), 10000)

			result, err := newPipeline(client).Run(context.Background(), input)
			if err != nil {
				t.Fatalf("run: %v", err)
			}

			if !bytes.Equal(client.uploaded["pdfocr"], input) {
				t.Errorf("ocr input: got %d bytes, want original %d", len(client.uploaded["pdfocr"]), len(input))
			}
			if client.filenames["pdfocr"] != "input.pdf" {
				t.Errorf("ocr filename: got %s, want input.pdf", client.filenames["pdfocr"])
			}
			if result.Text != "Hello world" {
				t.Errorf("text: got %q", result.Text)
			}
			if !result.Reports[0].Absorbed || result.Reports[0].Error == "" {
				t.Errorf("compress report should record the absorbed failure: %+v", result.Reports[0])
			}
		})
	}
}

func TestOCRFailureAborts(t *testing.T) {
	tests := []struct {
		op       string
		sentinel error
	}{
		{"start", docservice.ErrTaskStart},
		{"upload", docservice.ErrUpload},
		{"process", docservice.ErrProcess},
		{"download", docservice.ErrDownload},
	}

	for _, tt := range tests {
		t.Run(tt.op, func(t *testing.T) {
			client := successfulClient()
			client.failOn["pdfocr"] = tt.op

			_, err := newPipeline(client).Run(context.Background(), []byte("%PDF-1.7"))
			if err == nil {
				t.Fatal("expected error")
			}

			var stageErr *pipeline.StageError
			if !errors.As(err, &stageErr) {
				t.Fatalf("error: got %T, want *StageError", err)
			}
			if stageErr.Stage != pipeline.StateOCRing {
				t.Errorf("stage: got %s, want OCRing", stageErr.Stage)
			}
			if !errors.Is(err, tt.sentinel) {
				t.Errorf("error %v should wrap %v", err, tt.sentinel)
			}
			if pipeline.FailedStage(err) != pipeline.StateOCRing {
				t.Errorf("FailedStage: got %s", pipeline.FailedStage(err))
			}
			if client.called("extract") {
				t.Error("extract must not run after OCR failure")
			}
		})
	}
}

func TestAbortCarriesReports(t *testing.T) {
	client := successfulClient()
	client.failOn["compress"] = "process"
	client.failOn["pdfocr"] = "download"

	_, err := newPipeline(client).Run(context.Background(), bytes.Repeat([]byte("p"), 10000))
	if err == nil {
		t.Fatal("expected error")
	}

	reports := pipeline.FailedReports(err)
	if len(reports) != 2 {
		t.Fatalf("reports: got %d, want compress and pdfocr", len(reports))
	}

	compress, ocr := reports[0], reports[1]
	if compress.Stage != pipeline.StateCompressing || !compress.Absorbed || compress.Error == "" {
		t.Errorf("compress report: %+v", compress)
	}
	if ocr.Stage != pipeline.StateOCRing || ocr.Absorbed || ocr.Error == "" {
		t.Errorf("ocr report: %+v", ocr)
	}
	if ocr.InputBytes != 10000 || ocr.OutputBytes != 0 {
		t.Errorf("ocr sizes: in %d out %d", ocr.InputBytes, ocr.OutputBytes)
	}

	if got := pipeline.FailedReports(errors.New("plain")); got != nil {
		t.Errorf("plain error reports: got %v, want nil", got)
	}
}

func TestExtractFailureAborts(t *testing.T) {
	client := successfulClient()
	client.failOn["extract"] = "download"

	_, err := newPipeline(client).Run(context.Background(), []byte("%PDF-1.7"))
	if pipeline.FailedStage(err) != pipeline.StateExtracting {
		t.Fatalf("stage: got %q (err %v), want Extracting", pipeline.FailedStage(err), err)
	}
	if !errors.Is(err, docservice.ErrDownload) {
		t.Errorf("error %v should wrap ErrDownload", err)
	}
}

func TestEmptyDocument(t *testing.T) {
	client := successfulClient()

	_, err := newPipeline(client).Run(context.Background(), nil)
	if !errors.Is(err, pipeline.ErrEmptyDocument) {
		t.Fatalf("error: got %v, want ErrEmptyDocument", err)
	}
	if len(client.calls) != 0 {
		t.Errorf("calls: got %v, want none", client.calls)
	}
}

func TestDecodeText(t *testing.T) {
	tests := []struct {
		name string
		raw  []byte
		want string
	}{
		{"plain", []byte("Hello world"), "Hello world"},
		{"bom", []byte("\xef\xbb\xbfCiao mondo\n"), "Ciao mondo"},
		{"accents", []byte("  perché già  "), "perché già"},
		{"invalid byte", []byte("ok\xff"), "ok�"},
		{"whitespace only", []byte(" \n\t "), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := successfulClient()
			client.outputs["extract"] = tt.raw

			result, err := newPipeline(client).Run(context.Background(), []byte("doc"))
			if err != nil {
				t.Fatalf("run: %v", err)
			}
			if result.Text != tt.want {
				t.Errorf("text: got %q, want %q", result.Text, tt.want)
			}
		})
	}
}

func TestPolicyString(t *testing.T) {
	if pipeline.Absorb.String() != "absorb" || pipeline.Abort.String() != "abort" {
		t.Errorf("policy strings: %s %s", pipeline.Absorb, pipeline.Abort)
	}
}
