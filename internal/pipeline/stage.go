package pipeline

// State names a step of the pipeline state machine.
type State string

const (
	StateReceived    State = "Received"
	StateCompressing State = "Compressing"
	StateOCRing      State = "OCRing"
	StateExtracting  State = "Extracting"
	StateDone        State = "Done"
	StateFailed      State = "Failed"
)

// Policy decides what a stage failure does to the pipeline.
type Policy int

const (
	// Absorb logs the failure and hands the unchanged document to the next stage.
	Absorb Policy = iota
	// Abort ends the pipeline with a StageError.
	Abort
)

func (p Policy) String() string {
	switch p {
	case Absorb:
		return "absorb"
	case Abort:
		return "abort"
	default:
		return "unknown"
	}
}

// Stage is the static description of one remote transformation.
// Output names the document after a successful stage; empty keeps the current name.
type Stage struct {
	State  State
	Tool   string
	Params map[string]any
	Output string
	Policy Policy
}

// Options carries the tool parameters of the default stage table.
type Options struct {
	CompressionLevel string
	OCRLanguages     []string
}

// DefaultStages returns the compress → OCR → extract table.
// Compression is best effort; OCR and extraction are mandatory.
func DefaultStages(opts Options) []Stage {
	return []Stage{
		{
			State:  StateCompressing,
			Tool:   "compress",
			Params: map[string]any{"compression_level": opts.CompressionLevel},
			Output: "compressed.pdf",
			Policy: Absorb,
		},
		{
			State:  StateOCRing,
			Tool:   "pdfocr",
			Params: map[string]any{"ocr_languages": opts.OCRLanguages},
			Output: "ocr_output.pdf",
			Policy: Abort,
		},
		{
			State:  StateExtracting,
			Tool:   "extract",
			Policy: Abort,
		},
	}
}
