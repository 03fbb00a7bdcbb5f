package ocr

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// Runner executes an external command and captures its output. Extracted as
// an interface so tests can substitute the tesseract binary.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var out, errb bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errb
	err := cmd.Run()
	return out.Bytes(), errb.Bytes(), err
}

// Tesseract implements the Recognizer interface by shelling out to the
// tesseract binary. Recognition confidence is the mean word confidence
// reported by tesseract's TSV output.
type Tesseract struct {
	binary string
	lang   string
	runner Runner
}

// NewTesseract creates a Tesseract recognizer. Empty arguments fall back to
// the "tesseract" binary on PATH and English language data.
func NewTesseract(binary, lang string) *Tesseract {
	if binary == "" {
		binary = "tesseract"
	}
	if lang == "" {
		lang = "eng"
	}
	return &Tesseract{binary: binary, lang: lang, runner: execRunner{}}
}

// NewTesseractWithRunner creates a Tesseract recognizer with a custom runner for testing.
func NewTesseractWithRunner(binary, lang string, runner Runner) *Tesseract {
	t := NewTesseract(binary, lang)
	t.runner = runner
	return t
}

// RecognizeImage runs tesseract over the PNG data and reports the text with
// the engine's mean word confidence. A failed confidence pass falls back to
// a content heuristic rather than failing recognition.
func (t *Tesseract) RecognizeImage(ctx context.Context, pngData []byte) (PageText, error) {
	tmpDir, err := os.MkdirTemp("", "invoice-ocr-*")
	if err != nil {
		return PageText{}, fmt.Errorf("creating temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	imagePath := filepath.Join(tmpDir, "page.png")
	if err := os.WriteFile(imagePath, pngData, 0644); err != nil {
		return PageText{}, fmt.Errorf("writing temp image: %w", err)
	}

	// tesseract <file> stdout -l <lang>
	out, errb, err := t.runner.Run(ctx, t.binary, imagePath, "stdout", "-l", t.lang)
	if err != nil {
		return PageText{}, fmt.Errorf("running tesseract: %s: %w", strings.TrimSpace(string(errb)), err)
	}
	text := string(out)

	confidence, err := t.tsvConfidence(ctx, imagePath)
	if err != nil {
		confidence = estimateTextConfidence(text)
	}

	return PageText{Text: text, Confidence: confidence}, nil
}

// tsvConfidence runs tesseract in TSV mode and returns the mean word
// confidence in 0-100.
func (t *Tesseract) tsvConfidence(ctx context.Context, imagePath string) (float64, error) {
	// tesseract <file> stdout -l <lang> tsv
	out, errb, err := t.runner.Run(ctx, t.binary, imagePath, "stdout", "-l", t.lang, "tsv")
	if err != nil {
		return 0, fmt.Errorf("running tesseract tsv: %s: %w", strings.TrimSpace(string(errb)), err)
	}

	var sum float64
	var words int
	for _, line := range strings.Split(string(out), "\n") {
		fields := strings.Split(line, "\t")
		// level word_num ... conf text; word rows are level 5 with conf >= 0
		if len(fields) < 12 || fields[0] != "5" {
			continue
		}
		conf, err := strconv.ParseFloat(fields[10], 64)
		if err != nil || conf < 0 {
			continue
		}
		sum += conf
		words++
	}

	if words == 0 {
		return 0, fmt.Errorf("no confident words in tsv output")
	}
	return sum / float64(words), nil
}

// Close is a no-op, the tesseract binary holds no persistent state.
func (t *Tesseract) Close() error {
	return nil
}
