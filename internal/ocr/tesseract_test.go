package ocr

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type mockRunner struct {
	textOut []byte
	textErr error
	tsvOut  []byte
	tsvErr  error
	calls   [][]string
}

func (m *mockRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	m.calls = append(m.calls, append([]string{name}, args...))
	if len(args) > 0 && args[len(args)-1] == "tsv" {
		return m.tsvOut, nil, m.tsvErr
	}
	return m.textOut, nil, m.textErr
}

const tsvFixture = "level\tpage_num\tblock_num\tpar_num\tline_num\tword_num\tleft\ttop\twidth\theight\tconf\ttext\n" +
	"1\t1\t0\t0\t0\t0\t0\t0\t100\t100\t-1\t\n" +
	"5\t1\t1\t1\t1\t1\t0\t0\t10\t10\t91.0\tTotal\n" +
	"5\t1\t1\t1\t1\t2\t12\t0\t10\t10\t89.0\tDue\n"

var _ = Describe("Tesseract", func() {
	var (
		runner *mockRunner
		page   PageText
		err    error
	)

	BeforeEach(func() {
		runner = &mockRunner{
			textOut: []byte("Total Due: $10.00\n"),
			tsvOut:  []byte(tsvFixture),
		}
	})

	JustBeforeEach(func() {
		engine := NewTesseractWithRunner("tesseract", "eng", runner)
		page, err = engine.RecognizeImage(context.Background(), []byte("png-bytes"))
	})

	When("both passes succeed", func() {
		It("should not return an error", func() {
			Expect(err).NotTo(HaveOccurred())
		})

		It("should return the recognized text", func() {
			Expect(page.Text).To(Equal("Total Due: $10.00\n"))
		})

		It("should average the word confidences", func() {
			Expect(page.Confidence).To(Equal(90.0))
		})

		It("should invoke the binary for text and then tsv", func() {
			Expect(runner.calls).To(HaveLen(2))
			Expect(runner.calls[0][0]).To(Equal("tesseract"))
			Expect(runner.calls[1][len(runner.calls[1])-1]).To(Equal("tsv"))
		})
	})

	When("the tsv pass fails", func() {
		BeforeEach(func() {
			runner.textOut = []byte("Invoice 12/03/2026 total $1,234.00 due\n")
			runner.tsvErr = errors.New("tsv unavailable")
		})

		It("should fall back to the content heuristic", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(page.Confidence).To(Equal(90.0))
		})
	})

	When("the tsv output has no word rows", func() {
		BeforeEach(func() {
			runner.textOut = []byte("hello\n")
			runner.tsvOut = []byte("level\tpage_num\n1\t1\n")
		})

		It("should fall back to the content heuristic", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(page.Confidence).To(Equal(40.0))
		})
	})

	When("the text pass fails", func() {
		BeforeEach(func() {
			runner.textErr = errors.New("no such binary")
		})

		It("should return the error", func() {
			Expect(err).To(MatchError(ContainSubstring("no such binary")))
		})
	})
})
