package ocr

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

// minTextLayerRunes is the smallest embedded text layer accepted before falling
// back to rasterizing the PDF.
const minTextLayerRunes = 16

// instance is a single-use engine with its own scratch directory.
type instance struct {
	e   *Engine
	dir string
}

func (e *Engine) newInstance() (*instance, error) {
	dir, err := os.MkdirTemp(e.scratchRoot, "ci-ocr-*")
	if err != nil {
		return nil, err
	}
	return &instance{e: e, dir: dir}, nil
}

func (i *instance) release() {
	if err := os.RemoveAll(i.dir); err != nil {
		i.e.logger.Warn("failed to remove ocr scratch dir", "dir", i.dir, "error", err)
	}
}

func (i *instance) writeInput(doc Document, ext string) (string, error) {
	path := filepath.Join(i.dir, "input"+ext)
	if err := os.WriteFile(path, doc.Content, 0o600); err != nil {
		return "", err
	}
	return path, nil
}

func (i *instance) recognizePDF(ctx context.Context, doc Document) (Result, error) {
	if txt, pages, ok := i.pdfTextLayer(doc.Content); ok {
		return Result{Text: txt, Pages: pages, Method: "pdf-text"}, nil
	}

	res := Result{Method: "pdf-ocr"}
	path, err := i.writeInput(doc, ".pdf")
	if err != nil {
		return res, err
	}

	prefix := filepath.Join(i.dir, "page")
	// pdftoppm -r 300 -png <in.pdf> <scratch/page>
	_, err = i.e.runner.Run(ctx, Command{
		Step: StepRasterize,
		Bin:  i.e.cfg.Pdftoppm,
		Args: []string{"-r", fmt.Sprintf("%d", i.e.cfg.DPI), "-png", path, prefix},
		Doc:  doc.Name,
	})
	if err != nil {
		return res, err
	}

	// prefix-1.png, prefix-2.png, ...
	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if i.e.cfg.MaxPages > 0 && len(matches) > i.e.cfg.MaxPages {
		res.Warnings = append(res.Warnings, fmt.Sprintf("only the first %d of %d pages recognized", i.e.cfg.MaxPages, len(matches)))
		matches = matches[:i.e.cfg.MaxPages]
	}
	if len(matches) == 0 {
		return res, fmt.Errorf("pdftoppm produced no images")
	}

	var b strings.Builder
	for _, img := range matches {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		txt, err := i.tesseract(ctx, doc.Name, img)
		if err != nil {
			res.Warnings = append(res.Warnings, err.Error())
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(txt)
	}
	if b.Len() == 0 && len(res.Warnings) > 0 {
		return res, fmt.Errorf("no page could be recognized: %s", res.Warnings[0])
	}
	res.Text = b.String()
	res.Pages = len(matches)
	return res, nil
}

// pdfTextLayer reads the embedded text of a digital PDF. Malformed files make
// the parser panic, which is reported as "no text layer".
func (i *instance) pdfTextLayer(content []byte) (text string, pages int, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			i.e.logger.Debug("pdf text layer unreadable", "panic", fmt.Sprint(r))
			text, pages, ok = "", 0, false
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", 0, false
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", 0, false
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", 0, false
	}
	txt := buf.String()
	if len([]rune(strings.TrimSpace(txt))) < minTextLayerRunes {
		return "", 0, false
	}
	return txt, r.NumPage(), true
}

func (i *instance) recognizeImage(ctx context.Context, doc Document) (Result, error) {
	res := Result{Method: "image-ocr", Pages: 1}
	ext := strings.ToLower(filepath.Ext(doc.Name))
	path, err := i.writeInput(doc, ext)
	if err != nil {
		return res, err
	}
	if isHEIC(doc.MediaType, ext) {
		if path, err = i.convertHEIC(ctx, doc.Name, path); err != nil {
			return res, err
		}
	}
	txt, err := i.tesseract(ctx, doc.Name, path)
	if err != nil {
		return res, err
	}
	res.Text = txt
	return res, nil
}

func (i *instance) tesseract(ctx context.Context, docName, path string) (string, error) {
	args := []string{path, "stdout", "-l", i.e.cfg.TesseractLang}
	if i.e.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", i.e.cfg.TessdataDir)
	}

	// tesseract <file> stdout -l <lang>
	out, err := i.e.runner.Run(ctx, Command{Step: StepRecognize, Bin: i.e.cfg.Tesseract, Args: args, Doc: docName})
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func isHEIC(mediaType, ext string) bool {
	switch strings.ToLower(mediaType) {
	case "image/heic", "image/heif":
		return true
	}
	return ext == ".heic" || ext == ".heif"
}

// convertHEIC converts to PNG inside the scratch dir, since tesseract cannot
// read HEIC.
func (i *instance) convertHEIC(ctx context.Context, docName, src string) (string, error) {
	dst := filepath.Join(i.dir, "converted.png")
	if _, err := i.e.runner.Run(ctx, Command{Step: StepConvert, Bin: i.e.cfg.Magick, Args: []string{src, dst}, Doc: docName}); err != nil {
		return "", fmt.Errorf("heic conversion: %w", err)
	}
	return dst, nil
}
