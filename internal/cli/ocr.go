package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/claims-intake/internal/core/ocr"
	"github.com/joseph-ayodele/claims-intake/internal/entity"
	"github.com/joseph-ayodele/claims-intake/internal/extract"
	"github.com/joseph-ayodele/claims-intake/internal/intake"
)

var ocrPrintText bool

type ocrOutput struct {
	File       string                 `json:"file"`
	MediaType  string                 `json:"media_type"`
	Method     string                 `json:"method"`
	Pages      int                    `json:"pages"`
	DurationMs int64                  `json:"duration_ms"`
	Warnings   []string               `json:"warnings,omitempty"`
	Fields     entity.ExtractedFields `json:"fields"`
	Text       string                 `json:"text,omitempty"`
}

// ocrCmd runs recognition and extraction on one file without a session.
var ocrCmd = &cobra.Command{
	Use:   "ocr FILE",
	Short: "Recognize one claim form and print the extracted fields as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		path := args[0]
		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		mt := intake.ResolveMediaType("", content)

		engine := ocr.NewEngine(ocr.Config{
			Pdftoppm:      cfg.OCR.Pdftoppm,
			Tesseract:     cfg.OCR.Tesseract,
			Magick:        cfg.OCR.HeicConverter,
			TesseractLang: cfg.OCR.Lang,
			TessdataDir:   cfg.OCR.TessdataDir,
			DPI:           cfg.OCR.DPI,
			MaxPages:      cfg.OCR.MaxPages,
			MaxInstances:  1,
			CacheTTL:      -1,
		}, logger)
		res, err := engine.Recognize(cmd.Context(), ocr.Document{Name: filepath.Base(path), MediaType: mt, Content: content})
		if err != nil {
			return fmt.Errorf("recognize %s: %w", path, err)
		}

		out := ocrOutput{
			File:       path,
			MediaType:  mt,
			Method:     res.Method,
			Pages:      res.Pages,
			DurationMs: res.Duration.Milliseconds(),
			Warnings:   res.Warnings,
			Fields:     extract.Extract(res.Text),
		}
		if ocrPrintText {
			out.Text = res.Text
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

func init() {
	ocrCmd.Flags().BoolVar(&ocrPrintText, "text", false, "include the recognized text")
	rootCmd.AddCommand(ocrCmd)
}
