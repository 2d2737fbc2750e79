package server

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/joseph-ayodele/claims-intake/internal/entity"
	"github.com/joseph-ayodele/claims-intake/internal/intake"
	"github.com/joseph-ayodele/claims-intake/internal/server/respond"
)

const formField = "files"

type rejectedFile struct {
	Filename  string `json:"filename"`
	Code      string `json:"code"`
	MediaType string `json:"media_type,omitempty"`
	Reason    string `json:"reason"`
}

type admitResponse struct {
	Accepted []entity.IntakeItem `json:"accepted"`
	Rejected []rejectedFile      `json:"rejected"`
}

// admit handles POST /intake with one or more multipart "files" parts.
func (h *handlers) admit(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			respond.Error(c, http.StatusRequestEntityTooLarge, "too_large",
				fmt.Sprintf("upload exceeds %d bytes", tooBig.Limit))
			return
		}
		respond.Error(c, http.StatusBadRequest, "invalid_form", "expected multipart/form-data")
		return
	}
	headers := form.File[formField]
	if len(headers) == 0 {
		respond.Error(c, http.StatusBadRequest, "no_files", "no files in field \""+formField+"\"")
		return
	}

	files := make([]intake.File, 0, len(headers))
	for _, fh := range headers {
		f, err := readPart(fh)
		if err != nil {
			respond.Error(c, http.StatusBadRequest, "invalid_form", err.Error())
			return
		}
		files = append(files, f)
	}

	res, err := h.Intake.Admit(c.Request.Context(), files)
	if err != nil {
		writeError(c, err)
		return
	}

	out := admitResponse{
		Accepted: res.Accepted,
		Rejected: make([]rejectedFile, 0, len(res.Rejected)),
	}
	if out.Accepted == nil {
		out.Accepted = []entity.IntakeItem{}
	}
	for _, r := range res.Rejected {
		out.Rejected = append(out.Rejected, rejectedFile{
			Filename:  r.Filename,
			Code:      r.Code,
			MediaType: r.MediaType,
			Reason:    r.Reason,
		})
	}
	respond.JSON(c, http.StatusAccepted, out)
}

func readPart(fh *multipart.FileHeader) (intake.File, error) {
	src, err := fh.Open()
	if err != nil {
		return intake.File{}, fmt.Errorf("open %s: %w", fh.Filename, err)
	}
	defer func() { _ = src.Close() }()
	b, err := io.ReadAll(src)
	if err != nil {
		return intake.File{}, fmt.Errorf("read %s: %w", fh.Filename, err)
	}
	return intake.File{
		Name:      fh.Filename,
		MediaType: fh.Header.Get("Content-Type"),
		Content:   b,
	}, nil
}
