package medlog

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/image/draw"

	"github.com/eringen/medlog/visits"
)

const (
	maxScanWidth  = 1600
	jpegQuality   = 85
	maxUploadSize = 10 << 20 // 10MB
)

// processScan decodes an uploaded document image, scales it down to
// maxScanWidth when wider, and re-encodes it as JPEG.
func processScan(src io.Reader, originalName string, now time.Time) (visits.Attachment, []byte, error) {
	img, _, err := image.Decode(src)
	if err != nil {
		return visits.Attachment{}, nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	if w > maxScanWidth {
		newH := h * maxScanWidth / w
		dst := image.NewRGBA(image.Rect(0, 0, maxScanWidth, newH))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		img = dst
		w = maxScanWidth
		h = newH
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return visits.Attachment{}, nil, fmt.Errorf("encode jpeg: %w", err)
	}

	base := Slugify(strings.TrimSuffix(originalName, filepath.Ext(originalName)))
	if base == "" {
		base = "scan"
	}

	return visits.Attachment{
		Filename:     base + ".jpg",
		OriginalName: originalName,
		Width:        w,
		Height:       h,
		Size:         buf.Len(),
		UploadedAt:   now.UTC().Format(time.RFC3339),
	}, buf.Bytes(), nil
}

// userUploadDir is the directory holding one user's attachment files.
func (a *App) userUploadDir(userID string) string {
	return filepath.Join(a.Config.UploadsDir, userID)
}

// writeUniqueFile creates att.Filename in dir, appending a counter until an
// unused name is claimed, and records the name it got.
func writeUniqueFile(dir string, att *visits.Attachment, data []byte) error {
	base := strings.TrimSuffix(att.Filename, ".jpg")
	candidate := att.Filename
	for counter := 2; ; counter++ {
		f, err := os.OpenFile(filepath.Join(dir, candidate), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
		if errors.Is(err, fs.ErrExist) {
			candidate = fmt.Sprintf("%s-%d.jpg", base, counter)
			continue
		}
		if err != nil {
			return err
		}
		_, err = f.Write(data)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			_ = os.Remove(f.Name())
			return err
		}
		att.Filename = candidate
		return nil
	}
}

// cleanFilename rejects anything that is not a bare file name.
func cleanFilename(name string) (string, bool) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", false
	}
	return name, true
}

func (a *App) removeAttachmentFile(userID, filename string) error {
	name, ok := cleanFilename(filename)
	if !ok {
		return fmt.Errorf("invalid attachment name %q", filename)
	}
	err := os.Remove(filepath.Join(a.userUploadDir(userID), name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func (a *App) handleAttachmentUpload(c echo.Context) error {
	ctx := c.Request().Context()
	user := CurrentUser(c)
	v, err := a.Cache.GetVisit(ctx, user, c.Param("id"))
	if err != nil {
		return err
	}

	file, err := c.FormFile("file")
	if err != nil {
		return c.String(http.StatusBadRequest, "No file provided")
	}
	if file.Size > maxUploadSize {
		return c.String(http.StatusBadRequest, "File too large (max 10MB)")
	}

	src, err := file.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	att, data, err := processScan(src, file.Filename, a.now())
	if err != nil {
		return c.String(http.StatusBadRequest, "Invalid image: "+err.Error())
	}

	dir := a.userUploadDir(user)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create uploads dir: %w", err)
	}
	if err := writeUniqueFile(dir, &att, data); err != nil {
		return fmt.Errorf("write attachment: %w", err)
	}

	v.Attachments = append(v.Attachments, att)
	if err := a.Cache.SaveVisit(ctx, v); err != nil {
		_ = os.Remove(filepath.Join(dir, att.Filename))
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/visits/"+v.ID+"/edit/")
}

func (a *App) handleAttachmentDelete(c echo.Context) error {
	ctx := c.Request().Context()
	user := CurrentUser(c)
	v, err := a.Cache.GetVisit(ctx, user, c.Param("id"))
	if err != nil {
		return err
	}

	filename := c.Param("file")
	i := slices.IndexFunc(v.Attachments, func(att visits.Attachment) bool {
		return att.Filename == filename
	})
	if i < 0 {
		return echo.ErrNotFound
	}
	v.Attachments = slices.Delete(slices.Clone(v.Attachments), i, i+1)
	if err := a.Cache.SaveVisit(ctx, v); err != nil {
		return err
	}
	if err := a.removeAttachmentFile(user, filename); err != nil {
		c.Logger().Errorf("remove attachment %s: %v", filename, err)
	}
	return c.Redirect(http.StatusSeeOther, "/visits/"+v.ID+"/edit/")
}

// handleAttachmentFile serves a file from the current user's upload
// directory. Other users' files are unreachable by construction.
func (a *App) handleAttachmentFile(c echo.Context) error {
	name, ok := cleanFilename(c.Param("file"))
	if !ok {
		return echo.ErrNotFound
	}
	path := filepath.Join(a.userUploadDir(CurrentUser(c)), name)
	if _, err := os.Stat(path); err != nil {
		return echo.ErrNotFound
	}
	return c.File(path)
}
