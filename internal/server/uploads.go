package server

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// maxUploadSize caps attachments at 2 MB.
const maxUploadSize = 2 << 20

var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".pdf":  true,
}

// handleUploadAttachment stores a multipart file on disk and records it on
// the task. Size and extension checks happen here, before the pipeline is
// reached, so a rejected file never produces an attachment record.
func (s *Server) handleUploadAttachment(c *gin.Context) {
	id, ok := s.pathID(c, "id")
	if !ok {
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		s.respondError(c, http.StatusBadRequest, errors.New("no file uploaded"))
		return
	}
	if header.Size > maxUploadSize {
		s.respondError(c, http.StatusRequestEntityTooLarge, errors.New("file exceeds the 2 MB limit"))
		return
	}
	if !allowedExtensions[strings.ToLower(filepath.Ext(header.Filename))] {
		s.respondError(c, http.StatusBadRequest, errors.New("only .jpg, .jpeg, .png and .pdf files are allowed"))
		return
	}

	stored := storedFilename(header.Filename)
	dst := filepath.Join(s.uploadDir, stored)
	if err := c.SaveUploadedFile(header, dst); err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}

	webPath := "/uploads/" + stored
	task, err := s.tasks.AddAttachment(c.Request.Context(), currentUser(c), id, stored, webPath)
	if err != nil {
		_ = os.Remove(dst)
		s.respondServiceError(c, err)
		return
	}

	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"message":  "File uploaded",
		"file":     webPath,
		"file_url": fmt.Sprintf("%s://%s%s", scheme, c.Request.Host, webPath),
		"task":     task,
	})
}

// storedFilename sanitizes the client filename (whitespace becomes dashes,
// anything outside [a-zA-Z0-9.-_] is stripped) and prefixes a timestamp to
// avoid collisions.
func storedFilename(original string) string {
	base := strings.Join(strings.Fields(original), "-")

	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.', r == '-', r == '_':
			b.WriteRune(r)
		}
	}

	name := b.String()
	if name == "" || name == filepath.Ext(name) {
		name = "file" + name
	}
	return fmt.Sprintf("%d-%s", time.Now().UnixMilli(), name)
}
