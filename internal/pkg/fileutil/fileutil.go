package fileutil

import (
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// UniqueFilename returns a random UUID name that keeps the original extension, lower-cased.
func UniqueFilename(original string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(original)))
	if len(ext) > 16 {
		ext = ""
	}
	return uuid.NewString() + ext
}

// ObjectKey builds the storage key "{userID}/{capsuleID}/{filename}".
func ObjectKey(userID, capsuleID, filename string) string {
	return path.Join(userID, capsuleID, filename)
}
