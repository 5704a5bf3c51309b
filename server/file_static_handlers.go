package server

import (
	"embed"
	"fmt"
	"io/fs"
	"net/http"
)

//go:embed static/*
var staticFiles embed.FS

func StaticFilesFS() fs.FS {
	subFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic("Failed to create sub filesystem: " + err.Error())
	}
	return subFS
}

// StreamFile serves an embedded asset. Directories and missing files are an
// error so the caller can log them.
func StreamFile(w http.ResponseWriter, r *http.Request, fileName string) error {
	info, err := fs.Stat(StaticFilesFS(), fileName)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", fileName, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", fileName)
	}
	http.ServeFileFS(w, r, StaticFilesFS(), fileName)
	return nil
}
