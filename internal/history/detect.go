package history

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"
)

// Output describes the file a finished job produced.
type Output struct {
	Path      string
	MediaType string
	Size      int64
}

// sidecars are written by the worker next to the media file.
var sidecars = map[string]bool{
	".json": true,
	".log":  true,
	".srt":  true,
	".vtt":  true,
	".ass":  true,
}

// DetectOutput finds the largest "<name>.*" media file in dir and sniffs
// its type. ok is false when nothing matches.
func DetectOutput(dir, name string) (Output, bool) {
	if dir == "" || name == "" {
		return Output{}, false
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return Output{}, false
	}

	var best Output
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), name+".") {
			continue
		}
		if sidecars[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		info, err := e.Info()
		if err != nil || info.Size() < best.Size {
			continue
		}
		best = Output{Path: filepath.Join(dir, e.Name()), Size: info.Size()}
	}
	if best.Path == "" {
		return Output{}, false
	}

	best.MediaType = "application/octet-stream"
	if kind, err := filetype.MatchFile(best.Path); err == nil && kind != filetype.Unknown {
		best.MediaType = kind.MIME.Value
	}
	return best, true
}
