package modelpool

import (
	"path/filepath"
	"strings"
)

const (
	// DefaultBaseURL hosts the ggml whisper weights.
	DefaultBaseURL = "https://huggingface.co/ggerganov/whisper.cpp/resolve/main"

	// DefaultVADBaseURL hosts the ggml voice-activity models.
	DefaultVADBaseURL = "https://huggingface.co/ggml-org/whisper-vad/resolve/main"
)

// Entry describes one downloadable model file.
type Entry struct {
	ID        string
	FileName  string
	SizeLabel string
}

// Catalog lists the whisper.cpp models known to voicebox.
var Catalog = []Entry{
	{ID: "tiny.en", FileName: "ggml-tiny.en.bin", SizeLabel: "~75 MB"},
	{ID: "tiny", FileName: "ggml-tiny.bin", SizeLabel: "~75 MB"},
	{ID: "base.en", FileName: "ggml-base.en.bin", SizeLabel: "~142 MB"},
	{ID: "base", FileName: "ggml-base.bin", SizeLabel: "~142 MB"},
	{ID: "small.en", FileName: "ggml-small.en.bin", SizeLabel: "~466 MB"},
	{ID: "small", FileName: "ggml-small.bin", SizeLabel: "~466 MB"},
	{ID: "medium.en", FileName: "ggml-medium.en.bin", SizeLabel: "~1.5 GB"},
	{ID: "medium", FileName: "ggml-medium.bin", SizeLabel: "~1.5 GB"},
	{ID: "large-v3", FileName: "ggml-large-v3.bin", SizeLabel: "~2.9 GB"},
	{ID: "large-v3-turbo", FileName: "ggml-large-v3-turbo.bin", SizeLabel: "~1.6 GB"},
	{ID: "silero-v5.1.2", FileName: "ggml-silero-v5.1.2.bin", SizeLabel: "~1 MB"},
}

// Lookup returns the catalog entry for id. Ids not in the catalog still map
// to the ggml naming scheme so newer upstream models can be used by name.
func Lookup(id string) Entry {
	for _, e := range Catalog {
		if e.ID == id {
			return e
		}
	}
	return Entry{ID: id, FileName: fileName(id)}
}

func fileName(id string) string {
	return "ggml-" + id + ".bin"
}

// isFilePath reports whether a configured model id is a direct path to a
// weights file rather than a catalog id.
func isFilePath(id string) bool {
	if strings.ContainsRune(id, filepath.Separator) || strings.Contains(id, "/") {
		return true
	}
	ext := strings.ToLower(filepath.Ext(id))
	return ext == ".bin" || ext == ".gguf"
}

// isVAD reports whether id names a voice-activity model.
func isVAD(id string) bool {
	return strings.HasPrefix(id, "silero")
}
