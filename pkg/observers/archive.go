package observers

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/harunnryd/parrot/pkg/pcm"
)

// ClipArchive saves captured clips as WAV files named after the session.
type ClipArchive struct {
	Dir string
}

func (a ClipArchive) SaveClip(sessionID string, clip pcm.Buffer) error {
	if a.Dir == "" {
		return nil
	}
	name := sanitizeID(sessionID)
	if name == "" {
		return fmt.Errorf("clip archive: empty session id")
	}
	if err := os.MkdirAll(a.Dir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(a.Dir, name+".wav")
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := pcm.EncodeWAV(f, clip); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return fmt.Errorf("clip archive: %w", err)
	}
	return f.Close()
}
