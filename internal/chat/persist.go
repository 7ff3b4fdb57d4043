package chat

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// transcriptFileName stores the legacy single-session transcript.
const transcriptFileName = "chat_history.json"

// transcriptFile persists the unattached transcript so a restart resumes
// the legacy single-session chat. Attached conversations are server-owned
// and never stored here.
type transcriptFile struct {
	path string
}

func newTranscriptFile(dataDir string) *transcriptFile {
	return &transcriptFile{path: filepath.Join(dataDir, transcriptFileName)}
}

// load reads the persisted transcript; a missing file yields nil, nil.
func (t *transcriptFile) load() ([]Message, error) {
	data, err := os.ReadFile(t.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading transcript file: %w", err)
	}

	var messages []Message
	if err := json.Unmarshal(data, &messages); err != nil {
		return nil, fmt.Errorf("parsing transcript file: %w", err)
	}
	return messages, nil
}

// save writes the transcript atomically (temp file + rename).
func (t *transcriptFile) save(messages []Message) error {
	data, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("encoding transcript: %w", err)
	}

	tmp := t.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("writing transcript file: %w", err)
	}
	if err := os.Rename(tmp, t.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replacing transcript file: %w", err)
	}
	return nil
}

// clear removes the persisted transcript. Idempotent.
func (t *transcriptFile) clear() error {
	if err := os.Remove(t.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing transcript file: %w", err)
	}
	return nil
}
