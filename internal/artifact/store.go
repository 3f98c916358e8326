package artifact

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/tactic-tuner/constants"
	"github.com/joseph-ayodele/tactic-tuner/internal/common"
	"github.com/joseph-ayodele/tactic-tuner/internal/llm"
)

// Master is a loaded artifact.
type Master struct {
	Path             string
	Tactic           string
	BaseInstructions string
}

// Store keeps master artifacts as MASTER_<family>.txt under Dir.
type Store struct {
	Dir    string
	Logger *slog.Logger
}

func NewStore(dir string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{Dir: dir, Logger: logger}
}

// Path returns where the artifact of family lives. Family names that would
// escape Dir are rejected.
func (s *Store) Path(family string) (string, error) {
	family = strings.TrimSpace(family)
	if family == "" || family == "." || family == ".." || strings.ContainsAny(family, `/\`) {
		return "", common.InvalidInputErrorf("invalid family name %q", family)
	}
	return filepath.Join(s.Dir, constants.MasterPrefix+family+".txt"), nil
}

// Load reads the artifact of family. ok is false when none exists yet.
func (s *Store) Load(family string) (Master, bool, error) {
	path, err := s.Path(family)
	if err != nil {
		return Master{}, false, err
	}
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Master{}, false, nil
	}
	if err != nil {
		return Master{}, false, common.PersistenceError("read master artifact", err)
	}
	tactic, base := Parse(string(b))
	s.Logger.Info("artifact.load",
		"family", family,
		"path", path,
		"tactic_chars", len(tactic),
		"resumed", tactic != "",
	)
	return Master{Path: path, Tactic: tactic, BaseInstructions: base}, true, nil
}

// Save writes the rendered artifact atomically and returns its path.
func (s *Store) Save(family, tactic, baseInstructions string) (string, error) {
	return s.write(family, Render(tactic, baseInstructions))
}

// SaveSeed writes freshly generated base instructions with no tactic section.
func (s *Store) SaveSeed(family, baseInstructions string) (string, error) {
	return s.write(family, baseInstructions)
}

// Guide returns the optimizer reference guide, or the built-in rule when the
// guide file is absent.
func (s *Store) Guide() string {
	b, err := os.ReadFile(filepath.Join(s.Dir, constants.GuideFile))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.Logger.Warn("artifact.guide.read_failed", "err", err)
		}
		return llm.DefaultGuide
	}
	if g := strings.TrimSpace(string(b)); g != "" {
		return g
	}
	return llm.DefaultGuide
}

func (s *Store) write(family, content string) (string, error) {
	path, err := s.Path(family)
	if err != nil {
		return "", err
	}
	if err := writeAtomic(path, []byte(content)); err != nil {
		s.Logger.Error("artifact.save.failed", "family", family, "path", path, "err", err)
		return "", common.PersistenceError(fmt.Sprintf("write master artifact %s", filepath.Base(path)), err)
	}
	s.Logger.Info("artifact.save", "family", family, "path", path, "bytes", len(content))
	return path, nil
}

// writeAtomic writes to a temp file in the target directory and renames it
// over path, so readers never see a partial artifact.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".tmp-master-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	_ = os.Chmod(tmpPath, 0o644)
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}
