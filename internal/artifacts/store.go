// Package artifacts persists the fitted scaler and trained models of one
// training run under a base directory, together with a YAML manifest.
package artifacts

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/debnathsouvik2005/IoT-Precision-Irrigation-system-Team-CTRL-ALT-DEL/internal/ml"
	"github.com/debnathsouvik2005/IoT-Precision-Irrigation-system-Team-CTRL-ALT-DEL/internal/models"
)

// Artifact file names. The manifest sits in the store directory; the model
// files live in versions/<version>/ next to it.
const (
	ScalerFile   = "scaler.json"
	TabularFile  = "tabular_model.json"
	SequenceFile = "sequence_model.json"
	ManifestFile = "manifest.yaml"
	VersionsDir  = "versions"
)

// SchemaVersion is bumped whenever the persisted layout changes
const SchemaVersion = 2

// Manifest describes the artifacts written by one training run
type Manifest struct {
	Version       string             `yaml:"version"`
	SchemaVersion int                `yaml:"schema_version"`
	CreatedAt     time.Time          `yaml:"created_at"`
	FeatureNames  []string           `yaml:"feature_names"`
	Window        int                `yaml:"window"`
	HasSequence   bool               `yaml:"has_sequence"`
	Tabular       *ml.TabularReport  `yaml:"tabular,omitempty"`
	Sequence      *ml.SequenceReport `yaml:"sequence,omitempty"`
	Model         ml.ModelInfo       `yaml:"model"`
}

// Bundle groups the artifacts the predictor needs
type Bundle struct {
	Manifest *Manifest
	Scaler   *ml.Scaler
	Tabular  *ml.TabularRegressor
	Sequence *ml.SequenceModel
}

// Version returns the manifest version, empty when unknown
func (b *Bundle) Version() string {
	if b == nil || b.Manifest == nil {
		return ""
	}
	return b.Manifest.Version
}

// envelope tags every artifact file with the run that produced it
type envelope struct {
	Version       string          `json:"version"`
	SchemaVersion int             `json:"schema_version"`
	Payload       json.RawMessage `json:"payload"`
}

// Store reads and writes artifacts under a base directory
type Store struct {
	dir        string
	logger     *zap.Logger
	newVersion func() string
}

// NewStore creates a store rooted at dir
func NewStore(dir string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		dir:        dir,
		logger:     logger.Named("artifacts"),
		newVersion: uuid.NewString,
	}
}

// Dir returns the base directory
func (s *Store) Dir() string {
	return s.dir
}

// Save writes the bundle under a fresh version id and returns it. The
// model files go to their own version directory and are synced before
// manifest.yaml is renamed into place, so the manifest switch is the only
// step that changes what Load returns. A failed save leaves the previous
// version loadable. Older version directories are pruned after the switch.
func (s *Store) Save(b *Bundle) (string, error) {
	if b == nil || !b.Scaler.Fitted() {
		return "", fmt.Errorf("save artifacts: %w", models.ErrNotFitted)
	}
	if !b.Tabular.Trained() {
		return "", fmt.Errorf("save artifacts: %w", models.ErrNotTrained)
	}

	manifest := Manifest{
		Version:       s.newVersion(),
		SchemaVersion: SchemaVersion,
		CreatedAt:     time.Now().UTC(),
		FeatureNames:  models.FeatureNames[:],
		Model:         b.Tabular.GetModelInfo(),
	}
	if b.Manifest != nil {
		manifest.Tabular = b.Manifest.Tabular
		manifest.Sequence = b.Manifest.Sequence
	}
	if b.Sequence.Trained() {
		manifest.HasSequence = true
		manifest.Window = b.Sequence.Window()
	}

	if err := s.commit(&manifest, b); err != nil {
		if rmErr := os.RemoveAll(s.versionDir(manifest.Version)); rmErr != nil {
			s.logger.Warn("Failed to remove partial artifacts", zap.String("version", manifest.Version), zap.Error(rmErr))
		}
		return "", err
	}

	s.pruneVersions(manifest.Version)

	s.logger.Info("Saved model artifacts",
		zap.String("dir", s.dir),
		zap.String("version", manifest.Version),
		zap.Bool("sequence", manifest.HasSequence),
		zap.Int("trees", manifest.Model.NumTrees),
		zap.Int("depth", manifest.Model.Depth),
	)
	return manifest.Version, nil
}

// commit writes the version directory, then switches the manifest to it
func (s *Store) commit(m *Manifest, b *Bundle) error {
	if err := s.writeVersion(m, b); err != nil {
		return err
	}
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	if err := writeFileAtomic(filepath.Join(s.dir, ManifestFile), data); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	if err := syncDir(s.dir); err != nil {
		s.logger.Warn("Failed to sync artifact dir", zap.Error(err))
	}
	return nil
}

// writeVersion writes the model files of one version into its directory
func (s *Store) writeVersion(m *Manifest, b *Bundle) error {
	dir := s.versionDir(m.Version)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}

	if err := s.writeArtifact(ScalerFile, m.Version, b.Scaler); err != nil {
		return err
	}
	if err := s.writeArtifact(TabularFile, m.Version, b.Tabular); err != nil {
		return err
	}
	if m.HasSequence {
		if err := s.writeArtifact(SequenceFile, m.Version, b.Sequence); err != nil {
			return err
		}
	}

	if err := syncDir(dir); err != nil {
		return fmt.Errorf("sync artifact dir: %w", err)
	}
	return nil
}

// pruneVersions removes every version directory except keep. Failures are
// logged; the new version is already committed.
func (s *Store) pruneVersions(keep string) {
	root := filepath.Join(s.dir, VersionsDir)
	entries, err := os.ReadDir(root)
	if err != nil {
		s.logger.Warn("Failed to list artifact versions", zap.Error(err))
		return
	}
	for _, e := range entries {
		if e.Name() == keep {
			continue
		}
		if err := os.RemoveAll(filepath.Join(root, e.Name())); err != nil {
			s.logger.Warn("Failed to remove old artifacts", zap.String("version", e.Name()), zap.Error(err))
		}
	}
}

func (s *Store) versionDir(version string) string {
	return filepath.Join(s.dir, VersionsDir, version)
}

func (s *Store) artifactPath(version, name string) string {
	return filepath.Join(s.versionDir(version), name)
}

func (s *Store) writeArtifact(name, version string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}
	data, err := json.Marshal(envelope{
		Version:       version,
		SchemaVersion: SchemaVersion,
		Payload:       payload,
	})
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}
	if err := writeFileAtomic(s.artifactPath(version, name), data); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// Load reads every artifact it can. The returned bundle is never nil; the
// error joins one *models.ArtifactError per artifact that could not be used.
func (s *Store) Load() (*Bundle, error) {
	b := &Bundle{}

	manifest, err := s.loadManifest()
	if err != nil {
		return b, err
	}
	b.Manifest = manifest

	var errs []error

	scaler := &ml.Scaler{}
	if err := s.readArtifact(ScalerFile, manifest.Version, scaler); err != nil {
		errs = append(errs, err)
	} else if scaler.Dim() != models.NumFeatures {
		errs = append(errs, &models.ArtifactError{
			Artifact: ScalerFile,
			Kind:     models.ArtifactCorrupt,
			Err:      fmt.Errorf("scaler has %d features, expected %d", scaler.Dim(), models.NumFeatures),
		})
	} else {
		b.Scaler = scaler
	}

	tabular := ml.NewTabularRegressor(ml.DefaultForestConfig(), s.logger)
	if err := s.readArtifact(TabularFile, manifest.Version, tabular); err != nil {
		errs = append(errs, err)
	} else {
		b.Tabular = tabular
	}

	if manifest.HasSequence {
		sequence := ml.NewSequenceModel(ml.DefaultSequenceConfig(), models.NumFeatures, s.logger)
		if err := s.readArtifact(SequenceFile, manifest.Version, sequence); err != nil {
			errs = append(errs, err)
		} else {
			b.Sequence = sequence
		}
	}

	if err := errors.Join(errs...); err != nil {
		return b, err
	}

	s.logger.Info("Loaded model artifacts",
		zap.String("dir", s.dir),
		zap.String("version", manifest.Version),
		zap.Bool("sequence", b.Sequence != nil),
	)
	return b, nil
}

func (s *Store) loadManifest() (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, ManifestFile))
	if err != nil {
		return nil, readError(ManifestFile, err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, &models.ArtifactError{Artifact: ManifestFile, Kind: models.ArtifactCorrupt, Err: err}
	}
	if m.Version == "" {
		return nil, &models.ArtifactError{
			Artifact: ManifestFile,
			Kind:     models.ArtifactCorrupt,
			Err:      fmt.Errorf("manifest has no version"),
		}
	}
	if m.SchemaVersion != SchemaVersion {
		return nil, &models.ArtifactError{
			Artifact: ManifestFile,
			Kind:     models.ArtifactVersionMismatch,
			Err:      fmt.Errorf("schema version %d, expected %d", m.SchemaVersion, SchemaVersion),
		}
	}
	if !sameFeatures(m.FeatureNames) {
		return nil, &models.ArtifactError{
			Artifact: ManifestFile,
			Kind:     models.ArtifactVersionMismatch,
			Err:      fmt.Errorf("feature order %v does not match %v", m.FeatureNames, models.FeatureNames),
		}
	}
	return &m, nil
}

func (s *Store) readArtifact(name, version string, v any) error {
	data, err := os.ReadFile(s.artifactPath(version, name))
	if err != nil {
		return readError(name, err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return &models.ArtifactError{Artifact: name, Kind: models.ArtifactCorrupt, Err: err}
	}
	if env.Version != version || env.SchemaVersion != SchemaVersion {
		return &models.ArtifactError{
			Artifact: name,
			Kind:     models.ArtifactVersionMismatch,
			Err:      fmt.Errorf("artifact version %s (schema %d), manifest version %s", env.Version, env.SchemaVersion, version),
		}
	}
	if err := json.Unmarshal(env.Payload, v); err != nil {
		return &models.ArtifactError{Artifact: name, Kind: models.ArtifactCorrupt, Err: err}
	}
	return nil
}

func readError(name string, err error) error {
	kind := models.ArtifactCorrupt
	if errors.Is(err, os.ErrNotExist) {
		kind = models.ArtifactMissing
	}
	return &models.ArtifactError{Artifact: name, Kind: kind, Err: err}
}

func sameFeatures(names []string) bool {
	if len(names) != models.NumFeatures {
		return false
	}
	for i, name := range names {
		if name != models.FeatureNames[i] {
			return false
		}
	}
	return true
}

// writeFileAtomic writes data to a temporary file in the same directory and
// renames it over path.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	return d.Sync()
}
