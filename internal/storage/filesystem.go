// Package storage keeps uploaded documents and their extraction artifacts
// in a single directory on the local filesystem.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"pdf-chatbot-backend/internal/model"
	"pdf-chatbot-backend/internal/pkg/filename"
)

const tempPrefix = ".tmp-"

var (
	ErrNotFound   = errors.New("object not found")
	ErrInvalidKey = errors.New("invalid storage key")
)

type Store struct {
	dir string
}

// StagedFile is an upload written to a temporary name inside the store.
type StagedFile struct {
	Path string
	Size int64
}

// New returns a store rooted at dir, creating the directory if needed.
func New(dir string) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("storage dir is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir failed: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) Dir() string {
	return s.dir
}

// Stage copies r into a temporary file in the store. The caller either
// commits it under a document id or discards it.
func (s *Store) Stage(ctx context.Context, r io.Reader) (StagedFile, error) {
	if err := ctx.Err(); err != nil {
		return StagedFile{}, err
	}
	f, err := os.CreateTemp(s.dir, tempPrefix+"upload-*")
	if err != nil {
		return StagedFile{}, fmt.Errorf("create staged file failed: %w", err)
	}
	size, err := io.Copy(f, r)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(f.Name())
		return StagedFile{}, fmt.Errorf("write staged file failed: %w", err)
	}
	return StagedFile{Path: f.Name(), Size: size}, nil
}

// Discard removes a staged file that will not be committed.
func (s *Store) Discard(staged StagedFile) {
	if staged.Path != "" {
		_ = os.Remove(staged.Path)
	}
}

// StageArtifact encodes content into a temporary file in the store.
func (s *Store) StageArtifact(ctx context.Context, content model.ExtractedContent) (StagedFile, error) {
	if err := ctx.Err(); err != nil {
		return StagedFile{}, err
	}
	f, err := os.CreateTemp(s.dir, tempPrefix+"artifact-*")
	if err != nil {
		return StagedFile{}, fmt.Errorf("create artifact failed: %w", err)
	}
	enc := json.NewEncoder(f)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	err = enc.Encode(content)
	var size int64
	if err == nil {
		size, err = f.Seek(0, io.SeekCurrent)
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(f.Name())
		return StagedFile{}, fmt.Errorf("write artifact failed: %w", err)
	}
	return StagedFile{Path: f.Name(), Size: size}, nil
}

// WriteArtifact stores the extracted content for documentID and returns the
// artifact's file name.
func (s *Store) WriteArtifact(ctx context.Context, documentID string, content model.ExtractedContent) (string, error) {
	staged, err := s.StageArtifact(ctx, content)
	if err != nil {
		return "", err
	}
	name := filename.Artifact(documentID)
	target, err := s.path(name)
	if err != nil {
		s.Discard(staged)
		return "", err
	}
	if err := os.Rename(staged.Path, target); err != nil {
		s.Discard(staged)
		return "", fmt.Errorf("commit artifact failed: %w", err)
	}
	return name, nil
}

// Publish moves a staged upload and its staged artifact into place for
// documentID, replacing any previous pair, and returns the artifact name.
// When the artifact cannot be moved the previous raw file is put back, so
// the raw file and artifact on disk always belong to the same upload.
func (s *Store) Publish(raw, artifact StagedFile, documentID string) (string, error) {
	rawTarget, err := s.path(documentID)
	if err != nil {
		return "", err
	}
	artifactName := filename.Artifact(documentID)
	artifactTarget, err := s.path(artifactName)
	if err != nil {
		return "", err
	}

	backup := ""
	if _, err := os.Lstat(rawTarget); err == nil {
		backup = filepath.Join(s.dir, tempPrefix+"backup-"+strings.TrimPrefix(filepath.Base(raw.Path), tempPrefix))
		if err := os.Rename(rawTarget, backup); err != nil {
			return "", fmt.Errorf("back up %s failed: %w", documentID, err)
		}
	}
	restore := func() {
		if backup != "" {
			_ = os.Rename(backup, rawTarget)
		}
	}

	if err := os.Rename(raw.Path, rawTarget); err != nil {
		restore()
		return "", fmt.Errorf("commit %s failed: %w", documentID, err)
	}
	if err := os.Rename(artifact.Path, artifactTarget); err != nil {
		if backup == "" {
			_ = os.Remove(rawTarget)
		}
		restore()
		return "", fmt.Errorf("commit %s failed: %w", artifactName, err)
	}
	if backup != "" {
		_ = os.Remove(backup)
	}
	return artifactName, nil
}

// ReadArtifact loads the extracted content stored for documentID.
func (s *Store) ReadArtifact(ctx context.Context, documentID string) (model.ExtractedContent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := s.path(filename.Artifact(documentID))
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read artifact failed: %w", err)
	}
	var content model.ExtractedContent
	if err := json.Unmarshal(raw, &content); err != nil {
		return nil, fmt.Errorf("decode artifact failed: %w", err)
	}
	return content, nil
}

// List returns every stored document that has an extraction artifact,
// sorted by document id.
func (s *Store) List(ctx context.Context) ([]model.DocumentInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list storage dir failed: %w", err)
	}

	present := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		present[e.Name()] = struct{}{}
	}

	docs := make([]model.DocumentInfo, 0)
	for _, e := range entries {
		name := e.Name()
		if !e.Type().IsRegular() || strings.HasPrefix(name, tempPrefix) || filepath.Ext(name) == filename.ArtifactExt {
			continue
		}
		artifact := filename.Artifact(name)
		if _, ok := present[artifact]; !ok {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		docs = append(docs, model.DocumentInfo{
			DocumentID:   name,
			ArtifactName: artifact,
			SizeBytes:    info.Size(),
			UpdatedAt:    info.ModTime().UTC(),
		})
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].DocumentID < docs[j].DocumentID })
	return docs, nil
}

func (s *Store) path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return "", ErrInvalidKey
	}
	return filepath.Join(s.dir, name), nil
}
