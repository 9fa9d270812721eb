package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"github.com/jinzhu/gorm"
	"github.com/sirupsen/logrus"
	"teslacam/database"
	"teslacam/logger"
	"teslacam/models"
)

// ErrSelectionCancelled reports that no footage was chosen. It is an
// outcome, not a failure.
var ErrSelectionCancelled = errors.New("footage selection cancelled")

const noClipsWarning = "No TeslaCam clips detected in the selected footage."

// Publisher receives a summary of every committed load.
type Publisher interface {
	Publish(topic string, payload interface{}) error
}

// LoadResult describes one finished load.
type LoadResult struct {
	LoadID    string `json:"load_id"`
	Source    string `json:"source"`
	Committed bool   `json:"committed"`
	Stats     Stats  `json:"stats"`
	Warning   string `json:"warning,omitempty"`
}

// LibraryService loads TeslaCam footage and holds the committed collection
// together with the viewer session that refers to it.
type LibraryService struct {
	FootagePath string
	DB          *gorm.DB
	Watcher     *fsnotify.Watcher
	Publisher   Publisher
	NotifyTopic string
	Debounce    time.Duration

	// Last load started wins; older loads finishing later are discarded.
	generation atomic.Uint64

	mu         sync.RWMutex
	collection *Collection
	staging    string
	session    *Session
	playback   *Playback

	log *logrus.Entry
}

func NewLibraryService(footagePath string, db *gorm.DB) *LibraryService {
	return &LibraryService{
		FootagePath: footagePath,
		DB:          db,
		Debounce:    2 * time.Second,
		collection:  MergeAndSort(),
		session:     NewSession(),
		playback:    NewPlayback(),
		log:         logger.WithComponent("library"),
	}
}

// Start runs the initial load and watches the footage folders for changes.
func (s *LibraryService) Start(ctx context.Context) error {
	go func() {
		if _, err := s.Reload(ctx); err != nil && !errors.Is(err, ErrSelectionCancelled) {
			s.log.WithError(err).Error("Initial load failed")
		}
	}()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	s.Watcher = watcher

	if err := watcher.Add(s.FootagePath); err != nil {
		s.log.WithError(err).Warn("Failed to watch footage path")
	}
	// fsnotify is not recursive: watch the category and event folders too.
	for _, category := range models.Categories {
		s.watchTree(filepath.Join(s.FootagePath, string(category)), 1)
	}

	go s.watchLoop(ctx)
	return nil
}

func (s *LibraryService) watchTree(dir string, depth int) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	if err := s.Watcher.Add(dir); err != nil {
		s.log.WithError(err).WithField("dir", dir).Warn("Failed to watch folder")
		return
	}
	if depth == 0 {
		return
	}
	for _, e := range entries {
		if e.IsDir() {
			s.watchTree(filepath.Join(dir, e.Name()), depth-1)
		}
	}
}

func (s *LibraryService) watchLoop(ctx context.Context) {
	var timer *time.Timer
	fire := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case event, ok := <-s.Watcher.Events:
			if !ok {
				return
			}
			if event.Op&fsnotify.Create == fsnotify.Create {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					s.Watcher.Add(event.Name)
				}
			}
			if event.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename|fsnotify.Write) == 0 {
				continue
			}
			// Clips of one event arrive over several seconds; wait for quiet.
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(s.Debounce, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})
		case <-fire:
			if _, err := s.Reload(ctx); err != nil {
				s.log.WithError(err).Error("Reload after change failed")
			}
		case err, ok := <-s.Watcher.Errors:
			if !ok {
				return
			}
			s.log.WithError(err).Warn("Watcher error")
		}
	}
}

// Stop closes the watcher, revokes live media handles and removes staged
// uploads.
func (s *LibraryService) Stop() {
	if s.Watcher != nil {
		s.Watcher.Close()
	}
	s.playback.Release()

	s.mu.Lock()
	staging := s.staging
	s.staging = ""
	s.mu.Unlock()
	s.removeStaging(staging)
}

// Reload scans FootagePath and commits the result.
func (s *LibraryService) Reload(ctx context.Context) (LoadResult, error) {
	if s.FootagePath == "" {
		return LoadResult{}, ErrSelectionCancelled
	}
	gen := s.generation.Add(1)
	start := time.Now()
	s.log.WithField("path", s.FootagePath).Info("Starting full scan")

	events, err := LoadFromDirectory(ctx, os.DirFS(s.FootagePath))
	if err != nil {
		return LoadResult{}, fmt.Errorf("scan %s: %w", s.FootagePath, err)
	}
	res := s.commit(gen, "directory", events, "")
	s.log.WithFields(logrus.Fields{
		"events":   res.Stats.TotalEvents,
		"clips":    res.Stats.TotalClips,
		"duration": time.Since(start).String(),
	}).Info("Scan complete")
	return res, nil
}

// Ingest assembles an uploaded file list and commits the result.
func (s *LibraryService) Ingest(ctx context.Context, files []UploadedFile) (LoadResult, error) {
	return s.IngestStaged(ctx, files, "")
}

// IngestStaged is Ingest for files saved under staging. The library owns
// staging from then on: it is removed once a later load replaces this one,
// or right away when this load fails or is superseded.
func (s *LibraryService) IngestStaged(ctx context.Context, files []UploadedFile, staging string) (LoadResult, error) {
	if len(files) == 0 {
		s.removeStaging(staging)
		return LoadResult{}, ErrSelectionCancelled
	}
	gen := s.generation.Add(1)

	events, err := LoadFromFileList(ctx, files)
	if err != nil {
		s.removeStaging(staging)
		return LoadResult{}, fmt.Errorf("ingest upload: %w", err)
	}
	return s.commit(gen, "upload", events, staging), nil
}

func (s *LibraryService) removeStaging(dir string) {
	if dir == "" {
		return
	}
	if err := os.RemoveAll(dir); err != nil {
		s.log.WithError(err).WithField("dir", dir).Warn("Failed to remove staged upload")
	}
}

func (s *LibraryService) commit(gen uint64, source string, events []*models.Event, staging string) LoadResult {
	collection := MergeAndSort(events)
	res := LoadResult{
		LoadID: uuid.NewString(),
		Source: source,
		Stats:  collection.Stats,
	}
	if collection.Stats.TotalEvents == 0 {
		res.Warning = noClipsWarning
	}
	log := s.log.WithFields(logrus.Fields{"load_id": res.LoadID, "source": source})

	s.mu.Lock()
	if gen != s.generation.Load() {
		s.mu.Unlock()
		log.Info("Discarding superseded load")
		s.removeStaging(staging)
		return res
	}
	s.playback.Release()
	s.session.Prune(collection)
	s.collection = collection
	previous := s.staging
	s.staging = staging
	if s.DB != nil {
		if err := database.ReplaceEvents(s.DB, collection.Events); err != nil {
			log.WithError(err).Error("Failed to rebuild event index")
		}
	}
	s.mu.Unlock()
	s.removeStaging(previous)

	res.Committed = true
	if res.Warning != "" {
		log.Warn(res.Warning)
	}
	if s.Publisher != nil {
		if err := s.Publisher.Publish(s.NotifyTopic, res); err != nil {
			log.WithError(err).Warn("Failed to publish load summary")
		}
	}
	return res
}

// Collection returns the committed collection.
func (s *LibraryService) Collection() *Collection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collection
}

func (s *LibraryService) Session() *Session {
	return s.session
}

func (s *LibraryService) Playback() *Playback {
	return s.playback
}
