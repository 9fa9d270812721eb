package services

import (
	"context"
	"fmt"
	"io/fs"
	"path"

	"teslacam/logger"
	"teslacam/models"
)

// LoadFromDirectory walks a TeslaCam root: the category folders, one level
// of event folders beneath each, and the files inside. Unreadable folders
// and files are logged and skipped.
func LoadFromDirectory(ctx context.Context, root fs.FS) ([]*models.Event, error) {
	log := logger.WithComponent("directory")

	rootEntries, err := fs.ReadDir(root, ".")
	if err != nil {
		return nil, fmt.Errorf("read footage root: %w", err)
	}

	var events []*models.Event
	for _, category := range models.Categories {
		dir, ok := findSubdirectory(rootEntries, string(category))
		if !ok {
			continue
		}

		folders, err := fs.ReadDir(root, dir)
		if err != nil {
			log.WithError(err).WithField("category", category).Warn("Failed to read category folder")
			continue
		}

		for _, folder := range folders {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if !folder.IsDir() {
				continue
			}
			event, ok, err := parseEventFolder(ctx, root, category, folder.Name())
			if err != nil {
				return nil, err
			}
			if ok {
				events = append(events, event)
			}
		}
	}
	return events, nil
}

func findSubdirectory(entries []fs.DirEntry, name string) (string, bool) {
	for _, e := range entries {
		if e.Name() == name && e.IsDir() {
			return e.Name(), true
		}
	}
	return "", false
}

func parseEventFolder(ctx context.Context, root fs.FS, category models.Category, folderName string) (*models.Event, bool, error) {
	b := newEventBuilder(category, folderName)
	dir := path.Join(string(category), folderName)

	entries, err := fs.ReadDir(root, dir)
	if err != nil {
		b.log.WithError(err).Warn("Failed to read event folder")
		return nil, false, nil
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, false, err
		}
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		p := path.Join(dir, name)

		switch {
		case IsClipFile(name):
			b.addClip(name, FileSource{FS: root, Path: p})
		case IsMetadataFile(name):
			data, err := fs.ReadFile(root, p)
			if err != nil {
				b.log.WithError(err).WithField("file", name).Warn("Failed to read metadata file")
				continue
			}
			b.applyMetadata(name, data)
		}
	}

	event, ok := b.finalize()
	return event, ok, nil
}
