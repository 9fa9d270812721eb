package services

import (
	"context"

	"teslacam/logger"
	"teslacam/models"
)

// LoadFromFileList assembles events from a flat upload. Each file is placed
// by the first path component naming a category and the component after it
// as the event folder; files outside any category are ignored. Metadata is
// read only after every file has been grouped.
func LoadFromFileList(ctx context.Context, files []UploadedFile) ([]*models.Event, error) {
	log := logger.WithComponent("upload")

	builders := make(map[string]*eventBuilder)
	var order []*eventBuilder

	for _, f := range files {
		rel := f.RelativePath()
		if rel == "" {
			rel = f.Name()
		}
		category, folderName, ok := locateEventFolder(rel)
		if !ok {
			continue
		}

		id := models.EventID(category, folderName)
		b, exists := builders[id]
		if !exists {
			b = newEventBuilder(category, folderName)
			builders[id] = b
			order = append(order, b)
		}

		name := f.Name()
		switch {
		case IsClipFile(name):
			b.addClip(name, f)
		case IsMetadataFile(name):
			b.pending = append(b.pending, f)
		}
	}

	var events []*models.Event
	for _, b := range order {
		for _, mf := range b.pending {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			data, err := readAll(ctx, mf)
			if err != nil {
				b.log.WithError(err).WithField("file", mf.Name()).Warn("Failed to read metadata from upload")
				continue
			}
			b.applyMetadata(mf.Name(), data)
		}
		b.pending = nil

		if event, ok := b.finalize(); ok {
			events = append(events, event)
		}
	}

	log.WithField("files", len(files)).WithField("events", len(events)).Debug("Upload grouped")
	return events, nil
}

// locateEventFolder finds the category component of a relative path and the
// folder name that follows it.
func locateEventFolder(rel string) (models.Category, string, bool) {
	parts := splitRelativePath(rel)
	for i, part := range parts {
		category, ok := models.ParseCategory(part)
		if !ok {
			continue
		}
		if i+1 >= len(parts) {
			return "", "", false
		}
		return category, parts[i+1], true
	}
	return "", "", false
}
