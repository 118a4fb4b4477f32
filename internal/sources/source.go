package sources

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"newsreel/internal/queue"
	"newsreel/internal/services"
)

// Story is the raw material for one video.
type Story struct {
	ID      string
	Article string
	Images  []string
}

// Source lists and fetches stories.
type Source interface {
	List(ctx context.Context) ([]string, error)
	Fetch(ctx context.Context, id string) (*Story, error)
}

var imageExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
}

// LocalDir reads stories from synced folders under a root directory. Each
// story is a subdirectory holding article.txt and its images.
type LocalDir struct {
	Root string
}

// List returns the story folder names that contain an article.
func (l LocalDir) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(l.Root)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "sync", "list", fmt.Sprintf("read source root %s", l.Root), err)
	}
	var ids []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		articlePath := filepath.Join(l.Root, entry.Name(), "article.txt")
		if _, err := os.Stat(articlePath); err == nil {
			ids = append(ids, entry.Name())
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// Fetch reads one story folder.
func (l LocalDir) Fetch(ctx context.Context, id string) (*Story, error) {
	dir := filepath.Join(l.Root, id)
	article, err := os.ReadFile(filepath.Join(dir, "article.txt"))
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "sync", "fetch", fmt.Sprintf("read article for %s", id), err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "sync", "fetch", fmt.Sprintf("read story dir %s", dir), err)
	}
	var images []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if _, ok := imageExtensions[ext]; ok {
			images = append(images, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(images)

	return &Story{
		ID:      id,
		Article: strings.TrimSpace(string(article)),
		Images:  images,
	}, nil
}

// StoreSource reads stories from the document store.
type StoreSource struct {
	Store *queue.Store
}

// List returns all stored story identifiers, oldest first.
func (s StoreSource) List(ctx context.Context) ([]string, error) {
	stories, err := s.Store.ListStories(ctx)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "sync", "list", "list stories", err)
	}
	ids := make([]string, 0, len(stories))
	for _, story := range stories {
		ids = append(ids, story.ID)
	}
	return ids, nil
}

// Fetch reads one stored story.
func (s StoreSource) Fetch(ctx context.Context, id string) (*Story, error) {
	story, err := s.Store.GetStory(ctx, id)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "sync", "fetch", fmt.Sprintf("get story %s", id), err)
	}
	if story == nil {
		return nil, services.Wrap(services.ErrValidation, "sync", "fetch", fmt.Sprintf("story %s not found", id), nil)
	}
	return &Story{
		ID:      story.ID,
		Article: strings.TrimSpace(story.ArticleText),
		Images:  append([]string(nil), story.ImagePaths...),
	}, nil
}
