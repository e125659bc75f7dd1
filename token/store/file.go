package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/i9smart/go-campaigns-client/apierror"
)

const defaultPollInterval = 500 * time.Millisecond

var _ Store = (*File)(nil)

// File is a Store backed by a single JSON document on disk. It survives
// process restarts and can be shared by several processes pointing at the same
// path: each File polls the document and reports keys that changed underneath
// it, which is how one process notices a login or logout performed by another.
//
// Writes go through a temp file and rename, so a reader never observes a
// half-written document.
type File struct {
	path         string
	pollInterval time.Duration

	mu sync.Mutex
}

// FileOption configures a File store.
type FileOption func(*File)

// WithPollInterval overrides how often Watch re-reads the document.
func WithPollInterval(d time.Duration) FileOption {
	return func(f *File) {
		if d > 0 {
			f.pollInterval = d
		}
	}
}

// NewFile creates a file-backed store at path. The file is created lazily on
// the first write.
func NewFile(path string, opts ...FileOption) *File {
	f := &File{path: path, pollInterval: defaultPollInterval}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

type fileDoc struct {
	AccessToken        string `json:"access_token,omitempty"`
	RefreshToken       string `json:"refresh_token,omitempty"`
	RememberedUsername string `json:"remembered_username,omitempty"`
}

func (f *File) AccessToken(context.Context) (string, error) {
	doc, err := f.read()
	if err != nil {
		return "", err
	}
	return doc.AccessToken, nil
}

func (f *File) RefreshToken(context.Context) (string, error) {
	doc, err := f.read()
	if err != nil {
		return "", err
	}
	return doc.RefreshToken, nil
}

func (f *File) SetTokens(_ context.Context, access, refresh string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.read()
	if err != nil {
		return err
	}
	doc.AccessToken = access
	doc.RefreshToken = refresh
	return f.write(doc)
}

func (f *File) Clear(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.read()
	if err != nil {
		// A corrupt document still has to be clearable, otherwise the session
		// can never be torn down.
		doc = fileDoc{}
	}
	doc.AccessToken = ""
	doc.RefreshToken = ""
	return f.write(doc)
}

func (f *File) RememberedUsername(context.Context) (string, error) {
	doc, err := f.read()
	if err != nil {
		return "", err
	}
	return doc.RememberedUsername, nil
}

func (f *File) SetRememberedUsername(_ context.Context, username string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.read()
	if err != nil {
		return err
	}
	doc.RememberedUsername = username
	return f.write(doc)
}

// Watch polls the document and emits an Event per key whose presence changed
// since the previous poll.
func (f *File) Watch(ctx context.Context) <-chan Event {
	ch := make(chan Event, 16)

	go func() {
		defer close(ch)

		prev, _ := f.read()
		ticker := time.NewTicker(f.pollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				cur, err := f.read()
				if err != nil {
					continue
				}
				for _, e := range diffDocs(prev, cur) {
					select {
					case ch <- e:
					case <-ctx.Done():
						return
					}
				}
				prev = cur
			}
		}
	}()

	return ch
}

func diffDocs(prev, cur fileDoc) []Event {
	var events []Event
	if prev.AccessToken != cur.AccessToken {
		events = append(events, Event{Key: KeyAccessToken, Present: cur.AccessToken != ""})
	}
	if prev.RefreshToken != cur.RefreshToken {
		events = append(events, Event{Key: KeyRefreshToken, Present: cur.RefreshToken != ""})
	}
	if prev.RememberedUsername != cur.RememberedUsername {
		events = append(events, Event{Key: KeyRememberedUsername, Present: cur.RememberedUsername != ""})
	}
	return events
}

func (f *File) read() (fileDoc, error) {
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return fileDoc{}, nil
	}
	if err != nil {
		return fileDoc{}, fmt.Errorf("read token file: %w", err)
	}

	var doc fileDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return fileDoc{}, fmt.Errorf("%w: %s", apierror.ErrTokenFileCorrupt, f.path)
	}
	return doc, nil
}

func (f *File) write(doc fileDoc) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode token file: %w", err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create token dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tokens-*")
	if err != nil {
		return fmt.Errorf("create temp token file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write token file: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("chmod token file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close token file: %w", err)
	}

	if err := os.Rename(tmpName, f.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace token file: %w", err)
	}
	return nil
}
