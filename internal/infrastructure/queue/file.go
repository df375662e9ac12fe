package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"carcost-bot/internal/application"
	"carcost-bot/internal/domain"
)

// FileQueue buffers undelivered leads in a single JSON file. Writes go
// through a temp file and rename so a crash never leaves a half-written
// backup. A missing file reads as an empty queue.
type FileQueue struct {
	path string
	mu   sync.Mutex
}

var _ application.LeadQueue = (*FileQueue)(nil)

func NewFileQueue(path string) *FileQueue {
	return &FileQueue{path: path}
}

func (q *FileQueue) Append(ctx context.Context, lead domain.LeadDraft) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	leads, err := q.load()
	if err != nil {
		return err
	}
	for i, l := range leads {
		if l.ID == lead.ID {
			leads[i] = lead
			return q.store(leads)
		}
	}
	return q.store(append(leads, lead))
}

func (q *FileQueue) ListPending(ctx context.Context) ([]domain.LeadDraft, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	leads, err := q.load()
	if err != nil {
		return nil, err
	}
	var pending []domain.LeadDraft
	for _, l := range leads {
		if l.Status == domain.LeadStatusPending {
			pending = append(pending, l)
		}
	}
	return pending, nil
}

func (q *FileQueue) MarkCompleted(ctx context.Context, id string, at time.Time) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	leads, err := q.load()
	if err != nil {
		return err
	}
	for i := range leads {
		if leads[i].ID == id {
			leads[i].Status = domain.LeadStatusCompleted
			leads[i].CompletedAt = &at
			return q.store(leads)
		}
	}
	return fmt.Errorf("lead %s not found", id)
}

func (q *FileQueue) load() ([]domain.LeadDraft, error) {
	data, err := os.ReadFile(q.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read queue: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	var leads []domain.LeadDraft
	if err := json.Unmarshal(data, &leads); err != nil {
		return nil, fmt.Errorf("decode queue: %w", err)
	}
	return leads, nil
}

func (q *FileQueue) store(leads []domain.LeadDraft) error {
	data, err := json.MarshalIndent(leads, "", "  ")
	if err != nil {
		return err
	}
	tmp := q.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(q.path), 0o755); err != nil {
		return fmt.Errorf("create queue dir: %w", err)
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write queue: %w", err)
	}
	if err := os.Rename(tmp, q.path); err != nil {
		return fmt.Errorf("replace queue: %w", err)
	}
	return nil
}
