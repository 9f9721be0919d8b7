package jobs

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/hibiken/asynq"
	"github.com/oklog/ulid/v2"
)

const (
	TaskGenerateVariants = "variants:generate"
)

// MediaItem points at the user's upload on Telegram.
type MediaItem struct {
	FileID   string `json:"file_id"`             // Telegram file_id
	FileName string `json:"file_name,omitempty"` // documents only
	MimeType string `json:"mime_type,omitempty"`
	Kind     string `json:"kind"` // "video" or "photo"
}

type GenerateVariantsPayload struct {
	RequestID string    `json:"request_id"`
	ChatID    int64     `json:"chat_id"`
	UserID    int64     `json:"user_id"`
	Item      MediaItem `json:"item"`
	Count     int       `json:"count"` // 1..MAX_VARIANTS
}

// NewGenerateVariantsTask builds the task; an empty RequestID gets a fresh ULID.
// Failed requests are reported to the user, never retried.
func NewGenerateVariantsTask(p GenerateVariantsPayload) (*asynq.Task, error) {
	if p.RequestID == "" {
		p.RequestID = NewRequestID()
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", TaskGenerateVariants, err)
	}
	return asynq.NewTask(TaskGenerateVariants, b, asynq.MaxRetry(0), asynq.Timeout(2*time.Hour)), nil
}

func ParseGenerateVariants(t *asynq.Task) (GenerateVariantsPayload, error) {
	var p GenerateVariantsPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return p, fmt.Errorf("decode %s payload: %w", t.Type(), err)
	}
	if p.Item.FileID == "" {
		return p, fmt.Errorf("decode %s payload: missing file_id", t.Type())
	}
	return p, nil
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
)

// NewRequestID returns a time-ordered ULID.
func NewRequestID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}
