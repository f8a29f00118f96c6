package bus

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// FileBus is the default file-backed Bus implementation. Inboxes
// are single-writer (this bus) and single-reader (the owning agent);
// writes are atomic via a temp-file-then-rename, matching the pattern
// used by the file-backed task store.
type FileBus struct {
	baseDir string
	mu      sync.Mutex
	logger  *zap.Logger
}

// NewFileBus creates a file-backed bus rooted at baseDir
// (<workspace>/<meta>/messages).
func NewFileBus(baseDir string, logger *zap.Logger) (*FileBus, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create message bus dir: %w", err)
	}
	return &FileBus{
		baseDir: baseDir,
		logger:  logger.With(zap.String("component", "message_bus")),
	}, nil
}

func (b *FileBus) inboxDir(agentID string) string {
	return filepath.Join(b.baseDir, agentID)
}

func (b *FileBus) messagePath(agentID, msgID string) string {
	return filepath.Join(b.inboxDir(agentID), msgID+".json")
}

func (b *FileBus) writeAtomic(path string, msg *Message) error {
	data, err := json.MarshalIndent(msg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	return os.Rename(tmp, path)
}

// Send ensures the recipient's inbox exists and writes the message as a
// JSON file named by its id.
func (b *FileBus) Send(msg *Message) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if msg.ID == "" {
		msg.ID = uuid.New().String()[:12]
	}
	if err := os.MkdirAll(b.inboxDir(msg.To), 0o755); err != nil {
		return fmt.Errorf("create inbox for %s: %w", msg.To, err)
	}
	if err := b.writeAtomic(b.messagePath(msg.To, msg.ID), msg); err != nil {
		return err
	}
	b.logger.Debug("message sent", zap.String("from", msg.From), zap.String("to", msg.To), zap.String("type", string(msg.Type)))
	return nil
}

// Receive reads and deserializes every file in the agent's inbox,
// sorted by filename, filtering out read messages when requested.
func (b *FileBus) Receive(agentID string, unreadOnly bool) ([]*Message, error) {
	entries, err := os.ReadDir(b.inboxDir(agentID))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read inbox for %s: %w", agentID, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".json" {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var out []*Message
	for _, name := range names {
		msg, err := b.readMessage(filepath.Join(b.inboxDir(agentID), name))
		if err != nil {
			b.logger.Warn("skipping unreadable message", zap.String("file", name), zap.Error(err))
			continue
		}
		if unreadOnly && msg.Read {
			continue
		}
		out = append(out, msg)
	}
	return out, nil
}

func (b *FileBus) readMessage(path string) (*Message, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// MarkRead sets the read flag on a persisted message. A mark on a
// missing message is a no-op.
func (b *FileBus) MarkRead(agentID, msgID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	path := b.messagePath(agentID, msgID)
	msg, err := b.readMessage(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("mark read %s: %w", msgID, err)
	}
	if msg.Read {
		return nil
	}
	msg.Read = true
	return b.writeAtomic(path, msg)
}

// Broadcast enumerates existing inboxes and sends a copy of the message
// to every recipient whose id is not the sender.
func (b *FileBus) Broadcast(fromAgent string, msgType MessageType, payload map[string]any) error {
	entries, err := os.ReadDir(b.baseDir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("list inboxes: %w", err)
	}
	for _, e := range entries {
		if !e.IsDir() || e.Name() == fromAgent {
			continue
		}
		if err := b.Send(&Message{Type: msgType, From: fromAgent, To: e.Name(), Payload: payload}); err != nil {
			return err
		}
	}
	return nil
}

// GetConversation returns messages where sender and recipient are the
// set {a, b}, sorted by timestamp.
func (b *FileBus) GetConversation(a, b2 string) ([]*Message, error) {
	var out []*Message
	for _, inbox := range []string{a, b2} {
		msgs, err := b.Receive(inbox, false)
		if err != nil {
			return nil, err
		}
		for _, m := range msgs {
			if (m.From == a || m.From == b2) && (m.To == a || m.To == b2) {
				out = append(out, m)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

// Close is a no-op for the file backend; present to satisfy Bus.
func (b *FileBus) Close() error { return nil }
