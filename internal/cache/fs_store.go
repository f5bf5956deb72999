package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const (
	tempPattern = ".cache-*"
	tempPrefix  = ".cache-"

	// 超过该时长仍未 rename 的临时文件视为崩溃残留。
	staleTempAge = time.Hour
)

// Option 调整 Store 的可选行为。
type Option func(*Store)

// WithClock 替换时钟，测试中用于构造过期场景。
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithHooks 注入事件回调，nil 时保持 NopHooks。
func WithHooks(h Hooks) Option {
	return func(s *Store) {
		if h != nil {
			s.hooks = h
		}
	}
}

// Store 以单个目录保存所有条目，文件名即缓存键。整个进程复用一份实例。
type Store struct {
	dir   string
	now   func() time.Time
	hooks Hooks

	mu    sync.Mutex
	locks map[string]*entryLock
}

// entryLock 串行化同一 key 的读删与写入，避免过期删除误删刚写入的新条目。
type entryLock struct {
	mu   sync.Mutex
	refs int
}

// NewStore 解析缓存目录的绝对路径。目录在第一次 Save 时才创建。
func NewStore(dir string, opts ...Option) (*Store, error) {
	if dir == "" {
		return nil, errors.New("cache dir required")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve cache dir: %w", err)
	}

	s := &Store{
		dir:   abs,
		now:   time.Now,
		hooks: NopHooks{},
		locks: make(map[string]*entryLock),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Dir 返回缓存目录的绝对路径。
func (s *Store) Dir() string {
	return s.dir
}

// Save 将 value 包装成 Envelope 并原子写入。任何失败只会通知 Hooks。
func (s *Store) Save(key string, value any, ttl time.Duration) {
	if err := s.save(key, value, ttl); err != nil {
		s.hooks.WriteFailed(key, err)
		return
	}
	s.hooks.Stored(key)
}

func (s *Store) save(key string, value any, ttl time.Duration) error {
	filePath, err := s.entryPath(key)
	if err != nil {
		return err
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode value: %w", err)
	}
	payload, err := json.Marshal(newEnvelope(data, s.now(), ttl))
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}

	unlock := s.lockEntry(key)
	defer unlock()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	tempFile, err := os.CreateTemp(s.dir, tempPattern)
	if err != nil {
		return err
	}
	tempName := tempFile.Name()

	_, err = tempFile.Write(payload)
	closeErr := tempFile.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tempName)
		return err
	}

	if err := os.Rename(tempName, filePath); err != nil {
		os.Remove(tempName)
		return err
	}
	return nil
}

// Load 读取 key 对应的条目并解码到 dst。不存在、损坏、类型不匹配或过期时
// 返回 false；后三种情况会删除文件。
func (s *Store) Load(key string, dst any) bool {
	filePath, err := s.entryPath(key)
	if err != nil {
		return false
	}

	unlock := s.lockEntry(key)
	defer unlock()

	raw, err := os.ReadFile(filePath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.hooks.ReadFailed(key, err)
		}
		return false
	}

	env, err := decodeEnvelope(raw)
	if err != nil {
		s.evict(key, filePath, ReasonCorrupt)
		return false
	}
	if IsNull(env.Data) {
		s.evict(key, filePath, ReasonDecode)
		return false
	}
	if err := json.Unmarshal(env.Data, dst); err != nil {
		s.evict(key, filePath, ReasonDecode)
		return false
	}
	if env.Expired(s.now()) {
		s.evict(key, filePath, ReasonExpired)
		return false
	}

	s.hooks.Hit(key)
	return true
}

// Get 是 Load 的泛型封装。
func Get[T any](s *Store, key string) (T, bool) {
	var value T
	if !s.Load(key, &value) {
		var zero T
		return zero, false
	}
	return value, true
}

// Remove 删除条目，不存在时为空操作。
func (s *Store) Remove(key string) {
	filePath, err := s.entryPath(key)
	if err != nil {
		return
	}
	unlock := s.lockEntry(key)
	defer unlock()

	if err := os.Remove(filePath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.hooks.ReadFailed(key, err)
	}
}

// Sweep 扫描缓存目录，只解析信封元数据，删除过期或无法解析的条目，
// 同时清理超过 staleTempAge 的残留临时文件。目录不存在或不可读时直接返回。
func (s *Store) Sweep() SweepStats {
	var stats SweepStats

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.hooks.ReadFailed("", err)
		}
		return stats
	}

	for _, item := range entries {
		name := item.Name()
		if item.IsDir() {
			continue
		}
		if strings.HasPrefix(name, tempPrefix) {
			if s.removeStaleTemp(item) {
				stats.StaleTemps++
			}
			continue
		}
		if strings.HasPrefix(name, ".") {
			continue
		}
		stats.Scanned++

		switch s.sweepEntry(name) {
		case ReasonExpired:
			stats.Expired++
		case ReasonCorrupt:
			stats.Corrupt++
		default:
			stats.Kept++
		}
	}
	return stats
}

// sweepEntry 返回被删除的原因，保留时返回空串。
func (s *Store) sweepEntry(key string) string {
	filePath := filepath.Join(s.dir, key)

	unlock := s.lockEntry(key)
	defer unlock()

	raw, err := os.ReadFile(filePath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.hooks.ReadFailed(key, err)
		}
		return ""
	}

	env, err := decodeEnvelope(raw)
	if err != nil {
		s.evict(key, filePath, ReasonCorrupt)
		return ReasonCorrupt
	}
	if env.Expired(s.now()) {
		s.evict(key, filePath, ReasonExpired)
		return ReasonExpired
	}
	return ""
}

// removeStaleTemp 删除 Save 中途崩溃留下的临时文件，仍可能在写入中的文件保持不动。
func (s *Store) removeStaleTemp(item fs.DirEntry) bool {
	info, err := item.Info()
	if err != nil {
		return false
	}
	if s.now().Sub(info.ModTime()) <= staleTempAge {
		return false
	}
	if err := os.Remove(filepath.Join(s.dir, item.Name())); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.hooks.ReadFailed(item.Name(), err)
		}
		return false
	}
	return true
}

// evict 删除文件并通知 Hooks，调用方需持有 key 的锁。
func (s *Store) evict(key, filePath, reason string) {
	if err := os.Remove(filePath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.hooks.ReadFailed(key, err)
		return
	}
	s.hooks.Evicted(key, reason)
}

func decodeEnvelope(raw []byte) (Envelope, error) {
	var h header
	if err := json.Unmarshal(raw, &h); err != nil {
		return Envelope{}, err
	}
	return h.envelope()
}

func (s *Store) lockEntry(key string) func() {
	s.mu.Lock()
	lock := s.locks[key]
	if lock == nil {
		lock = &entryLock{}
		s.locks[key] = lock
	}
	lock.refs++
	s.mu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()
		s.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(s.locks, key)
		}
		s.mu.Unlock()
	}
}

// entryPath 校验 key 只能是单层文件名，防止写出缓存目录。
func (s *Store) entryPath(key string) (string, error) {
	if key == "" || strings.HasPrefix(key, ".") || strings.ContainsAny(key, `/\`) {
		return "", fmt.Errorf("%w: %q", errInvalidKey, key)
	}
	return filepath.Join(s.dir, key), nil
}
