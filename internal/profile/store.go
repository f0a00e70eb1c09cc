package profile

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Store provides durable CRUD for profiles with an in-memory cache keyed by
// id. The cache is shared mutable state across requests; concurrent
// read-modify-write of the same profile is last-write-wins. The mutex guards
// the cache map itself, not document-level consistency.
type Store struct {
	mu          sync.RWMutex
	storage     Storage
	cache       map[string]*Profile
	initialized bool

	log *zap.SugaredLogger

	// now is a hook so tests can pin timestamps and generated ids.
	now func() time.Time
}

// CreateInput carries the caller-supplied fields for a new profile.
// Name and Context are mandatory.
type CreateInput struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Context     *Context `json:"context"`
}

// NewStore builds a Store over the given backend. A nil logger is replaced
// with a no-op logger.
func NewStore(storage Storage, log *zap.SugaredLogger) *Store {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Store{
		storage: storage,
		cache:   make(map[string]*Profile),
		log:     log,
		now:     time.Now,
	}
}

// Initialize ensures the backing location exists and loads every persisted
// record into the cache. Idempotent; a missing location yields an empty
// cache. Individual records that fail to decode are logged and skipped so
// one corrupt document cannot take the whole store down.
func (s *Store) Initialize() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return nil
	}

	if err := s.storage.Init(); err != nil {
		return fmt.Errorf("profile: initialize: %w", err)
	}

	ids, err := s.storage.List()
	if err != nil {
		return fmt.Errorf("profile: initialize: %w", err)
	}
	for _, id := range ids {
		data, err := s.storage.Read(id)
		if err != nil {
			s.log.Warnw("skipping unreadable profile", "id", id, "error", err)
			continue
		}
		p, err := Decode(data)
		if err != nil {
			s.log.Warnw("skipping invalid profile", "id", id, "error", err)
			continue
		}
		s.cache[p.Meta.ID] = p
	}

	s.initialized = true
	s.log.Infow("profile store initialized", "profiles", len(s.cache))
	return nil
}

// Close releases the storage backend.
func (s *Store) Close() error {
	return s.storage.Close()
}

// Create validates the input, assembles a fresh profile document, persists
// it, and caches it. Memory and relationships start empty; version starts at
// 1.0.0.
func (s *Store) Create(input CreateInput) (*Profile, error) {
	if input.Name == "" {
		return nil, fmt.Errorf("%w: profile must have a name", ErrInvalidProfile)
	}
	if input.Context == nil {
		return nil, fmt.Errorf("%w: profile must have a context", ErrInvalidProfile)
	}

	now := s.now()
	p := &Profile{
		Meta: Metadata{
			ID:          GenerateID(input.Name, now),
			Name:        input.Name,
			Description: input.Description,
			Version:     initialVersion,
			Created:     now,
			Updated:     now,
		},
		Context: *input.Context,
		Memory: Memory{
			SuccessfulPrompts: []SuccessRecord{},
		},
		Relationships: Relationships{
			SemanticConnections: map[string][]string{},
			StyleAssociations:   map[string][]string{},
		},
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.cache[p.Meta.ID]; exists {
		return nil, fmt.Errorf("profile: id %q already exists", p.Meta.ID)
	}
	if err := s.persistLocked(p); err != nil {
		return nil, err
	}
	s.cache[p.Meta.ID] = p

	s.log.Infow("created profile", "id", p.Meta.ID, "name", p.Meta.Name)
	return p, nil
}

// Load returns the profile for id, reading through to storage on a cache
// miss. An absent record returns (nil, nil): not found is a normal outcome.
func (s *Store) Load(id string) (*Profile, error) {
	s.mu.RLock()
	if p, ok := s.cache[id]; ok {
		s.mu.RUnlock()
		return p, nil
	}
	s.mu.RUnlock()

	data, err := s.storage.Read(id)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	p, err := Decode(data)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.cache[id] = p
	s.mu.Unlock()
	return p, nil
}

// Update deep-merges a partial document onto the stored profile: nested maps
// merge key by key, arrays and scalars are replaced wholesale. The patch
// version is bumped and the updated timestamp refreshed; id and created are
// immutable and restored if the partial tries to change them.
func (s *Store) Update(id string, partial map[string]any) (*Profile, error) {
	cur, err := s.Load(id)
	if err != nil {
		return nil, err
	}
	if cur == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	curDoc, err := toDocument(cur)
	if err != nil {
		return nil, err
	}
	merged := deepMerge(curDoc, partial)

	data, err := json.Marshal(merged)
	if err != nil {
		return nil, fmt.Errorf("profile: update %s: %w", id, err)
	}
	var next Profile
	if err := json.Unmarshal(data, &next); err != nil {
		return nil, fmt.Errorf("%w: malformed update payload: %v", ErrInvalidProfile, err)
	}

	next.Meta.ID = cur.Meta.ID
	next.Meta.Created = cur.Meta.Created
	next.Meta.Version = bumpPatch(cur.Meta.Version)
	next.Meta.Updated = s.now()

	if err := next.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.persistLocked(&next); err != nil {
		return nil, err
	}
	s.cache[id] = &next

	s.log.Infow("updated profile", "id", id, "version", next.Meta.Version)
	return &next, nil
}

// Delete removes the persisted record and the cache entry. Deleting an
// absent record surfaces the storage error; other cached profiles are
// unaffected either way.
func (s *Store) Delete(id string) error {
	if err := s.storage.Delete(id); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.cache, id)
	s.mu.Unlock()

	s.log.Infow("deleted profile", "id", id)
	return nil
}

// List returns summaries for every cached profile, sorted by id for stable
// output.
func (s *Store) List() []Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summaries := make([]Summary, 0, len(s.cache))
	for _, p := range s.cache {
		summaries = append(summaries, p.Summary())
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].ID < summaries[j].ID })
	return summaries
}

// RecordUsage notes that a profile was applied to a prompt: increments the
// generation counter, stamps last_used, and persists. Callers treat this as
// fire-and-forget; failures are logged and returned but should not abort the
// enhancement pipeline.
func (s *Store) RecordUsage(id string) error {
	p, err := s.Load(id)
	if err != nil {
		s.log.Warnw("record usage failed", "id", id, "error", err)
		return err
	}
	if p == nil {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	p.Memory.UsageStats.TotalGenerations++
	p.Memory.UsageStats.LastUsed = &now
	if err := s.persistLocked(p); err != nil {
		s.log.Warnw("record usage failed", "id", id, "error", err)
		return err
	}
	return nil
}

// RecordSuccess appends a confirmed-good generation to the profile's memory.
// Quality defaults to 8 and feedback to a fixed message when unset. The
// successful_prompts window is capped at 50 with oldest-first eviction, and
// success_rate is recomputed as stored successes over total generations,
// clamped to 100 (success reports can outnumber recorded applications).
func (s *Store) RecordSuccess(id, prompt string, quality int, feedback string) error {
	p, err := s.Load(id)
	if err != nil {
		s.log.Warnw("record success failed", "id", id, "error", err)
		return err
	}
	if p == nil {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	if quality <= 0 {
		quality = defaultQuality
	}
	if feedback == "" {
		feedback = defaultFeedback
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p.Memory.SuccessfulPrompts = append(p.Memory.SuccessfulPrompts, SuccessRecord{
		Prompt:        prompt,
		Timestamp:     s.now(),
		ResultQuality: quality,
		UserFeedback:  feedback,
	})
	if n := len(p.Memory.SuccessfulPrompts); n > maxSuccessfulPrompts {
		p.Memory.SuccessfulPrompts = p.Memory.SuccessfulPrompts[n-maxSuccessfulPrompts:]
	}

	stats := &p.Memory.UsageStats
	if stats.TotalGenerations > 0 {
		rate := float64(len(p.Memory.SuccessfulPrompts)) / float64(stats.TotalGenerations) * 100
		if rate > 100 {
			rate = 100
		}
		stats.SuccessRate = rate
	} else {
		stats.SuccessRate = 0
	}

	if err := s.persistLocked(p); err != nil {
		s.log.Warnw("record success failed", "id", id, "error", err)
		return err
	}
	return nil
}

// persistLocked encodes and writes p. Callers hold s.mu.
func (s *Store) persistLocked(p *Profile) error {
	data, err := Encode(p)
	if err != nil {
		return err
	}
	return s.storage.Write(p.Meta.ID, data)
}

// toDocument converts a profile to its generic JSON document form for
// deep-merge operations.
func toDocument(p *Profile) (map[string]any, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("profile: encode for merge: %w", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("profile: decode for merge: %w", err)
	}
	return doc, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
