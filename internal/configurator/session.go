// Package configurator owns the live configuration of one product line in
// one session. Every mutation recomputes the derived fields through the
// pricing package, writes the record through to the state backend, appends
// a changelog event and notifies subscribers.
package configurator

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dlclark/regexp2"
	"github.com/gofiber/fiber/v2/log"

	"hydrakit/internal/changelog"
	"hydrakit/internal/metrics"
	"hydrakit/internal/model"
	"hydrakit/internal/registry"
	"hydrakit/internal/state"
)

var (
	ErrInvalidSession         = errors.New("invalid session id")
	ErrUnknownValveSetup      = errors.New("unknown valve setup")
	ErrUnknownOperation       = errors.New("unknown operation type")
	ErrNoValveSetup           = errors.New("valve setup not chosen")
	ErrIncompatibleOperation  = errors.New("operation type not supported by valve setup")
	ErrUnknownCircuit         = errors.New("unknown circuit option")
	ErrCircuitNotOffered      = errors.New("circuit option not offered for this setup")
	ErrUnknownAddon           = errors.New("unknown add-on")
	ErrAddonNotSelected       = errors.New("add-on not selected")
	ErrUnknownSubOption       = errors.New("unknown sub-option")
	ErrUnknownStep            = errors.New("step does not accept this action")
	ErrUnknownComponent       = errors.New("unknown component")
	ErrNotRequiredUnavailable = errors.New("component cannot be marked not required")
	ErrInvalidEquipment       = errors.New("invalid equipment")
)

// Session ids are opaque tokens such as UUIDs; anything that could break
// the '#'-separated key layout is refused.
var sessionIDPattern = regexp2.MustCompile(`^(?=.{8,64}$)[A-Za-z0-9](?:[A-Za-z0-9_-])*$`, regexp2.None)

func ValidSessionID(id string) bool {
	ok, err := sessionIDPattern.MatchString(id)
	return err == nil && ok
}

// Key is the state backend key of a session's configuration record.
func Key(sessionID string, line model.ProductLine) string {
	return sessionID + "#" + string(line)
}

// UIKey is the key of the session-scoped UI record (reminder position).
func UIKey(sessionID string, line model.ProductLine) string {
	return Key(sessionID, line) + "#ui"
}

// Deps are the collaborators shared by every store. Store and Registry are
// required; the rest may be left nil.
type Deps struct {
	Store     state.Store
	Changelog changelog.Writer
	Registry  *registry.Registry
	Metrics   *metrics.Registry
	Now       func() time.Time
}

// session is the persistence core shared by both product-line stores.
type session struct {
	id    string
	line  model.ProductLine
	key   string
	uiKey string
	deps  Deps

	// backend is swapped for an in-memory store after the first failed write
	backend  state.Store
	degraded bool
}

func newSession(id string, line model.ProductLine, d Deps) (*session, error) {
	if !ValidSessionID(id) {
		return nil, fmt.Errorf("%q: %w", id, ErrInvalidSession)
	}
	if d.Store == nil || d.Registry == nil {
		return nil, errors.New("configurator: store and registry are required")
	}
	if d.Changelog == nil {
		d.Changelog = changelog.Discard{}
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return &session{
		id:      id,
		line:    line,
		key:     Key(id, line),
		uiKey:   UIKey(id, line),
		deps:    d,
		backend: d.Store,
	}, nil
}

// load decodes the stored record into cfg and returns the record's seq.
// It reports false, leaving cfg to the caller's defaults, when the record
// is absent, corrupt or of another schema version.
func (s *session) load(cfg any, version func() int) (int64, bool) {
	rec, ok := s.backend.Get(s.key)
	if !ok {
		return 0, false
	}
	if err := json.Unmarshal(rec.Value, cfg); err != nil {
		log.Warnf("configurator: discarding corrupt record %s: %v", s.key, err)
		return rec.Seq, false
	}
	if v := version(); v != model.SchemaVersion {
		log.Warnf("configurator: discarding record %s with schema version %d", s.key, v)
		return rec.Seq, false
	}
	return rec.Seq, true
}

// persist writes cfg through and appends the changelog event. Failures
// never reach the caller: a failed write switches the session to memory.
func (s *session) persist(op changelog.Op, mutation string, seq int64, total float64, cfg any) {
	b, err := json.Marshal(cfg)
	if err != nil {
		log.Errorf("configurator: encode %s: %v", s.key, err)
		return
	}
	applied, _, err := s.backend.Apply(s.key, b, seq)
	if err != nil {
		s.degrade(err)
		if _, _, err := s.backend.Apply(s.key, b, seq); err != nil {
			log.Errorf("configurator: in-memory write %s: %v", s.key, err)
		}
	} else if !applied {
		log.Warnf("configurator: stale write to %s at seq %d ignored by backend", s.key, seq)
	}

	if m := s.deps.Metrics; m != nil {
		m.Mutations.WithLabelValues(string(s.line), mutation).Inc()
		m.QuoteValue.WithLabelValues(string(s.line)).Observe(total)
	}

	e := changelog.Event{
		Key:    s.key,
		Seq:    seq,
		Op:     op,
		Line:   s.line,
		Total:  total,
		TS:     s.deps.Now().UTC().UnixMilli(),
		Config: b,
	}
	if err := s.deps.Changelog.Append(e); err != nil {
		log.Warnf("configurator: changelog append %s seq %d: %v", s.key, seq, err)
		if m := s.deps.Metrics; m != nil {
			m.ChangelogFailed.Inc()
		}
	} else if m := s.deps.Metrics; m != nil {
		m.ChangelogAppended.Inc()
	}
}

func (s *session) degrade(err error) {
	if s.degraded {
		return
	}
	log.Warnf("configurator: session %s degraded to memory after write failure: %v", s.key, err)
	mem := state.NewInMemoryStore()
	if rec, ok := s.backend.Get(s.uiKey); ok {
		_ = mem.Put(s.uiKey, rec.Value)
	}
	s.backend = mem
	s.degraded = true
	if m := s.deps.Metrics; m != nil {
		m.WriteFailures.Inc()
		m.DegradedSessions.Inc()
	}
}

func (s *session) rejected(mutation string) {
	if m := s.deps.Metrics; m != nil {
		m.Rejected.WithLabelValues(string(s.line), mutation).Inc()
	}
}

func (s *session) reminder() (model.ReminderPosition, bool) {
	rec, ok := s.backend.Get(s.uiKey)
	if !ok {
		return model.ReminderPosition{}, false
	}
	var pos model.ReminderPosition
	if err := json.Unmarshal(rec.Value, &pos); err != nil {
		return model.ReminderPosition{}, false
	}
	return pos, true
}

func (s *session) setReminder(pos model.ReminderPosition) {
	b, err := json.Marshal(pos)
	if err != nil {
		return
	}
	if err := s.backend.Put(s.uiKey, b); err != nil {
		s.degrade(err)
		_ = s.backend.Put(s.uiKey, b)
	}
}

func (s *session) clearUI() {
	if err := s.backend.Delete(s.uiKey); err != nil {
		log.Warnf("configurator: delete %s: %v", s.uiKey, err)
	}
}

// listeners is a set of subscriber callbacks.
type listeners[T any] struct {
	mu   sync.Mutex
	next int
	fns  map[int]func(T)
}

func (l *listeners[T]) add(fn func(T)) func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fns == nil {
		l.fns = make(map[int]func(T))
	}
	id := l.next
	l.next++
	l.fns[id] = fn
	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.fns, id)
			l.mu.Unlock()
		})
	}
}

func (l *listeners[T]) notify(v T) {
	l.mu.Lock()
	fns := make([]func(T), 0, len(l.fns))
	for _, fn := range l.fns {
		fns = append(fns, fn)
	}
	l.mu.Unlock()
	for _, fn := range fns {
		fn(v)
	}
}
