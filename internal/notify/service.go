package notify

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"conveyor/internal/config"
	"conveyor/internal/logging"
)

// Type classifies a notification for presentation.
type Type string

const (
	TypeSuccess Type = "success"
	TypeError   Type = "error"
	TypeWarning Type = "warning"
	TypeInfo    Type = "info"
)

// Category groups notifications for forwarding filters.
type Category string

const (
	CategoryGeneral  Category = "general"
	CategoryPipeline Category = "pipeline"
	CategoryStep     Category = "step"
	CategoryError    Category = "error"
)

// Notification is one active notice.
type Notification struct {
	ID         string        `json:"id"`
	Type       Type          `json:"type"`
	Category   Category      `json:"category"`
	Title      string        `json:"title"`
	Message    string        `json:"message"`
	Persistent bool          `json:"persistent"`
	Duration   time.Duration `json:"duration"`
	CreatedAt  time.Time     `json:"createdAt"`
}

// Options describes a notification to show. Zero values fall back to
// service defaults; Persistent left nil follows the per-type default
// (errors persist, everything else auto-dismisses).
type Options struct {
	Type       Type
	Category   Category
	Title      string
	Message    string
	Persistent *bool
	Duration   time.Duration
}

// Service fans notifications out to subscribers and tracks the active set.
// Two notices with identical content are independent: each Show call
// generates a fresh id.
type Service struct {
	logger          *slog.Logger
	defaultDuration time.Duration

	mu      sync.Mutex
	active  map[string]Notification
	timers  map[string]*time.Timer
	subs    map[int]func(Notification)
	nextSub int
	now     func() time.Time
	newID   func() string
}

// NewService builds a notification service with defaults from config.
func NewService(cfg *config.Config, logger *slog.Logger) *Service {
	duration := time.Duration(defaultDurationMillis(cfg)) * time.Millisecond
	return &Service{
		logger:          logging.NewComponentLogger(logger, "notify"),
		defaultDuration: duration,
		active:          make(map[string]Notification),
		timers:          make(map[string]*time.Timer),
		subs:            make(map[int]func(Notification)),
		now:             time.Now,
		newID:           uuid.NewString,
	}
}

func defaultDurationMillis(cfg *config.Config) int {
	if cfg == nil || cfg.Notifications.DefaultDuration <= 0 {
		return 5000
	}
	return cfg.Notifications.DefaultDuration
}

// Show registers a notification, notifies every current subscriber, and
// schedules auto-dismissal unless the notice is persistent. It returns the
// assigned id.
func (s *Service) Show(opts Options) string {
	notification := Notification{
		ID:        s.newID(),
		Type:      opts.Type,
		Category:  opts.Category,
		Title:     opts.Title,
		Message:   opts.Message,
		Duration:  opts.Duration,
		CreatedAt: s.now(),
	}
	if notification.Type == "" {
		notification.Type = TypeInfo
	}
	if notification.Category == "" {
		notification.Category = CategoryGeneral
	}
	if notification.Duration <= 0 {
		notification.Duration = s.defaultDuration
	}
	if opts.Persistent != nil {
		notification.Persistent = *opts.Persistent
	} else {
		notification.Persistent = notification.Type == TypeError
	}

	s.mu.Lock()
	s.active[notification.ID] = notification
	if !notification.Persistent {
		s.timers[notification.ID] = time.AfterFunc(notification.Duration, func() {
			s.Dismiss(notification.ID)
		})
	}
	subscribers := make([]func(Notification), 0, len(s.subs))
	for _, fn := range s.subs {
		subscribers = append(subscribers, fn)
	}
	s.mu.Unlock()

	for _, fn := range subscribers {
		s.deliver(fn, notification)
	}
	return notification.ID
}

// deliver isolates one subscriber invocation so a panicking callback cannot
// prevent delivery to the rest.
func (s *Service) deliver(fn func(Notification), notification Notification) {
	defer func() {
		if recovered := recover(); recovered != nil {
			s.logger.Warn("notification subscriber panicked",
				logging.Any("panic", recovered),
				logging.String("notification_id", notification.ID))
		}
	}()
	fn(notification)
}

// Dismiss removes a notification if it is still active. Unknown or already
// dismissed ids are ignored.
func (s *Service) Dismiss(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if timer, ok := s.timers[id]; ok {
		timer.Stop()
		delete(s.timers, id)
	}
	delete(s.active, id)
}

// DismissAll clears the active set. Subscribers are not told which ids were
// cleared; they only observe future Show calls.
func (s *Service) DismissAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, timer := range s.timers {
		timer.Stop()
		delete(s.timers, id)
	}
	s.active = make(map[string]Notification)
}

// Subscribe registers a callback for every future Show. The returned
// function removes the subscription.
func (s *Service) Subscribe(fn func(Notification)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Active returns a snapshot of currently active notifications ordered by
// creation time.
func (s *Service) Active() []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Notification, 0, len(s.active))
	for _, notification := range s.active {
		out = append(out, notification)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Success shows a success notice.
func (s *Service) Success(opts Options) string {
	opts.Type = TypeSuccess
	return s.Show(opts)
}

// Error shows an error notice. Errors are persistent unless the caller
// explicitly overrides Persistent.
func (s *Service) Error(opts Options) string {
	opts.Type = TypeError
	if opts.Category == "" {
		opts.Category = CategoryError
	}
	return s.Show(opts)
}

// Warning shows a warning notice.
func (s *Service) Warning(opts Options) string {
	opts.Type = TypeWarning
	return s.Show(opts)
}

// Info shows an informational notice.
func (s *Service) Info(opts Options) string {
	opts.Type = TypeInfo
	return s.Show(opts)
}
