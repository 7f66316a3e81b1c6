// Package session keeps per-visitor state in the database behind a signed
// cookie: the logged-in account, a pending registration draft and flash
// messages.
package session

// Flash levels.
const (
	LevelSuccess = "success"
	LevelError   = "error"
)

// Flash is a one-shot notification shown on the next rendered page.
type Flash struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// RegisterDraft is a rejected registration kept for redisplay. Values never
// hold passwords.
type RegisterDraft struct {
	Values map[string]string   `json:"values"`
	Errors map[string][]string `json:"errors"`
}

// State is the data persisted for one session.
type State struct {
	AccountID     *int64         `json:"account_id,omitempty"`
	RegisterDraft *RegisterDraft `json:"register_draft,omitempty"`
	Flashes       []Flash        `json:"flashes,omitempty"`
}

// Session is the request-scoped handle on a State. It is not safe for
// concurrent use; one request owns it.
type Session struct {
	id       string
	state    State
	stored   bool // a row exists under id
	modified bool
	oldID    string
}

// ID returns the current session id.
func (s *Session) ID() string { return s.id }

// AccountID returns the logged-in account, if any.
func (s *Session) AccountID() (int64, bool) {
	if s.state.AccountID == nil {
		return 0, false
	}
	return *s.state.AccountID, true
}

func (s *Session) SetAccountID(id int64) {
	s.state.AccountID = &id
	s.modified = true
}

func (s *Session) ClearAccount() {
	if s.state.AccountID == nil {
		return
	}
	s.state.AccountID = nil
	s.modified = true
}

// AddFlash queues a message for the next rendered page.
func (s *Session) AddFlash(level, msg string) {
	s.state.Flashes = append(s.state.Flashes, Flash{Level: level, Message: msg})
	s.modified = true
}

// PopFlashes returns the queued messages and clears them.
func (s *Session) PopFlashes() []Flash {
	if len(s.state.Flashes) == 0 {
		return nil
	}
	out := s.state.Flashes
	s.state.Flashes = nil
	s.modified = true
	return out
}

// Draft returns the stored registration draft, or nil.
func (s *Session) Draft() *RegisterDraft {
	return s.state.RegisterDraft
}

func (s *Session) SetDraft(d *RegisterDraft) {
	s.state.RegisterDraft = d
	s.modified = true
}

func (s *Session) ClearDraft() {
	if s.state.RegisterDraft == nil {
		return
	}
	s.state.RegisterDraft = nil
	s.modified = true
}
