// Package webtest provides a Renderer that records calls instead of
// producing HTML.
package webtest

import (
	"net/http"
	"sync"
)

// Call is one recorded Render invocation.
type Call struct {
	Status int
	Name   string
	Data   map[string]any
}

// Recorder implements web.Renderer.
type Recorder struct {
	mu    sync.Mutex
	Calls []Call
}

func (r *Recorder) Render(w http.ResponseWriter, status int, name string, data map[string]any) error {
	r.mu.Lock()
	r.Calls = append(r.Calls, Call{Status: status, Name: name, Data: data})
	r.mu.Unlock()
	w.WriteHeader(status)
	_, err := w.Write([]byte(name))
	return err
}

// Last returns the most recent call. It panics when nothing was rendered.
func (r *Recorder) Last() Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Calls[len(r.Calls)-1]
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	r.Calls = nil
	r.mu.Unlock()
}
