// Package testutil provides shared test utilities, mocks, and fixtures
// for testing the find-and-returned client.
package testutil

import (
	"errors"
	"sync"
)

// ErrStoreFailure is returned by FailingStore writes.
var ErrStoreFailure = errors.New("mock: store failure")

// RecordingNavigator implements api.Navigator, recording every
// navigation so tests can assert on redirect targets.
type RecordingNavigator struct {
	mu   sync.Mutex
	path string
	Log  []string
}

// NewRecordingNavigator creates a navigator reporting the given
// current path.
func NewRecordingNavigator(currentPath string) *RecordingNavigator {
	return &RecordingNavigator{path: currentPath}
}

func (n *RecordingNavigator) CurrentPath() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.path
}

// SetPath moves the navigator without recording a navigation, as if
// the user browsed there themselves.
func (n *RecordingNavigator) SetPath(path string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.path = path
}

func (n *RecordingNavigator) Navigate(path string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Log = append(n.Log, path)
	n.path = path
}

// LastNavigation returns the most recent target, or "" when no
// navigation happened.
func (n *RecordingNavigator) LastNavigation() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.Log) == 0 {
		return ""
	}
	return n.Log[len(n.Log)-1]
}

// FailingStore implements storage.Store with failing writes, for
// exercising persistence error paths. Reads always miss.
type FailingStore struct{}

func (FailingStore) Get(string) (string, bool)  { return "", false }
func (FailingStore) Set(string, string) error   { return ErrStoreFailure }
func (FailingStore) Delete(string) error        { return ErrStoreFailure }
func (FailingStore) Clear() error               { return ErrStoreFailure }
