package cli

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lasselehtinen/elvis/pkg/elvis"
)

// DefaultStateFile is the default name of the session state file
const DefaultStateFile = "state.yaml"

// ErrNotLoggedIn is returned by commands that need a saved session.
var ErrNotLoggedIn = errors.New(`not logged in, run "elvisctl login" first`)

// StoredCookie is a session cookie as kept in the state file
type StoredCookie struct {
	Name  string `yaml:"name"`
	Value string `yaml:"value"`
	Path  string `yaml:"path,omitempty"`
}

// State is the session saved between invocations of the CLI. It lets every
// command reuse the CSRF token and cookies obtained by login.
type State struct {
	// ClientVersion is the version of the client that wrote the file
	ClientVersion string `yaml:"client_version"`
	// Server is the services root the session belongs to
	Server string `yaml:"server"`
	// User is the user that logged in
	User string `yaml:"user"`
	// CSRFToken is sent in the X-CSRF-TOKEN header
	CSRFToken string `yaml:"csrf_token"`
	// Cookies are the session cookies issued by the server
	Cookies []StoredCookie `yaml:"cookies"`
	// LoggedInAt is when the session was created, RFC 3339
	LoggedInAt string `yaml:"logged_in_at"`
}

// GetDefaultStatePath returns the default path for the state file
// It uses the OS-specific config directory (e.g., ~/.config/elvis on Linux)
func GetDefaultStatePath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(configDir, "elvis", DefaultStateFile), nil
}

// NewState captures s for server and user.
func NewState(server, user string, s *elvis.Session) *State {
	st := &State{
		ClientVersion: elvis.Version.String(),
		Server:        server,
		User:          user,
		CSRFToken:     s.CSRFToken(),
		LoggedInAt:    time.Now().UTC().Format(time.RFC3339),
	}
	for _, c := range s.Cookies() {
		st.Cookies = append(st.Cookies, StoredCookie{Name: c.Name, Value: c.Value, Path: c.Path})
	}
	return st
}

// LoadState reads the state file. A missing file yields ErrNotLoggedIn.
func LoadState(file string) (*State, error) {
	yamlStr, err := os.ReadFile(file)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotLoggedIn
		}
		return nil, fmt.Errorf("unable to read state file: %w", err)
	}

	var st State
	if err = yaml.Unmarshal(yamlStr, &st); err != nil {
		return nil, fmt.Errorf("unable to parse state file: %w", err)
	}
	if st.CSRFToken == "" {
		return nil, ErrNotLoggedIn
	}
	return &st, nil
}

// WriteState writes the state to the specified file
func (st *State) WriteState(file string) error {
	if file == "" {
		return errors.New("file path cannot be empty")
	}

	err := os.MkdirAll(filepath.Dir(file), 0o700)
	if err != nil {
		return fmt.Errorf("unable to create state directory: %w", err)
	}

	yamlStr, err := yaml.Marshal(st)
	if err != nil {
		return fmt.Errorf("unable to generate state: %w", err)
	}

	err = os.WriteFile(file, yamlStr, os.FileMode(0600))
	if err != nil {
		return fmt.Errorf("unable to write state file: %w", err)
	}

	return nil
}

// Session rebuilds the session for server. A state written for another
// server or by an incompatible client is rejected.
func (st *State) Session(server string) (*elvis.Session, error) {
	if st.Server != server {
		return nil, fmt.Errorf("saved session belongs to %s, log in to %s again", st.Server, server)
	}
	if !elvis.CompatibleWith(st.ClientVersion) {
		return nil, fmt.Errorf("saved session was written by client %q, log in again", st.ClientVersion)
	}
	cookies := make([]*http.Cookie, 0, len(st.Cookies))
	for _, c := range st.Cookies {
		cookies = append(cookies, &http.Cookie{Name: c.Name, Value: c.Value, Path: c.Path})
	}
	return elvis.RestoreSession(server, st.CSRFToken, cookies)
}

// RemoveState deletes the state file; a missing file is not an error.
func RemoveState(file string) error {
	if err := os.Remove(file); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("unable to remove state file: %w", err)
	}
	return nil
}
