package pattern

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/fsnotify.v1"
	"gopkg.in/yaml.v3"

	"github.com/coolbeans/qcmbank/internal/logger"
)

// Registry manages a collection of dialect profiles.
type Registry interface {
	// Register adds a profile to the registry
	Register(profile *Profile) error

	// Unregister removes a profile from the registry
	Unregister(profileID string) error

	// Get returns a profile by its ID
	Get(profileID string) (*Profile, bool)

	// List returns all registered profiles ordered by ID
	List() []*Profile

	// Reload reloads all profiles from the configured directory
	Reload() error

	// Watch starts watching the profile directory for changes
	Watch() error

	// StopWatch stops watching the profile directory
	StopWatch()

	// LoadDirectory loads all profiles from a directory
	LoadDirectory(dir string) error

	// LoadFile loads a single profile file
	LoadFile(path string) error
}

// DefaultRegistry is the default implementation of Registry.
type DefaultRegistry struct {
	mu       sync.RWMutex
	profiles map[string]*Profile
	files    map[string]string // file path -> profile ID
	dir      string
	watcher  *fsnotify.Watcher
	stopChan chan struct{}
	onChange func(event string, profile *Profile)
	log      *logger.Logger
}

// NewRegistry creates an empty profile registry.
func NewRegistry() *DefaultRegistry {
	return &DefaultRegistry{
		profiles: make(map[string]*Profile),
		files:    make(map[string]string),
		log:      logger.Nop(),
	}
}

// NewRegistryWithDirectory creates a registry and loads profiles from dir.
func NewRegistryWithDirectory(dir string, log *logger.Logger) (*DefaultRegistry, error) {
	r := NewRegistry()
	if log != nil {
		r.log = log
	}
	if err := r.LoadDirectory(dir); err != nil {
		return nil, err
	}
	return r, nil
}

// Register adds a profile. Registering the same ID again replaces the
// profile only when the version differs.
func (r *DefaultRegistry) Register(profile *Profile) error {
	if profile == nil {
		return fmt.Errorf("profile cannot be nil")
	}

	if err := profile.Validate(); err != nil {
		return fmt.Errorf("invalid profile: %w", err)
	}

	if !profile.IsCompiled() {
		if err := profile.Compile(); err != nil {
			return fmt.Errorf("compiling profile %q: %w", profile.ProfileID, err)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.profiles[profile.ProfileID]; ok && existing.Version == profile.Version {
		return fmt.Errorf("profile %q version %s already registered", profile.ProfileID, profile.Version)
	}

	r.profiles[profile.ProfileID] = profile
	return nil
}

// Unregister removes a profile from the registry.
func (r *DefaultRegistry) Unregister(profileID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.profiles[profileID]; !ok {
		return fmt.Errorf("profile %q not found", profileID)
	}
	delete(r.profiles, profileID)
	for path, id := range r.files {
		if id == profileID {
			delete(r.files, path)
		}
	}
	return nil
}

// Get returns a profile by its ID.
func (r *DefaultRegistry) Get(profileID string) (*Profile, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	profile, ok := r.profiles[profileID]
	return profile, ok
}

// List returns all registered profiles ordered by ID.
func (r *DefaultRegistry) List() []*Profile {
	r.mu.RLock()
	defer r.mu.RUnlock()

	profiles := make([]*Profile, 0, len(r.profiles))
	for _, p := range r.profiles {
		profiles = append(profiles, p)
	}
	sort.Slice(profiles, func(i, j int) bool {
		return profiles[i].ProfileID < profiles[j].ProfileID
	})
	return profiles
}

// Count returns the number of registered profiles.
func (r *DefaultRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.profiles)
}

// LoadDirectory loads all YAML profile files from a directory. A missing
// directory is not an error.
func (r *DefaultRegistry) LoadDirectory(dir string) error {
	r.dir = dir

	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("checking directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading directory %s: %w", dir, err)
	}

	var loadErrors []string
	for _, entry := range entries {
		if entry.IsDir() || !isYAML(entry.Name()) {
			continue
		}
		if err := r.LoadFile(filepath.Join(dir, entry.Name())); err != nil {
			loadErrors = append(loadErrors, fmt.Sprintf("%s: %v", entry.Name(), err))
		}
	}

	if len(loadErrors) > 0 {
		return fmt.Errorf("errors loading profiles: %s", strings.Join(loadErrors, "; "))
	}
	return nil
}

// LoadFile loads a single profile file.
func (r *DefaultRegistry) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading file: %w", err)
	}

	var profile Profile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return fmt.Errorf("parsing YAML: %w", err)
	}

	if err := r.Register(&profile); err != nil {
		return fmt.Errorf("registering profile: %w", err)
	}

	r.mu.Lock()
	r.files[path] = profile.ProfileID
	r.mu.Unlock()
	return nil
}

// Reload reloads all profiles from the configured directory.
func (r *DefaultRegistry) Reload() error {
	if r.dir == "" {
		return fmt.Errorf("no directory configured for reload")
	}

	r.Clear()
	return r.LoadDirectory(r.dir)
}

// SetOnChange sets a callback invoked after a watched profile changes.
func (r *DefaultRegistry) SetOnChange(fn func(event string, profile *Profile)) {
	r.onChange = fn
}

// Watch starts watching the profile directory for changes.
func (r *DefaultRegistry) Watch() error {
	if r.dir == "" {
		return fmt.Errorf("no directory configured for watching")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}

	if err := watcher.Add(r.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watching directory %s: %w", r.dir, err)
	}

	r.watcher = watcher
	r.stopChan = make(chan struct{})
	go r.watchLoop(watcher, r.stopChan)

	r.log.Info("watching profiles", "dir", r.dir)
	return nil
}

func (r *DefaultRegistry) watchLoop(watcher *fsnotify.Watcher, stop chan struct{}) {
	for {
		select {
		case <-stop:
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !isYAML(event.Name) {
				continue
			}

			switch {
			case event.Op&fsnotify.Create == fsnotify.Create:
				r.handleFileChange(event.Name, "create")
			case event.Op&fsnotify.Write == fsnotify.Write:
				r.handleFileChange(event.Name, "modify")
			case event.Op&fsnotify.Remove == fsnotify.Remove,
				event.Op&fsnotify.Rename == fsnotify.Rename:
				r.handleFileRemove(event.Name)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			r.log.Warn("profile watcher error", "error", err)
		}
	}
}

func (r *DefaultRegistry) handleFileChange(path string, eventType string) {
	// Edits usually keep the version number.
	r.forgetFile(path)

	if err := r.LoadFile(path); err != nil {
		r.log.Warn("failed to load profile", "path", path, "error", err)
		return
	}

	r.mu.RLock()
	profile := r.profiles[r.files[path]]
	r.mu.RUnlock()
	if profile == nil {
		return
	}

	r.log.Info("profile loaded", "path", path, "profile", profile.ProfileID, "event", eventType)
	if r.onChange != nil {
		r.onChange(eventType, profile)
	}
}

func (r *DefaultRegistry) handleFileRemove(path string) {
	profile := r.forgetFile(path)
	if profile == nil {
		return
	}
	r.log.Info("profile removed", "path", path, "profile", profile.ProfileID)
	if r.onChange != nil {
		r.onChange("remove", profile)
	}
}

// forgetFile unregisters the profile that was loaded from path, if any.
func (r *DefaultRegistry) forgetFile(path string) *Profile {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.files[path]
	if !ok {
		return nil
	}
	profile := r.profiles[id]
	delete(r.profiles, id)
	delete(r.files, path)
	return profile
}

// StopWatch stops watching the profile directory.
func (r *DefaultRegistry) StopWatch() {
	if r.stopChan != nil {
		close(r.stopChan)
		r.stopChan = nil
	}
	if r.watcher != nil {
		r.watcher.Close()
		r.watcher = nil
	}
}

// Clear removes all profiles from the registry.
func (r *DefaultRegistry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles = make(map[string]*Profile)
	r.files = make(map[string]string)
}

func isYAML(name string) bool {
	return strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")
}
