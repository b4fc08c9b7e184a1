package directory

import (
	"context"
	"strings"
	"sync"
)

// InMemoryDirectory resolves organizational reference data from seeded maps.
// All lookups are misses by default; a miss returns an empty id and no error
// because reference lookups must never abort ticket creation.
type InMemoryDirectory struct {
	mu        sync.RWMutex
	users     map[string]string // lowercased email -> user id
	groups    map[string]string // group name -> group id
	locations map[string]string // location name -> location id
}

func NewInMemoryDirectory() *InMemoryDirectory {
	return &InMemoryDirectory{
		users:     make(map[string]string),
		groups:    make(map[string]string),
		locations: make(map[string]string),
	}
}

// SeedUser registers an email -> user id mapping.
func (d *InMemoryDirectory) SeedUser(email, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[strings.ToLower(email)] = id
}

// SeedGroup registers a group name -> id mapping.
func (d *InMemoryDirectory) SeedGroup(name, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.groups[name] = id
}

// SeedLocation registers a location name -> id mapping.
func (d *InMemoryDirectory) SeedLocation(name, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.locations[name] = id
}

func (d *InMemoryDirectory) UserIDByEmail(_ context.Context, email string) (string, error) {
	if email == "" {
		return "", nil
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.users[strings.ToLower(email)], nil
}

func (d *InMemoryDirectory) GroupIDByName(_ context.Context, name string) (string, error) {
	if name == "" {
		return "", nil
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.groups[name], nil
}

func (d *InMemoryDirectory) LocationIDByName(_ context.Context, name string) (string, error) {
	if name == "" {
		return "", nil
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.locations[name], nil
}
