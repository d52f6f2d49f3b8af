package immutable

import (
	lru "github.com/hashicorp/golang-lru"
)

// ProgramCache stores compiled programs keyed by engine and expression.
// Implementations must be safe for concurrent use.
type ProgramCache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}

// WithProgramCache shares cache between every evaluation of snapshots built
// with the option.
func WithProgramCache(cache ProgramCache) Option {
	return func(cfg *config) {
		cfg.programCache = cache
	}
}

// LRUProgramCache is a bounded ProgramCache evicting the least recently
// used program.
type LRUProgramCache struct {
	programs *lru.Cache
}

// NewLRUProgramCache returns a cache holding at most size programs.
func NewLRUProgramCache(size int) (*LRUProgramCache, error) {
	programs, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &LRUProgramCache{programs: programs}, nil
}

func (c *LRUProgramCache) Get(key string) (any, bool) {
	return c.programs.Get(key)
}

func (c *LRUProgramCache) Set(key string, value any) {
	c.programs.Add(key, value)
}

// Len returns the number of cached programs.
func (c *LRUProgramCache) Len() int {
	return c.programs.Len()
}
