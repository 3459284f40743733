package deploy

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/ardanlabs/fundme/foundation/blockchain/database"
)

// ErrNoDeployment is returned when a contract hasn't been deployed.
var ErrNoDeployment = errors.New("no deployment found")

// Deployment is the record kept for a deployed contract.
type Deployment struct {
	Name    string             `json:"name"`
	Network string             `json:"network"`
	ChainID uint16             `json:"chainId"`
	Address database.AccountID `json:"address"`
	Args    json.RawMessage    `json:"args"`
	Receipt database.Receipt   `json:"receipt"`
}

// Store keeps the deployment records of a network. Records are written as
// one JSON file per contract when the store has a directory.
type Store struct {
	mu      sync.RWMutex
	dir     string
	records map[string]Deployment
}

// NewStore opens the store in the directory and loads the existing
// records. An empty directory keeps the records in memory.
func NewStore(dir string) (*Store, error) {
	s := Store{
		dir:     dir,
		records: make(map[string]Deployment),
	}

	if dir == "" {
		return &s, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, err
	}

	for _, file := range files {
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, err
		}

		var d Deployment
		if err := json.Unmarshal(b, &d); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", file, err)
		}

		s.records[strings.TrimSuffix(filepath.Base(file), ".json")] = d
	}

	return &s, nil
}

// Save records the deployment.
func (s *Store) Save(d Deployment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dir != "" {
		b, err := json.MarshalIndent(d, "", "  ")
		if err != nil {
			return err
		}

		if err := os.WriteFile(filepath.Join(s.dir, d.Name+".json"), b, 0600); err != nil {
			return err
		}
	}

	s.records[d.Name] = d

	return nil
}

// Get returns the deployment of the named contract.
func (s *Store) Get(name string) (Deployment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, exists := s.records[name]
	if !exists {
		return Deployment{}, fmt.Errorf("%w: %s", ErrNoDeployment, name)
	}

	return d, nil
}

// All returns every deployment sorted by name.
func (s *Store) All() []Deployment {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Deployment, 0, len(s.records))
	for _, d := range s.records {
		out = append(out, d)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})

	return out
}
