package memstore

import (
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/lightblue-platform/lightblue_sdk_go/internal/lbapi"
)

// SeedEntry lists the initial documents of one entity.
type SeedEntry struct {
	Entity    string     `json:"entity"`
	Documents []Document `json:"documents"`
}

// LoadSeed reads a JSON array of seed entries from path.
func LoadSeed(path string) ([]SeedEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "memstore: read seed")
	}
	var entries []SeedEntry
	if err := lbapi.API.Unmarshal(data, &entries); err != nil {
		return nil, errors.Wrapf(err, "memstore: decode seed %s", path)
	}
	return entries, nil
}

// Seed appends entries to the store. Documents without an _id get one, and an
// _id already present for the entity is rejected.
func (s *Store) Seed(entries []SeedEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range entries {
		entity := strings.TrimSpace(e.Entity)
		if entity == "" {
			return errors.New("memstore: seed entry missing entity")
		}
		stored := s.entities[entity]
		for _, d := range e.Documents {
			if d == nil {
				return errors.Errorf("memstore: nil document in seed for %s", entity)
			}
			doc := cloneDoc(d)
			if _, ok := doc["_id"]; !ok {
				doc["_id"] = s.newID()
			}
			if indexOf(stored, idOf(doc)) >= 0 {
				return errors.Errorf("memstore: duplicate _id %s in seed for %s", idOf(doc), entity)
			}
			stored = append(stored, doc)
		}
		s.entities[entity] = stored
	}
	return nil
}
