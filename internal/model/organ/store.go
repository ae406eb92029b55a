package organ

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var embeddedCatalog string

var (
	ErrEmptyCatalog = errors.New("organ catalog is empty")
	ErrDuplicateID  = errors.New("duplicate organ id")
	ErrInvalidEntry = errors.New("invalid organ entry")
)

var colorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// Store exposes organ lookups to handlers and clients.
type Store interface {
	List() []Record
	FindByID(id string) (Record, bool)
}

// Catalog is the immutable organ table. Build it once at start and share the
// pointer; nothing mutates it afterwards.
type Catalog struct {
	items []Record
	index map[string]int
}

type catalogFile struct {
	Organs []Record `yaml:"organs"`
}

// NewCatalog validates records and returns a Catalog holding a private copy.
func NewCatalog(records []Record) (*Catalog, error) {
	if len(records) == 0 {
		return nil, ErrEmptyCatalog
	}

	c := &Catalog{
		items: append([]Record(nil), records...),
		index: make(map[string]int, len(records)),
	}
	for i, rec := range c.items {
		if err := validate(rec); err != nil {
			return nil, err
		}
		if _, dup := c.index[rec.ID]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateID, rec.ID)
		}
		c.index[rec.ID] = i
	}
	return c, nil
}

// Load decodes a YAML catalog document.
func Load(r io.Reader) (*Catalog, error) {
	var file catalogFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil {
		return nil, fmt.Errorf("decode organ catalog: %w", err)
	}
	return NewCatalog(file.Organs)
}

// LoadFile reads a YAML catalog from path.
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open organ catalog: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Default returns the catalog compiled into the binary.
func Default() (*Catalog, error) {
	return Load(strings.NewReader(embeddedCatalog))
}

// List returns the records in display order.
func (c *Catalog) List() []Record {
	return append([]Record(nil), c.items...)
}

// FindByID looks up an organ by identifier.
func (c *Catalog) FindByID(id string) (Record, bool) {
	i, ok := c.index[id]
	if !ok {
		return Record{}, false
	}
	return c.items[i], true
}

// Len returns the number of organs.
func (c *Catalog) Len() int {
	return len(c.items)
}

func validate(rec Record) error {
	switch {
	case strings.TrimSpace(rec.ID) == "":
		return fmt.Errorf("%w: missing id", ErrInvalidEntry)
	case strings.TrimSpace(rec.Name) == "":
		return fmt.Errorf("%w: %s has no name", ErrInvalidEntry, rec.ID)
	case strings.TrimSpace(rec.Description) == "":
		return fmt.Errorf("%w: %s has no description", ErrInvalidEntry, rec.ID)
	case strings.TrimSpace(rec.FunFact) == "":
		return fmt.Errorf("%w: %s has no fun fact", ErrInvalidEntry, rec.ID)
	case rec.Importance < 0 || rec.Importance > 100:
		return fmt.Errorf("%w: %s importance %d outside 0..100", ErrInvalidEntry, rec.ID, rec.Importance)
	case !rec.SoundKind.Valid():
		return fmt.Errorf("%w: %s has unknown sound kind %q", ErrInvalidEntry, rec.ID, rec.SoundKind)
	case !colorPattern.MatchString(rec.Color):
		return fmt.Errorf("%w: %s color %q is not #rrggbb", ErrInvalidEntry, rec.ID, rec.Color)
	}
	return nil
}
