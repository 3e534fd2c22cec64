package attendance

import (
	"io"
	"os"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Kind is the role a status plays when folding a student's classes into a day status.
// Kinds are ordered by precedence: the greatest one wins.
type Kind int

const (
	KindPresent Kind = iota
	KindExcused
	KindTardy
	KindAbsent
)

var kindNames = map[Kind]string{
	KindPresent: "PRESENT",
	KindExcused: "EXCUSED",
	KindTardy:   "TARDY",
	KindAbsent:  "ABSENT",
}

// defaultKinds maps well-known status codes to their kind. Unknown codes count as present.
var defaultKinds = map[string]Kind{
	"ABSENT":    KindAbsent,
	"TARDY":     KindTardy,
	"LATE":      KindTardy,
	"EXCUSED":   KindExcused,
	"JUSTIFIED": KindExcused,
	"PRESENT":   KindPresent,
}

var ErrInvalidKind = errors.New("invalid status kind")

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return kindNames[KindPresent]
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText accepts kind names and the well-known code aliases (LATE, JUSTIFIED), in any case.
func (k *Kind) UnmarshalText(text []byte) error {
	kind, ok := defaultKinds[strings.ToUpper(strings.TrimSpace(string(text)))]
	if !ok {
		return errors.Wrapf(ErrInvalidKind, "%q", text)
	}
	*k = kind
	return nil
}

// KindOfCode returns the default kind of a status code.
func KindOfCode(code string) Kind {
	return defaultKinds[strings.ToUpper(strings.TrimSpace(code))] // zero value is KindPresent
}

// Catalog is the ordered, runtime-configurable list of attendance statuses.
type Catalog struct {
	statuses []Status
	byCode   map[string]int
	byID     map[int64]int
}

// NewCatalog builds a Catalog ordered by (Order, ID). Codes are upper-cased.
// The kind of a status is, by priority: `explicitKinds`, its StoredKind, the default kind of its code.
func NewCatalog(statuses []Status, explicitKinds ...map[string]Kind) *Catalog {
	var kinds map[string]Kind
	if len(explicitKinds) > 0 {
		kinds = explicitKinds[0]
	}

	c := &Catalog{
		statuses: make([]Status, 0, len(statuses)),
		byCode:   make(map[string]int, len(statuses)),
		byID:     make(map[int64]int, len(statuses)),
	}
	for _, s := range statuses {
		s.Code = strings.ToUpper(strings.TrimSpace(s.Code))
		s.Kind = KindOfCode(s.Code)
		if s.StoredKind.Valid {
			var k Kind
			if err := k.UnmarshalText([]byte(s.StoredKind.String)); err == nil {
				s.Kind = k
			}
		}
		if k, ok := kinds[s.Code]; ok {
			s.Kind = k
		}
		c.statuses = append(c.statuses, s)
	}
	sort.SliceStable(c.statuses, func(i, j int) bool {
		if c.statuses[i].Order != c.statuses[j].Order {
			return c.statuses[i].Order < c.statuses[j].Order
		}
		return c.statuses[i].ID < c.statuses[j].ID
	})
	c.reindex()
	return c
}

// DefaultCatalog is used when no status is configured.
func DefaultCatalog() *Catalog {
	return NewCatalog([]Status{
		{ID: 1, Code: "PRESENT", Name: "Present", Order: 1, IsActive: true},
		{ID: 2, Code: "TARDY", Name: "Tardy", Order: 2, IsActive: true},
		{ID: 3, Code: "EXCUSED", Name: "Excused", Order: 3, IsActive: true},
		{ID: 4, Code: "ABSENT", Name: "Absent", Order: 4, IsActive: true},
	})
}

func (c *Catalog) reindex() {
	c.byCode = make(map[string]int, len(c.statuses))
	c.byID = make(map[int64]int, len(c.statuses))
	for i, s := range c.statuses {
		if _, dup := c.byCode[s.Code]; !dup {
			c.byCode[s.Code] = i
		}
		c.byID[s.ID] = i
	}
}

func (c *Catalog) Statuses() []Status {
	out := make([]Status, len(c.statuses))
	copy(out, c.statuses)
	return out
}

func (c *Catalog) Status(code string) (Status, bool) {
	i, ok := c.byCode[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return Status{}, false
	}
	return c.statuses[i], true
}

func (c *Catalog) StatusByID(id int64) (Status, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Status{}, false
	}
	return c.statuses[i], true
}

// KindOf returns the kind of a status code, falling back to its default kind for codes missing from
// the catalog (e.g. deactivated then deleted statuses still referenced by old rows).
func (c *Catalog) KindOf(code string) Kind {
	if s, ok := c.Status(code); ok {
		return s.Kind
	}
	return KindOfCode(code)
}

// CatalogOverrides tweak the stored catalog, usually from a YAML file:
//
//	statuses:
//	  - code: LEFT_EARLY
//	    kind: tardy
//	  - code: SICK
//	    kind: excused
//	    order: 3
type CatalogOverrides struct {
	Statuses []StatusOverride `yaml:"statuses"`
}

type StatusOverride struct {
	Code     string `yaml:"code"`
	Name     string `yaml:"name"`
	Kind     *Kind  `yaml:"kind"`
	Order    *int   `yaml:"order"`
	IsActive *bool  `yaml:"is_active"`
}

// LoadCatalogOverrides decodes YAML CatalogOverrides. Unknown keys are rejected.
func LoadCatalogOverrides(r io.Reader) (CatalogOverrides, error) {
	var ov CatalogOverrides
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&ov); err != nil && err != io.EOF {
		return CatalogOverrides{}, errors.Wrap(err, "decoding catalog overrides")
	}
	for _, s := range ov.Statuses {
		if strings.TrimSpace(s.Code) == "" {
			return CatalogOverrides{}, errors.New("catalog overrides: status without code")
		}
	}
	return ov, nil
}

// LoadCatalogOverridesFile reads CatalogOverrides from `path`; an empty path means no overrides.
func LoadCatalogOverridesFile(path string) (CatalogOverrides, error) {
	if path == "" {
		return CatalogOverrides{}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return CatalogOverrides{}, errors.Wrap(err, "opening catalog overrides")
	}
	defer func() { _ = f.Close() }()
	return LoadCatalogOverrides(f)
}

// WithOverrides returns a copy of the catalog with `ov` applied. Overrides of codes missing from
// the catalog are ignored: statuses are only created in the database.
func (c *Catalog) WithOverrides(ov CatalogOverrides) *Catalog {
	out := &Catalog{statuses: c.Statuses()}
	for _, o := range ov.Statuses {
		i, ok := c.byCode[strings.ToUpper(strings.TrimSpace(o.Code))]
		if !ok {
			continue
		}
		s := &out.statuses[i]
		if o.Name != "" {
			s.Name = o.Name
		}
		if o.Kind != nil {
			s.Kind = *o.Kind
		}
		if o.Order != nil {
			s.Order = *o.Order
		}
		if o.IsActive != nil {
			s.IsActive = *o.IsActive
		}
	}
	sort.SliceStable(out.statuses, func(i, j int) bool {
		if out.statuses[i].Order != out.statuses[j].Order {
			return out.statuses[i].Order < out.statuses[j].Order
		}
		return out.statuses[i].ID < out.statuses[j].ID
	})
	out.reindex()
	return out
}
