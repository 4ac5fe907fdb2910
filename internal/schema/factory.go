package schema

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
	gormschema "gorm.io/gorm/schema"

	"github.com/oncotrace/oncotrace-backend/internal/observability"
)

// Variant selects which derived contract a schema represents.
type Variant string

const (
	VariantRead   Variant = "read"
	VariantCreate Variant = "create"
	VariantFilter Variant = "filter"
)

// Schema is one derived data contract of a model: an ordered set of field
// specs plus the ORM metadata the marshaller and filter renderer work
// against.
type Schema struct {
	Name             string
	Variant          Variant
	Model            reflect.Type
	Table            string
	Fields           []*FieldSpec
	AnonymizedFields []string
	AnonymizationKey string

	byJSON map[string]*FieldSpec
	orm    *gormschema.Schema
}

// Field looks a spec up by its envelope name.
func (s *Schema) Field(name string) (*FieldSpec, bool) {
	spec, ok := s.byJSON[name]
	return spec, ok
}

// ORM exposes the parsed gorm schema backing this contract.
func (s *Schema) ORM() *gormschema.Schema { return s.orm }

// New returns a pointer to a zero instance of the model.
func (s *Schema) New() any { return reflect.New(s.Model).Interface() }

// NewSlice returns a pointer to an empty slice of the model, for list
// queries.
func (s *Schema) NewSlice() any {
	return reflect.New(reflect.SliceOf(s.Model)).Interface()
}

// CustomField declares a computed envelope field backed by a resolver
// rather than a column.
type CustomField struct {
	Name        string
	Kind        FieldKind
	Description string
	Resolver    ResolverFn
}

type buildConfig struct {
	variant    Variant
	name       string
	depth      int
	fields     map[string]bool
	exclude    map[string]bool
	expand     map[string]bool
	optional   map[string]bool
	custom     []CustomField
	resolvers  map[string]ResolverFn
	anonFields []string
	anonKey    string
}

func (c buildConfig) selected(name string) bool {
	if c.exclude[name] {
		return false
	}
	if len(c.fields) > 0 && !c.fields[name] {
		return false
	}
	return true
}

func (c buildConfig) expanded(name string) bool { return c.expand[name] }

// Option tunes one schema derivation.
type Option func(*buildConfig)

func WithName(name string) Option { return func(c *buildConfig) { c.name = name } }

func WithFields(names ...string) Option {
	return func(c *buildConfig) {
		for _, n := range names {
			c.fields[n] = true
		}
	}
}

func WithExclude(names ...string) Option {
	return func(c *buildConfig) {
		for _, n := range names {
			c.exclude[n] = true
		}
	}
}

func WithExpand(names ...string) Option {
	return func(c *buildConfig) {
		for _, n := range names {
			c.expand[n] = true
		}
	}
}

func WithOptional(names ...string) Option {
	return func(c *buildConfig) {
		for _, n := range names {
			c.optional[n] = true
		}
	}
}

func WithDepth(depth int) Option { return func(c *buildConfig) { c.depth = depth } }

func WithCustomField(fields ...CustomField) Option {
	return func(c *buildConfig) { c.custom = append(c.custom, fields...) }
}

// WithResolver overrides the read resolver of one envelope field.
func WithResolver(name string, fn ResolverFn) Option {
	return func(c *buildConfig) { c.resolvers[name] = fn }
}

// WithAnonymization declares the redacted fields and the key field whose
// value seeds deterministic date perturbation.
func WithAnonymization(keyField string, fields ...string) Option {
	return func(c *buildConfig) {
		c.anonKey = keyField
		c.anonFields = append(c.anonFields, fields...)
	}
}

// Factory derives and caches schemas. The cache is process-global and
// append-only; concurrent derivation of the same fingerprint yields the
// same instance.
type Factory struct {
	mu    sync.RWMutex
	cache map[string]*Schema
	names map[string]string // registered schema name -> fingerprint
	group singleflight.Group

	parseCache *sync.Map
	namer      gormschema.Namer
}

func NewFactory() *Factory {
	return &Factory{
		cache:      map[string]*Schema{},
		names:      map[string]string{},
		parseCache: &sync.Map{},
		namer:      gormschema.NamingStrategy{},
	}
}

// Read derives the full read contract of a model, resolvers bound.
func (f *Factory) Read(model any, opts ...Option) (*Schema, error) {
	return f.build(model, VariantRead, opts)
}

// Create derives the write contract: primary key, generated and read-only
// fields excluded, no resolvers.
func (f *Factory) Create(model any, opts ...Option) (*Schema, error) {
	return f.build(model, VariantCreate, opts)
}

// Filter derives the contract the filter catalog expands into query
// predicates.
func (f *Factory) Filter(model any, opts ...Option) (*Schema, error) {
	return f.build(model, VariantFilter, opts)
}

func (f *Factory) build(model any, variant Variant, opts []Option) (*Schema, error) {
	cfg := buildConfig{
		variant:   variant,
		depth:     1,
		fields:    map[string]bool{},
		exclude:   map[string]bool{},
		expand:    map[string]bool{},
		optional:  map[string]bool{},
		resolvers: map[string]ResolverFn{},
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	modelType := reflect.TypeOf(model)
	for modelType.Kind() == reflect.Pointer {
		modelType = modelType.Elem()
	}
	key := fingerprint(modelType, cfg)

	f.mu.RLock()
	cached, ok := f.cache[key]
	f.mu.RUnlock()
	if ok {
		return cached, nil
	}

	result, err, _ := f.group.Do(key, func() (any, error) {
		f.mu.RLock()
		cached, ok := f.cache[key]
		f.mu.RUnlock()
		if ok {
			return cached, nil
		}

		gs, err := gormschema.Parse(model, f.parseCache, f.namer)
		if err != nil {
			return nil, fmt.Errorf("schema: parse %s: %w", modelType, err)
		}
		fields, err := f.buildFields(gs, cfg)
		if err != nil {
			return nil, err
		}

		s := &Schema{
			Variant:          variant,
			Model:            modelType,
			Table:            gs.Table,
			Fields:           fields,
			AnonymizedFields: cfg.anonFields,
			AnonymizationKey: cfg.anonKey,
			byJSON:           make(map[string]*FieldSpec, len(fields)),
			orm:              gs,
		}
		for _, spec := range fields {
			s.byJSON[spec.JSON] = spec
		}

		f.mu.Lock()
		s.Name = f.registerName(cfg.name, modelType, variant, key)
		f.cache[key] = s
		f.mu.Unlock()

		observability.Current().ObserveSchemaDerivation(string(variant))
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*Schema), nil
}

// registerName claims a unique schema name, suffixing on collision with a
// differently-fingerprinted schema. Callers hold f.mu.
func (f *Factory) registerName(name string, model reflect.Type, variant Variant, key string) string {
	if name == "" {
		v := string(variant)
		name = model.Name() + strings.ToUpper(v[:1]) + v[1:]
	}
	candidate := name
	for i := 2; ; i++ {
		owner, taken := f.names[candidate]
		if !taken || owner == key {
			f.names[candidate] = key
			return candidate
		}
		candidate = name + strconv.Itoa(i)
	}
}

// fingerprint renders the canonical cache key of one derivation.
func fingerprint(model reflect.Type, cfg buildConfig) string {
	var b strings.Builder
	b.WriteString(model.PkgPath())
	b.WriteByte('.')
	b.WriteString(model.Name())
	b.WriteByte('|')
	b.WriteString(string(cfg.variant))
	b.WriteByte('|')
	b.WriteString(cfg.name)
	b.WriteByte('|')
	b.WriteString(strconv.Itoa(cfg.depth))
	for _, part := range []map[string]bool{cfg.fields, cfg.exclude, cfg.expand, cfg.optional} {
		b.WriteByte('|')
		b.WriteString(strings.Join(sortedKeys(part), ","))
	}
	b.WriteByte('|')
	names := make([]string, 0, len(cfg.custom))
	for _, c := range cfg.custom {
		names = append(names, c.Name)
	}
	sort.Strings(names)
	b.WriteString(strings.Join(names, ","))
	b.WriteByte('|')
	b.WriteString(cfg.anonKey)
	b.WriteByte('|')
	b.WriteString(strings.Join(cfg.anonFields, ","))
	return b.String()
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
