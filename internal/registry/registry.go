package registry

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"courier/internal/target"
)

// Descriptor is one statically registered builtin implementation source.
// Params: stable name and plugin constructor.
// Returns: discovery table entry replacing filesystem module scanning.
type Descriptor struct {
	Name  string
	Build func() target.Plugin
}

// module tracks provenance for one loaded implementation.
// Params: implementation object plus native/custom origin metadata.
// Returns: bookkeeping record for reload and unregister.
type module struct {
	name       string
	plugin     target.Plugin
	native     bool
	funcName   string
	defaultURL string
}

// Registry maps URL schemas to target implementations.
// Params: builtin discovery table and optional logger.
// Returns: explicit context object guarding all mutation with one mutex.
type Registry struct {
	mu       sync.Mutex
	logger   *slog.Logger
	builtins []Descriptor
	scanned  bool
	modules  map[string]*module
	schemas  map[string]*module
	// disabled tracks schemas this registry disabled itself, so
	// EnableOnly never re-enables implementations turned off for
	// unrelated reasons.
	disabled map[string]struct{}
}

// Option mutates optional registry settings.
// Params: registry under construction.
// Returns: applied option side effect.
type Option func(*Registry)

// WithBuiltins installs the static discovery table.
// Params: descriptor list scanned lazily on first use.
// Returns: option installing the table.
func WithBuiltins(table []Descriptor) Option {
	return func(r *Registry) { r.builtins = table }
}

// WithLogger attaches a logger for conflict and discovery diagnostics.
// Params: slog logger.
// Returns: option attaching the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) { r.logger = logger }
}

// New creates an empty schema registry.
// Params: options for builtins and logging.
// Returns: initialized registry; discovery runs lazily on first use.
func New(opts ...Option) *Registry {
	registry := &Registry{
		modules:  map[string]*module{},
		schemas:  map[string]*module{},
		disabled: map[string]struct{}{},
	}
	for _, opt := range opts {
		opt(registry)
	}
	return registry
}

// Reset drops every loaded implementation and re-arms lazy discovery.
// Params: none.
// Returns: registry restored to its initial lifecycle state.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.modules = map[string]*module{}
	r.schemas = map[string]*module{}
	r.disabled = map[string]struct{}{}
	r.scanned = false
}

// ensureScanned runs the one-time builtin discovery scan. Caller holds mu.
// Params: none.
// Returns: schema map populated from the static table.
func (r *Registry) ensureScanned() {
	if r.scanned {
		return
	}
	r.scanned = true

	for _, descriptor := range r.builtins {
		name := strings.TrimSpace(descriptor.Name)
		if name == "" || descriptor.Build == nil {
			r.warn("builtin descriptor is incomplete; skipping", "name", descriptor.Name)
			continue
		}
		if _, ok := r.modules[name]; ok {
			r.warn("builtin already loaded; ignoring duplicate", "name", name)
			continue
		}
		plugin := descriptor.Build()
		if plugin == nil || len(plugin.Schemas()) == 0 {
			r.warn("builtin exposes no schemas; skipping", "name", name)
			continue
		}
		entry := &module{name: name, plugin: plugin, native: true}
		r.modules[name] = entry
		for _, schema := range plugin.Schemas() {
			r.bind(schema, entry)
		}
	}
}

// bind assigns one schema to a module entry. Caller holds mu.
// Params: raw schema and module record.
// Returns: true when bound; false on conflict (first registrant wins).
func (r *Registry) bind(schema string, entry *module) bool {
	key := normalizeSchema(schema)
	if key == "" {
		return false
	}
	if existing, ok := r.schemas[key]; ok {
		r.warn("schema already bound; keeping first registrant",
			"schema", key, "bound", existing.name, "rejected", entry.name)
		return false
	}
	r.schemas[key] = entry
	return true
}

// Register binds one schema to an implementation ad hoc.
// Params: schema and implementation object.
// Returns: false when the schema is already bound; first registrant wins.
func (r *Registry) Register(schema string, plugin target.Plugin) bool {
	if plugin == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ensureScanned()

	entry := r.moduleFor(plugin)
	if entry == nil {
		entry = &module{name: "custom/" + normalizeSchema(schema), plugin: plugin}
		if !r.bind(schema, entry) {
			return false
		}
		r.modules[entry.name] = entry
		return true
	}
	return r.bind(schema, entry)
}

// AddFunc wraps a plain delivery callback as a registered implementation.
// Params: provenance name, answered schemas, callback, and options.
// Returns: false when no schema could be bound.
func (r *Registry) AddFunc(name string, schemas []string, fn target.NotifyFunc, opts ...target.FuncOption) bool {
	plugin := target.NewFuncPlugin(name, schemas, fn, opts...)
	if plugin == nil {
		r.warn("callback registration rejected", "name", name)
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ensureScanned()

	conflicts := make([]string, 0, len(schemas))
	for _, schema := range schemas {
		if _, ok := r.schemas[normalizeSchema(schema)]; ok {
			conflicts = append(conflicts, normalizeSchema(schema))
		}
	}
	if len(conflicts) > 0 {
		r.warn("callback schemas already bound; registration rejected",
			"name", name, "conflicts", strings.Join(conflicts, ","))
		return false
	}

	entry := &module{
		name:       "custom/" + name,
		plugin:     plugin,
		funcName:   name,
		defaultURL: plugin.DefaultURL(),
	}
	r.modules[entry.name] = entry
	for _, schema := range schemas {
		r.bind(schema, entry)
	}
	return true
}

// Unregister removes schemas and frees orphaned implementations.
// Params: schema list.
// Returns: provenance bookkeeping cleaned for fully unbound modules.
func (r *Registry) Unregister(schemas ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ensureScanned()

	for _, schema := range schemas {
		key := normalizeSchema(schema)
		entry, ok := r.schemas[key]
		if !ok {
			continue
		}
		delete(r.schemas, key)
		delete(r.disabled, key)
		if !r.referenced(entry) {
			delete(r.modules, entry.name)
		}
	}
}

// Reload rebuilds one natively discovered implementation in place.
// Params: builtin descriptor name.
// Returns: every schema bound to the old object remapped; unknown
// names are a no-op.
func (r *Registry) Reload(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ensureScanned()

	entry, ok := r.modules[name]
	if !ok || !entry.native {
		return
	}
	var descriptor *Descriptor
	for i := range r.builtins {
		if r.builtins[i].Name == name {
			descriptor = &r.builtins[i]
			break
		}
	}
	if descriptor == nil || descriptor.Build == nil {
		return
	}

	rebuilt := descriptor.Build()
	if rebuilt == nil || len(rebuilt.Schemas()) == 0 {
		r.warn("builtin reload produced no schemas; keeping previous state", "name", name)
		return
	}
	// Schemas bind the module record, so swapping the plugin pointer
	// remaps every schema bound to the pre-reload object at once.
	entry.plugin = rebuilt
	for _, schema := range rebuilt.Schemas() {
		if _, bound := r.schemas[normalizeSchema(schema)]; !bound {
			r.bind(schema, entry)
		}
	}
}

// Lookup resolves one schema to its implementation.
// Params: schema, matched case-insensitively.
// Returns: implementation and whether the schema is bound.
func (r *Registry) Lookup(schema string) (target.Plugin, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ensureScanned()

	entry, ok := r.schemas[normalizeSchema(schema)]
	if !ok {
		return nil, false
	}
	return entry.plugin, true
}

// Contains reports whether a schema is currently bound.
// Params: schema, matched case-insensitively.
// Returns: binding presence.
func (r *Registry) Contains(schema string) bool {
	_, ok := r.Lookup(schema)
	return ok
}

// Enable turns listed schemas' shared implementations back on.
// Params: schema list.
// Returns: implementation-level flag side effects.
func (r *Registry) Enable(schemas ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ensureScanned()

	for _, schema := range schemas {
		key := normalizeSchema(schema)
		entry, ok := r.schemas[key]
		if !ok {
			continue
		}
		entry.plugin.SetEnabled(true)
		delete(r.disabled, key)
	}
}

// Disable turns listed schemas' shared implementations off.
// Params: schema list.
// Returns: every sibling schema of each implementation disabled too.
func (r *Registry) Disable(schemas ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ensureScanned()

	for _, schema := range schemas {
		key := normalizeSchema(schema)
		entry, ok := r.schemas[key]
		if !ok || !entry.plugin.Enabled() {
			continue
		}
		entry.plugin.SetEnabled(false)
		for sibling, bound := range r.schemas {
			if bound.plugin == entry.plugin {
				r.disabled[sibling] = struct{}{}
			}
		}
	}
}

// EnableOnly disables every implementation outside the keep list.
// Params: schemas to keep enabled.
// Returns: implementations previously disabled here re-enabled when
// kept; implementations disabled for unrelated reasons left alone.
func (r *Registry) EnableOnly(schemas ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ensureScanned()

	keep := map[string]struct{}{}
	for _, schema := range schemas {
		keep[normalizeSchema(schema)] = struct{}{}
	}

	for _, entry := range r.modules {
		bound := r.boundSchemas(entry)
		kept := false
		for _, schema := range bound {
			if _, ok := keep[schema]; ok {
				kept = true
				break
			}
		}
		if !kept {
			if entry.plugin.Enabled() {
				entry.plugin.SetEnabled(false)
				for _, schema := range bound {
					r.disabled[schema] = struct{}{}
				}
			}
			continue
		}
		ownDisabled := false
		for _, schema := range bound {
			if _, ok := r.disabled[schema]; ok {
				ownDisabled = true
				delete(r.disabled, schema)
			}
		}
		if ownDisabled {
			entry.plugin.SetEnabled(true)
		}
	}
}

// Schemas enumerates bound schemas.
// Params: includeDisabled keeps disabled implementations listed.
// Returns: sorted schema list.
func (r *Registry) Schemas(includeDisabled bool) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ensureScanned()

	schemas := make([]string, 0, len(r.schemas))
	for schema, entry := range r.schemas {
		if !includeDisabled && !entry.plugin.Enabled() {
			continue
		}
		schemas = append(schemas, schema)
	}
	sort.Strings(schemas)
	return schemas
}

// Plugins enumerates loaded implementations.
// Params: includeDisabled keeps disabled implementations listed.
// Returns: implementation list in module-name order.
func (r *Registry) Plugins(includeDisabled bool) []target.Plugin {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ensureScanned()

	names := make([]string, 0, len(r.modules))
	for name := range r.modules {
		names = append(names, name)
	}
	sort.Strings(names)

	plugins := make([]target.Plugin, 0, len(names))
	for _, name := range names {
		plugin := r.modules[name].plugin
		if !includeDisabled && !plugin.Enabled() {
			continue
		}
		plugins = append(plugins, plugin)
	}
	return plugins
}

// Instantiate builds one target from a raw URL.
// Params: raw URL in schema://... form.
// Returns: bound target or an error for parse, unknown-schema, and
// disabled-implementation conditions; soft/strict handling is the
// caller's concern.
func (r *Registry) Instantiate(rawURL string) (target.Target, error) {
	parsed, err := target.ParseURL(rawURL)
	if err != nil {
		return nil, err
	}
	plugin, ok := r.Lookup(parsed.Schema)
	if !ok {
		return nil, fmt.Errorf("unknown schema %q in URL %q", parsed.Schema, rawURL)
	}
	if !plugin.Enabled() {
		return nil, fmt.Errorf("schema %q is disabled", parsed.Schema)
	}
	instance, err := plugin.New(parsed)
	if err != nil {
		return nil, fmt.Errorf("instantiate %q: %w", rawURL, err)
	}
	return instance, nil
}

// moduleFor locates the module owning an implementation. Caller holds mu.
// Params: implementation object.
// Returns: module record or nil.
func (r *Registry) moduleFor(plugin target.Plugin) *module {
	for _, entry := range r.modules {
		if entry.plugin == plugin {
			return entry
		}
	}
	return nil
}

// referenced reports whether any schema still binds the module. Caller holds mu.
// Params: module record.
// Returns: binding presence.
func (r *Registry) referenced(entry *module) bool {
	for _, bound := range r.schemas {
		if bound == entry {
			return true
		}
	}
	return false
}

// boundSchemas lists schemas bound to one module. Caller holds mu.
// Params: module record.
// Returns: sorted schema list.
func (r *Registry) boundSchemas(entry *module) []string {
	var schemas []string
	for schema, bound := range r.schemas {
		if bound == entry {
			schemas = append(schemas, schema)
		}
	}
	sort.Strings(schemas)
	return schemas
}

// warn logs one registry diagnostic when a logger is attached.
// Params: message and key/value attrs.
// Returns: nothing.
func (r *Registry) warn(msg string, args ...any) {
	if r.logger != nil {
		r.logger.Warn(msg, args...)
	}
}

// normalizeSchema lowers and trims one schema key.
// Params: raw schema.
// Returns: case-insensitive lookup key.
func normalizeSchema(schema string) string {
	return strings.ToLower(strings.TrimSpace(schema))
}
