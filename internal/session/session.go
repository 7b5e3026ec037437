// Package session assembles the configuration core: state manager, event
// bus, integration bridge, interaction router, component registry,
// data-source executor, and widget catalog, wired together with no global
// state. A host owns exactly one Session per open dashboard.
package session

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/sashad/cardcore/internal/component"
	"github.com/sashad/cardcore/internal/configbridge"
	"github.com/sashad/cardcore/internal/configevent"
	"github.com/sashad/cardcore/internal/configstate"
	"github.com/sashad/cardcore/internal/datasource"
	"github.com/sashad/cardcore/internal/interaction"
	"github.com/sashad/cardcore/internal/interaction/expr"
	"github.com/sashad/cardcore/internal/logging"
	"github.com/sashad/cardcore/internal/widget"
)

// Session owns one dashboard's configuration core.
type Session struct {
	logger *zap.Logger

	manager    *configstate.Manager
	bus        *configevent.Bus
	bridge     *configbridge.Bridge
	router     *interaction.Router
	components *component.Registry
	executor   *datasource.Executor
	catalog    *widget.Catalog

	routerSub *configevent.Subscription
}

// Option configures a Session.
type Option func(*options)

type options struct {
	logger    *zap.Logger
	catalog   *widget.Catalog
	navigator interaction.Navigator
	fetchers  *datasource.FetcherRegistry
}

// WithLogger sets the session logger, shared by all owned parts.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithLogging builds the session logger from level ("debug", "info",
// "warn", "error") and format ("json" or "console") strings.
func WithLogging(level, format string) Option {
	return func(o *options) {
		logger, err := logging.New(level, format, "cardcore")
		if err != nil {
			return
		}
		o.logger = logger
	}
}

// WithCatalog replaces the built-in widget catalog.
func WithCatalog(c *widget.Catalog) Option {
	return func(o *options) { o.catalog = c }
}

// WithNavigator sets the jump-response handler.
func WithNavigator(nav interaction.Navigator) Option {
	return func(o *options) { o.navigator = nav }
}

// WithFetchers replaces the data-source fetcher registry.
func WithFetchers(r *datasource.FetcherRegistry) Option {
	return func(o *options) { o.fetchers = r }
}

// New builds a fully wired session.
func New(opts ...Option) (*Session, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.catalog == nil {
		o.catalog = widget.NewCatalog()
	}
	if o.fetchers == nil {
		o.fetchers = datasource.NewFetcherRegistry()
	}

	s := &Session{
		logger:     o.logger,
		catalog:    o.catalog,
		components: component.NewRegistry(),
	}

	s.manager = configstate.NewManager(configstate.WithLogger(o.logger.Named("configstate")))
	s.bus = configevent.NewBus(configevent.WithLogger(o.logger.Named("configevent")))
	s.executor = datasource.NewExecutor(o.fetchers,
		datasource.WithExecutorLogger(o.logger.Named("datasource")))

	triggers := configbridge.NewTriggerRegistry()
	for _, t := range s.catalog.Types() {
		if def, ok := s.catalog.Lookup(t); ok && len(def.BindingPaths) > 0 {
			triggers.RegisterBindingPaths(def.Type, def.BindingPaths...)
		}
	}

	s.bridge = configbridge.New(s.manager, s.bus,
		configbridge.WithCollaborator(s.executor),
		configbridge.WithTriggerRegistry(triggers),
		configbridge.WithBridgeLogger(o.logger.Named("configbridge")))

	routerOpts := []interaction.RouterOption{
		interaction.WithEvaluator(expr.New()),
		interaction.WithLogger(o.logger.Named("interaction")),
	}
	if o.navigator != nil {
		routerOpts = append(routerOpts, interaction.WithNavigator(o.navigator))
	}
	s.router = interaction.NewRouter(s.components, s.bridge, routerOpts...)

	// Interaction-layer changes re-register the component's rule set.
	sub, err := s.bus.Subscribe(configevent.Wildcard, configevent.HandlerFunc(s.onConfigChange))
	if err != nil {
		return nil, fmt.Errorf("session wiring: %w", err)
	}
	s.routerSub = sub

	return s, nil
}

// Accessors for the owned parts.

func (s *Session) Manager() *configstate.Manager   { return s.manager }
func (s *Session) Bus() *configevent.Bus           { return s.bus }
func (s *Session) Bridge() *configbridge.Bridge    { return s.bridge }
func (s *Session) Router() *interaction.Router     { return s.router }
func (s *Session) Components() *component.Registry { return s.components }
func (s *Session) Executor() *datasource.Executor  { return s.executor }
func (s *Session) Catalog() *widget.Catalog        { return s.catalog }

// RegisterWidget places a widget of a cataloged type, initializing its
// configuration with the type's defaults.
func (s *Session) RegisterWidget(componentID, widgetType string) error {
	def, ok := s.catalog.Lookup(widgetType)
	if !ok {
		return fmt.Errorf("unknown widget type %q", widgetType)
	}

	s.bridge.RegisterComponent(componentID, widgetType)
	if len(def.DefaultBase) > 0 {
		s.bridge.UpdateConfiguration(componentID, configstate.SectionBase, def.DefaultBase)
	}
	if len(def.DefaultComponent) > 0 {
		s.bridge.UpdateConfiguration(componentID, configstate.SectionComponent, def.DefaultComponent)
	}
	return nil
}

// AttachInstance binds a live rendered instance to its interaction rules.
func (s *Session) AttachInstance(inst component.Instance) error {
	return s.router.RegisterComponentInstance(inst)
}

// RemoveWidget releases everything owned for a component: interaction
// listeners, live instance, configuration state, pending execution.
func (s *Session) RemoveWidget(componentID string) {
	s.router.Unregister(componentID)
	s.components.Unregister(componentID)
	s.executor.Remove(componentID)
	s.bridge.RemoveComponent(componentID)
}

// onConfigChange keeps the interaction router in sync with the stored
// interaction layer.
func (s *Session) onConfigChange(ev configevent.ChangeEvent) error {
	if ev.Section != configstate.SectionInteraction && ev.Section != "" {
		return nil
	}
	s.router.RegisterComponentConfigs(ev.ComponentID, ev.NewConfig.Interaction)
	return nil
}

// Close releases the session. Safe to call once.
func (s *Session) Close() {
	if s.routerSub != nil {
		s.bus.Unsubscribe(s.routerSub)
	}
	s.router.Close()
	s.bridge.Close()
	s.executor.Close()
	s.bus.Close()
}
