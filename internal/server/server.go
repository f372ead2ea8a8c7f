package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/Bigsy/mcpmu/internal/config"
	"github.com/Bigsy/mcpmu/internal/events"
	"github.com/Bigsy/mcpmu/internal/process"
	"github.com/Bigsy/mcpmu/pkg/mcp"
	"github.com/Bigsy/mcpmu/pkg/mcp/protocol"
	"github.com/Bigsy/mcpmu/pkg/mcp/transport"
	"github.com/fsnotify/fsnotify"
)

// Options configures the MCP server.
type Options struct {
	Config             *config.Config
	ConfigPath         string // Expanded path for hot-reload watching (empty = no watching)
	Namespace          string // Namespace to expose (empty = auto-select)
	EagerStart         bool   // Pre-start all servers
	ExposeManagerTools bool   // Include mcpmu.* tools in tools/list
	LogLevel           string
	Stdin              io.Reader
	Stdout             io.Writer
	Stderr             io.Writer
	ServerName         string
	ServerVersion      string
	ProtocolVersion    string
	PIDTrackerDir      string        // Overrides the supervisor's PID tracking file directory
	DebounceDelay      time.Duration // Config watcher debounce window (0 = defaultDebounceDelay)
}

// defaultDebounceDelay is used when Options.DebounceDelay is unset.
const defaultDebounceDelay = 150 * time.Millisecond

// SelectionMethod indicates how the active namespace was selected.
type SelectionMethod string

const (
	SelectionFlag    SelectionMethod = "flag"    // --namespace flag
	SelectionDefault SelectionMethod = "default" // config.defaultNamespaceId
	SelectionOnly    SelectionMethod = "only"    // only one namespace exists
	SelectionAll     SelectionMethod = "all"     // no namespaces, all servers exposed
)

// Server is an MCP server that aggregates tools from managed upstream servers.
// The wire protocol mechanics (envelope framing, ID correlation, concurrent
// inbound dispatch) live in pkg/mcp/protocol.Dispatcher; this type owns only
// the Multiplexer's own domain logic: namespace resolution, permission
// filtering, and routing tool calls to the aggregator/router.
type Server struct {
	opts       Options
	cfg        *config.Config
	bus        *events.Bus
	supervisor *process.Supervisor
	aggregator *Aggregator
	router     *Router

	tr transport.Transport
	d  *protocol.Dispatcher

	// Active namespace (resolved at init)
	activeNamespace *config.NamespaceConfig
	activeServerIDs []string        // Server IDs in the active namespace (or all if no namespace)
	selectionMethod SelectionMethod // How the namespace was selected

	// Protocol state
	initialized bool
	mu          sync.RWMutex

	// Hot-reload
	reloadCh chan *config.Config // Serializes reload with request handling
}

// New creates a new MCP server.
func New(opts Options) (*Server, error) {
	// Create event bus
	bus := events.NewBus()

	// Create process supervisor
	supervisor := process.NewSupervisorWithOptions(bus, process.SupervisorOptions{
		PIDTrackerDir: opts.PIDTrackerDir,
	})

	tr := transport.NewStdio(asWriteCloser(opts.Stdout), asReadCloser(opts.Stdin))

	s := &Server{
		opts:       opts,
		cfg:        opts.Config,
		bus:        bus,
		supervisor: supervisor,
		tr:         tr,
		d:          protocol.New(tr),
		reloadCh:   make(chan *config.Config, 1), // Buffered to avoid blocking watcher
	}

	// Create aggregator and router (will be initialized after namespace selection)
	s.aggregator = NewAggregator(s.cfg, supervisor)
	s.router = NewRouter(s.cfg, supervisor, s.aggregator)

	s.registerHandlers()

	return s, nil
}

// asReadCloser adapts r to io.ReadCloser. Most callers pass os.Stdin,
// which already is one; tests pass a bare strings.Reader, which gets a
// no-op Close.
func asReadCloser(r io.Reader) io.ReadCloser {
	if rc, ok := r.(io.ReadCloser); ok {
		return rc
	}
	return io.NopCloser(r)
}

// asWriteCloser adapts w to io.WriteCloser, the mirror of asReadCloser.
func asWriteCloser(w io.Writer) io.WriteCloser {
	if wc, ok := w.(io.WriteCloser); ok {
		return wc
	}
	return nopWriteCloser{w}
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// registerHandlers wires this server's domain logic into the dispatcher.
// Each handler still returns the package's own *RPCError so the precise
// custom error codes (ErrServerNotFound and friends) reach the wire
// rather than being collapsed into a generic InternalError.
func (s *Server) registerHandlers() {
	wrap := func(h func(context.Context, json.RawMessage) (any, *RPCError)) protocol.RequestHandler {
		return func(ctx context.Context, params json.RawMessage) (any, error) {
			result, rpcErr := h(ctx, params)
			if rpcErr != nil {
				return nil, rpcErr
			}
			return result, nil
		}
	}

	// Every request on this connection is registered as a sync handler:
	// one client (one agent process) talks to this server over a single
	// stdio pipe and expects its requests answered in the order it sent
	// them, the same guarantee a single in-flight call per connection
	// always gives. Concurrent dispatch still matters upstream, where one
	// Multiplexer fans out over many independent server connections each
	// with their own dispatcher (pkg/mcp/client.Client) — it just isn't
	// this connection's job to reorder a single client's own requests.
	s.d.RegisterSyncRequestHandler("initialize", wrap(s.handleInitialize))
	s.d.RegisterSyncRequestHandler("ping", wrap(func(ctx context.Context, _ json.RawMessage) (any, *RPCError) {
		return s.handlePing(ctx)
	}))
	s.d.RegisterSyncRequestHandler("tools/list", wrap(func(ctx context.Context, _ json.RawMessage) (any, *RPCError) {
		return s.handleToolsList(ctx)
	}))
	s.d.RegisterSyncRequestHandler("tools/call", wrap(s.handleToolsCall))

	s.d.RegisterNotificationHandler("notifications/initialized", func(ctx context.Context, _ json.RawMessage) error {
		log.Println("Client sent initialized notification")
		if s.opts.EagerStart {
			go s.startEagerServers(ctx)
		}
		return nil
	})
	s.d.RegisterNotificationHandler("notifications/cancelled", func(ctx context.Context, params json.RawMessage) error {
		log.Printf("Received cancellation notification: %s", string(params))
		return nil
	})
}

// Run starts the server and processes requests until context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	defer s.shutdown()

	// Start config file watcher if ConfigPath is set
	if s.opts.ConfigPath != "" {
		go s.watchConfig(ctx, s.opts.ConfigPath)
	}

	dispatchDone := make(chan error, 1)
	go func() { dispatchDone <- s.d.Run(ctx) }()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case newCfg := <-s.reloadCh:
			// Config file changed - apply reload
			s.applyReload(ctx, newCfg)

		case err := <-dispatchDone:
			return err
		}
	}
}

// handleInitialize handles the initialize request.
func (s *Server) handleInitialize(ctx context.Context, params json.RawMessage) (any, *RPCError) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return nil, ErrInvalidRequest("already initialized")
	}

	var req mcp.InitializeRequest
	if params != nil {
		if err := json.Unmarshal(params, &req); err != nil {
			return nil, ErrInvalidParams(err.Error())
		}
	}

	log.Printf("Initialize request from %s %s (protocol: %s)",
		req.ClientInfo.Name, req.ClientInfo.Version, req.ProtocolVersion)

	// Resolve namespace
	if err := s.resolveNamespace(); err != nil {
		return nil, err
	}

	// Update router with active namespace info
	activeID := ""
	if s.activeNamespace != nil {
		activeID = s.activeNamespace.ID
	}
	s.router.SetActiveNamespace(activeID, s.selectionMethod)

	s.initialized = true

	return mcp.InitializeResponse{
		ProtocolVersion: s.opts.ProtocolVersion,
		ServerInfo: mcp.Implementation{
			Name:    s.opts.ServerName,
			Version: s.opts.ServerVersion,
		},
		Capabilities: mcp.ServerCapabilities{
			Tools: &mcp.ToolCapabilities{},
		},
	}, nil
}

// handlePing handles the ping request.
func (s *Server) handlePing(ctx context.Context) (any, *RPCError) {
	return struct{}{}, nil
}

// toolsListResult is the wire shape of a tools/list response. Kept local
// because the Multiplexer's tools carry aggregation metadata (qualified
// name, owning server) that mcp.Tool does not model.
type toolsListResult struct {
	Tools []AggregatedTool `json:"tools"`
}

// handleToolsList handles the tools/list request.
func (s *Server) handleToolsList(ctx context.Context) (any, *RPCError) {
	s.mu.RLock()
	if !s.initialized {
		s.mu.RUnlock()
		return nil, ErrInvalidRequest("not initialized")
	}
	activeNamespaceID := ""
	if s.activeNamespace != nil {
		activeNamespaceID = s.activeNamespace.ID
	}
	s.mu.RUnlock()

	// Get aggregated tools
	tools, err := s.aggregator.ListTools(ctx, s.activeServerIDs)
	if err != nil {
		return nil, ErrInternalError(err.Error())
	}

	// Manager tools are listed only when exposed; they stay callable either way
	if !s.opts.ExposeManagerTools {
		visible := make([]AggregatedTool, 0, len(tools))
		for _, tool := range tools {
			if _, _, isManager := ParseToolName(tool.Name); !isManager {
				visible = append(visible, tool)
			}
		}
		tools = visible
	}

	// Filter tools based on permissions (if namespace is active)
	if activeNamespaceID != "" {
		filtered := make([]AggregatedTool, 0, len(tools))
		for _, tool := range tools {
			serverID, toolName, isManager := ParseToolName(tool.Name)
			// Manager tools are always shown
			if isManager {
				filtered = append(filtered, tool)
				continue
			}
			// Check permission for regular tools
			allowed, _ := IsToolAllowed(s.cfg, activeNamespaceID, serverID, toolName)
			if allowed {
				filtered = append(filtered, tool)
			}
		}
		tools = filtered
	}

	return toolsListResult{Tools: tools}, nil
}

// handleToolsCall handles the tools/call request.
func (s *Server) handleToolsCall(ctx context.Context, params json.RawMessage) (any, *RPCError) {
	s.mu.RLock()
	if !s.initialized {
		s.mu.RUnlock()
		return nil, ErrInvalidRequest("not initialized")
	}
	activeServerIDs := s.activeServerIDs
	s.mu.RUnlock()

	var req mcp.CallToolRequest
	if err := json.Unmarshal(params, &req); err != nil {
		return nil, ErrInvalidParams(err.Error())
	}

	// Parse tool name to check namespace enforcement
	serverID, _, isManager := ParseToolName(req.Name)

	// Manager tools are always allowed
	if !isManager && serverID != "" {
		// Check if the server is in the active namespace
		allowed := false
		for _, id := range activeServerIDs {
			if id == serverID {
				allowed = true
				break
			}
		}
		if !allowed {
			return nil, ErrServerNotFound(serverID)
		}

		// Check if server is enabled
		srv := s.cfg.GetServer(serverID)
		if srv == nil {
			return nil, ErrServerNotFound(serverID)
		}
		if !srv.IsEnabled() {
			return nil, NewRPCError(ErrCodeServerNotRunning, "server is disabled: "+serverID, nil)
		}
	}

	// Route the call through the router
	result, rpcErr := s.router.CallTool(ctx, req.Name, req.Arguments)
	if rpcErr != nil {
		return nil, rpcErr
	}

	return result, nil
}

// resolveNamespace determines which namespace to use and which servers are active.
func (s *Server) resolveNamespace() *RPCError {
	cfg := s.cfg
	namespaceArg := s.opts.Namespace

	// Rule 1: If --namespace provided, use it (lookup by ID or name)
	if namespaceArg != "" {
		// Try lookup by ID first
		for i := range cfg.Namespaces {
			if cfg.Namespaces[i].ID == namespaceArg {
				s.activeNamespace = &cfg.Namespaces[i]
				s.activeServerIDs = cfg.Namespaces[i].ServerIDs
				s.selectionMethod = SelectionFlag
				log.Printf("Using namespace %q with %d servers (selection: flag)", namespaceArg, len(s.activeServerIDs))
				return nil
			}
		}
		// Try lookup by name
		for i := range cfg.Namespaces {
			if cfg.Namespaces[i].Name == namespaceArg {
				s.activeNamespace = &cfg.Namespaces[i]
				s.activeServerIDs = cfg.Namespaces[i].ServerIDs
				s.selectionMethod = SelectionFlag
				log.Printf("Using namespace %q with %d servers (selection: flag)", cfg.Namespaces[i].Name, len(s.activeServerIDs))
				return nil
			}
		}
		return ErrNamespaceNotFound(namespaceArg)
	}

	// Rule 2: If config.defaultNamespaceId is set, use it
	if cfg.DefaultNamespaceID != "" {
		for i := range cfg.Namespaces {
			if cfg.Namespaces[i].ID == cfg.DefaultNamespaceID {
				s.activeNamespace = &cfg.Namespaces[i]
				s.activeServerIDs = cfg.Namespaces[i].ServerIDs
				s.selectionMethod = SelectionDefault
				log.Printf("Using default namespace %q with %d servers (selection: default)", cfg.DefaultNamespaceID, len(s.activeServerIDs))
				return nil
			}
		}
		return ErrNamespaceNotFound(cfg.DefaultNamespaceID)
	}

	// Rule 3: If exactly 1 namespace, use it
	if len(cfg.Namespaces) == 1 {
		s.activeNamespace = &cfg.Namespaces[0]
		s.activeServerIDs = cfg.Namespaces[0].ServerIDs
		s.selectionMethod = SelectionOnly
		log.Printf("Using only namespace %q with %d servers (selection: only)", cfg.Namespaces[0].ID, len(s.activeServerIDs))
		return nil
	}

	// Rule 4: If 0 namespaces, expose all enabled servers
	if len(cfg.Namespaces) == 0 {
		s.activeNamespace = nil
		s.activeServerIDs = make([]string, 0, len(cfg.Servers))
		for id, srv := range cfg.Servers {
			if srv.IsEnabled() {
				s.activeServerIDs = append(s.activeServerIDs, id)
			}
		}
		s.selectionMethod = SelectionAll
		log.Printf("No namespaces configured, exposing all %d enabled servers (selection: all)", len(s.activeServerIDs))
		return nil
	}

	// Rule 5: 2+ namespaces, none selected - fail
	return NewRPCError(ErrCodeInvalidRequest,
		fmt.Sprintf("Multiple namespaces configured (%d), but none selected. Use --namespace to specify which namespace to expose.", len(cfg.Namespaces)),
		nil)
}

// startEagerServers starts all servers in the active namespace.
func (s *Server) startEagerServers(ctx context.Context) {
	log.Printf("Starting %d servers eagerly", len(s.activeServerIDs))
	for _, id := range s.activeServerIDs {
		srv := s.cfg.GetServer(id)
		if srv == nil {
			continue
		}
		if _, err := s.supervisor.Start(ctx, id, *srv); err != nil {
			log.Printf("Failed to start server %s: %v", id, err)
		}
	}
}

// shutdown cleans up resources.
func (s *Server) shutdown() {
	log.Println("Shutting down server")
	s.supervisor.StopAll()
	s.bus.Close()
	_ = s.tr.Close()
}

// watchConfig watches the config file for changes and sends new config to reloadCh.
// It watches the parent directory (not the file) to handle atomic renames.
func (s *Server) watchConfig(ctx context.Context, configPath string) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Printf("Failed to create config watcher: %v", err)
		return
	}
	defer watcher.Close()

	// Watch parent directory to catch atomic renames
	dir := filepath.Dir(configPath)
	filename := filepath.Base(configPath)

	if err := watcher.Add(dir); err != nil {
		log.Printf("Failed to watch config directory %s: %v", dir, err)
		return
	}

	log.Printf("Watching config file: %s", configPath)

	// Debounce timer
	debounceDelay := s.opts.DebounceDelay
	if debounceDelay <= 0 {
		debounceDelay = defaultDebounceDelay
	}
	var debounceTimer *time.Timer
	var debounceMu sync.Mutex

	triggerReload := func() {
		debounceMu.Lock()
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
		debounceTimer = time.AfterFunc(debounceDelay, func() {
			log.Printf("Config file changed, loading new config")

			// Load and parse before sending
			newCfg, err := config.LoadFrom(configPath)
			if err != nil {
				log.Printf("Failed to load config after change: %v (keeping current config)", err)
				return
			}

			// Send to reload channel (non-blocking with select to avoid deadlock if channel full)
			select {
			case s.reloadCh <- newCfg:
				log.Printf("Config reload queued")
			default:
				log.Printf("Config reload already pending, skipping")
			}
		})
		debounceMu.Unlock()
	}

	for {
		select {
		case <-ctx.Done():
			debounceMu.Lock()
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceMu.Unlock()
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}

			// Filter for our target file
			if filepath.Base(event.Name) != filename {
				continue
			}

			// React to write, create, rename, or remove events
			// Atomic writes show up as rename/create depending on OS/editor
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0 {
				log.Printf("Config file event: %s (%s)", event.Name, event.Op)
				triggerReload()
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Printf("Config watcher error: %v", err)
		}
	}
}

// applyReload applies a new configuration, rebuilding all components.
// Must be called from the Run() goroutine to serialize with request handling.
func (s *Server) applyReload(ctx context.Context, newCfg *config.Config) {
	log.Printf("Applying config reload: %d servers, %d namespaces",
		len(newCfg.Servers), len(newCfg.Namespaces))

	// Stop all running servers
	s.supervisor.StopAll()

	// Swap config
	s.mu.Lock()
	oldNamespaceID := ""
	if s.activeNamespace != nil {
		oldNamespaceID = s.activeNamespace.ID
	}
	oldSelectionMethod := s.selectionMethod
	oldNamespace := s.activeNamespace
	oldServerIDs := s.activeServerIDs
	s.cfg = newCfg
	s.mu.Unlock()

	// Re-resolve namespace
	// If namespace was selected by flag and still exists, keep it
	// If namespace was auto-selected and still valid, keep it
	// If namespace no longer exists, re-auto-select
	s.mu.Lock()

	var keepNamespace bool
	if oldSelectionMethod == SelectionFlag && s.opts.Namespace != "" {
		// Try to find the namespace by the original flag value
		for i := range newCfg.Namespaces {
			if newCfg.Namespaces[i].ID == s.opts.Namespace || newCfg.Namespaces[i].Name == s.opts.Namespace {
				s.activeNamespace = &newCfg.Namespaces[i]
				s.activeServerIDs = newCfg.Namespaces[i].ServerIDs
				s.selectionMethod = SelectionFlag
				keepNamespace = true
				break
			}
		}
	} else if oldNamespaceID != "" {
		// Try to keep the same namespace by ID
		for i := range newCfg.Namespaces {
			if newCfg.Namespaces[i].ID == oldNamespaceID {
				s.activeNamespace = &newCfg.Namespaces[i]
				s.activeServerIDs = newCfg.Namespaces[i].ServerIDs
				s.selectionMethod = oldSelectionMethod
				keepNamespace = true
				break
			}
		}
	}

	if !keepNamespace {
		// Need to re-resolve namespace from scratch
		// Clear current state first
		s.activeNamespace = nil
		s.activeServerIDs = nil
		s.mu.Unlock()

		// Re-run namespace resolution
		if err := s.resolveNamespace(); err != nil {
			log.Printf("Failed to resolve namespace after reload: %v", err)
			// Fail closed: keep the previous namespace selection
			s.mu.Lock()
			s.activeNamespace = oldNamespace
			s.activeServerIDs = oldServerIDs
			s.selectionMethod = oldSelectionMethod
			s.mu.Unlock()
			log.Printf("Kept previous namespace selection with %d servers", len(oldServerIDs))
		}
	} else {
		log.Printf("Kept namespace %q after reload with %d servers",
			s.activeNamespace.ID, len(s.activeServerIDs))
		s.mu.Unlock()
	}

	// Rebuild aggregator and router with new config
	s.aggregator = NewAggregator(s.cfg, s.supervisor)
	s.router = NewRouter(s.cfg, s.supervisor, s.aggregator)

	// Update router with active namespace info
	s.mu.RLock()
	activeID := ""
	if s.activeNamespace != nil {
		activeID = s.activeNamespace.ID
	}
	selMethod := s.selectionMethod
	s.mu.RUnlock()
	s.router.SetActiveNamespace(activeID, selMethod)

	// Restart servers if eager start is configured
	if s.opts.EagerStart {
		go s.startEagerServers(ctx)
	}

	log.Printf("Config reload complete")
}
