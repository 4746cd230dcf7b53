// Copyright (c) 2025 Halcyon Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Interactive chat REPL and the one-shot ask command.
//
// The REPL reads input with liner (history, line editing), assembles the
// prompt for each turn through the budget engine, streams the reply from
// the routed provider, and persists the transcript plus spend records.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/peterh/liner"

	"github.com/halcyonforge/loom/internal/config"
	"github.com/halcyonforge/loom/internal/model"
	"github.com/halcyonforge/loom/internal/prompt"
	"github.com/halcyonforge/loom/internal/provider"
	"github.com/halcyonforge/loom/internal/router"
	"github.com/halcyonforge/loom/internal/session"
	"github.com/halcyonforge/loom/internal/storage"
	"github.com/halcyonforge/loom/internal/telemetry"
	"github.com/halcyonforge/loom/internal/tokens"
	"github.com/halcyonforge/loom/internal/util"
)

// =============================================================================
// INPUT
// =============================================================================

// ChatInput wraps liner to provide input history and line editing.
type ChatInput struct {
	line        *liner.State
	historyFile string
}

// NewChatInput creates a ChatInput with persistent history under the
// config directory.
func NewChatInput() *ChatInput {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	dir, err := config.ConfigDir()
	if err != nil {
		dir = os.TempDir()
	}

	in := &ChatInput{
		line:        line,
		historyFile: filepath.Join(dir, "chat_history"),
	}

	if f, err := os.Open(in.historyFile); err == nil {
		in.line.ReadHistory(f)
		f.Close()
	}

	return in
}

// ReadInput reads one line with the given prompt. Non-empty input is
// appended to history.
func (in *ChatInput) ReadInput(promptText string) (string, error) {
	input, err := in.line.Prompt(promptText)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		in.line.AppendHistory(input)
	}
	return input, nil
}

// Close persists history and releases the terminal.
func (in *ChatInput) Close() {
	if err := config.EnsureConfigDir(); err == nil {
		// History may contain prompt text, keep it private.
		if f, err := os.OpenFile(in.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
			in.line.WriteHistory(f)
			f.Close()
		}
	}
	in.line.Close()
}

// =============================================================================
// SESSION STATE
// =============================================================================

// ChatSession holds the state for one interactive chat.
type ChatSession struct {
	Config  *config.Config
	Presets *config.Presets

	// PresetName is resolved against Presets on every turn so edits
	// picked up by the watcher apply without restarting. Empty means
	// no preset.
	PresetName string

	Router *router.Router
	Source router.Source
	Model  string // per-session model override, empty uses binding

	Fetcher *provider.HTTPImageFetcher

	Store *storage.ChatStore
	Chat  *model.Chat

	Tracker *telemetry.Tracker
	Manager *session.Manager

	Quiet bool

	// CancelFunc aborts the in-flight generation on Ctrl+C.
	CancelFunc context.CancelFunc

	Input *ChatInput
}

// newChatSession builds the full session from config and flags.
func newChatSession(cfg *config.Config, parser *ArgParser) (*ChatSession, error) {
	rt, err := buildRouter(cfg)
	if err != nil {
		return nil, err
	}

	src := rt.Default()
	if tag, ok := parser.Flag("source"); ok {
		src, err = router.ParseSource(tag)
		if err != nil {
			return nil, NewUsageError("chat", "%v", err)
		}
	}
	if _, err := rt.Resolve(src); err != nil {
		return nil, fmt.Errorf("source %s: %w", src.Tag(), err)
	}

	presetDir, err := cfg.PresetDir()
	if err != nil {
		return nil, err
	}
	presets, err := config.LoadPresets(presetDir)
	if err != nil {
		return nil, fmt.Errorf("load presets: %w", err)
	}

	name := parser.FlagOrDefault("preset", cfg.Prompt.Preset)
	if name != "" {
		if _, ok := presets.Get(name); !ok {
			return nil, NewUsageError("chat", "preset %q not found (have: %s)",
				name, strings.Join(presets.Names(), ", "))
		}
	}

	dataDir, err := cfg.DataDir()
	if err != nil {
		return nil, err
	}
	store, err := storage.NewChatStore(filepath.Join(dataDir, "chats"))
	if err != nil {
		return nil, fmt.Errorf("open chat store: %w", err)
	}

	tracker, err := telemetry.NewTracker(filepath.Join(dataDir, "spend"))
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("open spend tracker: %w", err)
	}

	s := &ChatSession{
		Config:     cfg,
		Presets:    presets,
		PresetName: name,
		Router:     rt,
		Source:     src,
		Model:      parser.FlagOrDefault("model", ""),
		Fetcher:    provider.NewHTTPImageFetcher(),
		Store:      store,
		Tracker:    tracker,
		Quiet:      parser.BoolFlag("quiet"),
		Input:      NewChatInput(),
	}

	chat := model.NewChat(s.characterName())
	chat.Source = src.Tag()
	chat.MaxTokens = cfg.Budget.ContextTokens
	if id, ok := parser.Flag("chat"); ok {
		msgs, err := store.Load(id)
		if err != nil {
			s.close()
			return nil, err
		}
		chat.ID = id
		chat.Messages = msgs
	} else {
		id, err := store.Create(chat.Character)
		if err != nil {
			s.close()
			return nil, err
		}
		chat.ID = id
	}
	s.Chat = chat

	mgrCfg := session.DefaultConfig()
	mgrCfg.Timeout = time.Duration(cfg.Session.TimeoutSecs) * time.Second
	mgrCfg.AutoSaveEnabled = cfg.Session.AutoSave
	mgrCfg.AutoSaveInterval = time.Duration(cfg.Session.AutoSaveIntervalSecs) * time.Second
	s.Manager = session.NewManager(mgrCfg)
	s.Manager.SetWarningCallback(func(remaining time.Duration) {
		fmt.Fprintf(os.Stderr, "\n%s session idle, expires in %s\n",
			WarningStyle.Render("[Idle]"), session.FormatDuration(remaining))
	})
	s.Manager.SetAutoSaveCallback(func() error {
		return s.Tracker.SaveCurrentSession()
	})

	return s, nil
}

func (s *ChatSession) close() {
	if s.Input != nil {
		s.Input.Close()
	}
	if s.Store != nil {
		s.Store.Close()
	}
}

// preset resolves the active preset from the store. Looked up by name on
// every call so a hot reload takes effect on the next turn.
func (s *ChatSession) preset() *config.Preset {
	if s.PresetName == "" {
		return nil
	}
	p, ok := s.Presets.Get(s.PresetName)
	if !ok {
		return nil
	}
	return p
}

// characterName returns the active character's name, or "assistant".
func (s *ChatSession) characterName() string {
	if p := s.preset(); p != nil {
		src := p.ToSource()
		if src.Character.Name != "" {
			return src.Character.Name
		}
	}
	return "assistant"
}

// promptSource builds the prompt source for the next generation: preset
// fragments plus current history and config-level settings.
func (s *ChatSession) promptSource() prompt.Source {
	var src prompt.Source
	if p := s.preset(); p != nil {
		src = p.ToSource()
	} else {
		src.Settings.InjectionSeparator = s.Config.Prompt.Separator
		src.Settings.PinExamplesFirst = s.Config.Prompt.PinExamplesFirst
		src.Settings.SquashSystemMessages = s.Config.Prompt.SquashSystemMessages
	}
	src.History = s.Chat.Messages
	return src
}

// binding resolves the current source, applying the session model override.
func (s *ChatSession) binding() (router.Binding, error) {
	b, err := s.Router.Resolve(s.Source)
	if err != nil {
		return b, err
	}
	if s.Model != "" {
		b.Model = s.Model
	}
	return b, nil
}

// counterFor picks a token counter for a model, preferring tiktoken.
func counterFor(modelName string) tokens.Counter {
	if c, err := tokens.NewTiktokenCounter(modelName); err == nil {
		return c
	}
	return tokens.HeuristicCounter{}
}

// =============================================================================
// ROUTER CONSTRUCTION
// =============================================================================

// buildRouter wires source tiers to provider adapters from config. Every
// vendor gets exactly one adapter in the registry, so sources bound to the
// same vendor share a client and its rate limiter.
func buildRouter(cfg *config.Config) (*router.Router, error) {
	reg := vendorRegistry(cfg)
	rt := router.New()

	for tag, binding := range cfg.Sources {
		src, err := router.ParseSource(tag)
		if err != nil {
			return nil, fmt.Errorf("config sources: %w", err)
		}
		adapter, err := reg.Get(binding.Vendor)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", tag, err)
		}
		modelName := binding.Model
		if modelName == "" {
			modelName = vendorModel(cfg, binding.Vendor)
		}
		rt.Bind(src, adapter, modelName)
	}

	def, err := router.ParseSource(cfg.DefaultSource)
	if err != nil {
		return nil, fmt.Errorf("config default_source: %w", err)
	}
	rt.SetDefault(def)

	return rt, nil
}

// vendorRegistry builds one adapter per supported vendor.
func vendorRegistry(cfg *config.Config) *provider.Registry {
	reg := provider.NewRegistry()

	ollama := provider.NewOllama()
	if cfg.Providers.Ollama.URL != "" {
		ollama = ollama.WithBaseURL(cfg.Providers.Ollama.URL)
	}
	reg.Register("ollama", ollama)

	reg.Register("openrouter", compatAdapter(provider.NewOpenRouter(cfg.Providers.OpenRouter.APIKey), cfg.Providers.OpenRouter))
	reg.Register("openai", compatAdapter(provider.NewOpenAI(cfg.Providers.OpenAI.APIKey), cfg.Providers.OpenAI))
	reg.Register("groq", compatAdapter(provider.NewGroq(cfg.Providers.Groq.APIKey), cfg.Providers.Groq))
	reg.Register("deepseek", compatAdapter(provider.NewDeepSeek(cfg.Providers.DeepSeek.APIKey), cfg.Providers.DeepSeek))
	reg.Register("xai", compatAdapter(provider.NewXAI(cfg.Providers.XAI.APIKey), cfg.Providers.XAI))
	reg.Register("mistral", compatAdapter(provider.NewMistral(cfg.Providers.Mistral.APIKey), cfg.Providers.Mistral))

	return reg
}

// vendorModel returns the vendor's configured default model.
func vendorModel(cfg *config.Config, vendor string) string {
	switch vendor {
	case "ollama":
		return cfg.Providers.Ollama.Model
	case "openrouter":
		return cfg.Providers.OpenRouter.Model
	case "openai":
		return cfg.Providers.OpenAI.Model
	case "groq":
		return cfg.Providers.Groq.Model
	case "deepseek":
		return cfg.Providers.DeepSeek.Model
	case "xai":
		return cfg.Providers.XAI.Model
	case "mistral":
		return cfg.Providers.Mistral.Model
	}
	return ""
}

func compatAdapter(c *provider.OpenAICompatClient, vc config.VendorConfig) provider.Adapter {
	if vc.BaseURL != "" {
		c = c.WithBaseURL(vc.BaseURL)
	}
	if vc.RPS > 0 {
		c = c.WithRateLimit(vc.RPS, 1)
	}
	return c
}

// =============================================================================
// CHAT HANDLER
// =============================================================================

// HandleChat runs the interactive chat REPL.
func HandleChat(cfg *config.Config, parser *ArgParser) error {
	if !CanPrompt() {
		return errors.New("interactive chat requires a terminal (use: loom ask)")
	}

	s, err := newChatSession(cfg, parser)
	if err != nil {
		return err
	}
	defer s.close()

	// Preset edits on disk apply on the next turn. Watching is best
	// effort; chat works without it.
	if watcher, werr := config.NewPresetWatcher(s.Presets, 500*time.Millisecond); werr == nil {
		watcher.OnReload(func() {
			fmt.Fprintln(os.Stderr, DimStyle.Render("[Presets reloaded]"))
		})
		if werr := watcher.Watch(); werr != nil {
			watcher.Close()
		} else {
			defer watcher.Close()
		}
	}

	if !s.Quiet {
		printWelcome(s)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Manager.Run(ctx)

	// First Ctrl+C during generation cancels the stream.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		for range sigChan {
			if s.CancelFunc != nil {
				s.CancelFunc()
				s.CancelFunc = nil
				fmt.Fprintln(os.Stderr, "\n"+WarningStyle.Render("[Cancelled]"))
			}
		}
	}()

	for {
		input, err := s.Input.ReadInput(PromptStyle.Render("loom> "))
		if err != nil {
			// Ctrl+C at the prompt or Ctrl+D both exit cleanly.
			fmt.Println()
			printExitSummary(s)
			return s.Tracker.EndSession()
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		s.Manager.RecordActivity()

		if strings.HasPrefix(input, "/") {
			keepGoing, err := handleSlashCommand(s, input)
			if err != nil {
				fmt.Fprintf(os.Stderr, "%s %v\n", ErrorStyle.Render("[Error]"), err)
			}
			if !keepGoing {
				printExitSummary(s)
				return s.Tracker.EndSession()
			}
			continue
		}

		if strings.EqualFold(input, "exit") || strings.EqualFold(input, "quit") {
			printExitSummary(s)
			return s.Tracker.EndSession()
		}

		if err := processMessage(s, input); err != nil {
			fmt.Fprintf(os.Stderr, "%s %v\n", ErrorStyle.Render("[Error]"), err)
		}
	}
}

// HandleAsk answers a single question and exits. The exchange is not
// persisted to the chat store.
func HandleAsk(cfg *config.Config, parser *ArgParser) error {
	query := parser.JoinPositionalsFrom(0)
	if strings.TrimSpace(query) == "" {
		return NewUsageError("ask", "missing question")
	}

	rt, err := buildRouter(cfg)
	if err != nil {
		return err
	}
	src := rt.Default()
	if tag, ok := parser.Flag("source"); ok {
		if src, err = router.ParseSource(tag); err != nil {
			return NewUsageError("ask", "%v", err)
		}
	}
	binding, err := rt.Resolve(src)
	if err != nil {
		return err
	}
	if m, ok := parser.Flag("model"); ok {
		binding.Model = m
	}

	counter := counterFor(binding.Model)
	user := model.NewUserMessage(query)

	promptSrc := prompt.Source{History: []*model.Message{user}}
	promptSrc.Settings.SquashSystemMessages = cfg.Prompt.SquashSystemMessages

	comp := prompt.NewChatCompletion()
	comp.SetTokenBudget(cfg.Budget.ContextTokens, cfg.Budget.ResponseTokens)
	ctx := context.Background()
	if err := prompt.Populate(ctx, comp, counter, provider.NewHTTPImageFetcher(), &promptSrc); err != nil {
		return err
	}

	req := &provider.Request{
		Model:     binding.Model,
		Messages:  comp.Chat(),
		MaxTokens: cfg.Budget.ResponseTokens,
	}
	return binding.Adapter.ChatStream(ctx, req, func(chunk provider.StreamChunk) {
		fmt.Print(chunk.Content)
		if chunk.Done {
			fmt.Println()
		}
	})
}

// =============================================================================
// MESSAGE PROCESSING
// =============================================================================

// processMessage assembles the prompt, streams the reply, and records the
// turn in storage and telemetry.
func processMessage(s *ChatSession, input string) error {
	binding, err := s.binding()
	if err != nil {
		return err
	}
	counter := counterFor(binding.Model)

	user := s.Chat.AddUserMessage(input)

	src := s.promptSource()

	comp := prompt.NewChatCompletion()
	comp.SetTokenBudget(s.Config.Budget.ContextTokens, s.Config.Budget.ResponseTokens)

	ctx, cancel := context.WithCancel(context.Background())
	s.CancelFunc = cancel
	defer func() {
		s.CancelFunc = nil
		cancel()
	}()

	if err := prompt.Populate(ctx, comp, counter, s.Fetcher, &src); err != nil {
		s.Chat.DetachLastMessage()
		if prompt.IsTokenBudgetExceeded(err) {
			return fmt.Errorf("prompt does not fit the token budget: %w", err)
		}
		return err
	}
	messages := comp.Chat()

	if !s.Quiet {
		fmt.Fprintf(os.Stderr, "%s %s / %s\n",
			InfoStyle.Render("[Route]"),
			RenderSourceTag(s.Source.Tag(), s.Source.IsLocal()),
			binding.Model)
	}

	reply := model.NewAssistantMessage()
	stats := model.NewStatistics()
	start := time.Now()
	first := true

	fmt.Println()
	err = binding.Adapter.ChatStream(ctx, &provider.Request{
		Model:     binding.Model,
		Messages:  messages,
		MaxTokens: s.Config.Budget.ResponseTokens,
	}, func(chunk provider.StreamChunk) {
		if first && chunk.Content != "" {
			stats.RecordFirstToken()
			first = false
		}
		fmt.Print(chunk.Content)
		reply.AppendChunk(chunk.Content)
	})
	fmt.Println()

	if err != nil {
		// Keep partial content when the stream broke mid-reply.
		var streamErr *provider.StreamError
		if !errors.As(err, &streamErr) || reply.IsEmpty() {
			s.Chat.DetachLastMessage()
			return err
		}
		fmt.Fprintf(os.Stderr, "%s stream interrupted, keeping partial reply\n",
			WarningStyle.Render("[Warning]"))
	}

	promptTokens, cerr := tokens.CountMessages(ctx, counter, messages)
	if cerr != nil {
		promptTokens = 0
	}
	completionTokens, cerr := counter.Count(ctx, reply.DisplayContent())
	if cerr != nil {
		completionTokens = 0
	}

	reply.FinalizeStream(stats)
	reply.TokenCount = completionTokens
	reply.Source = s.Source.Tag()
	reply.CostCents = s.Source.CalculateCostCents(promptTokens, completionTokens)
	s.Chat.AddMessage(reply)
	s.Chat.Source = s.Source.Tag()
	s.Chat.Model = binding.Model
	s.Chat.TokensUsed = promptTokens + completionTokens

	if err := s.Store.Append(s.Chat.ID, user); err != nil {
		fmt.Fprintf(os.Stderr, "%s save message: %v\n", WarningStyle.Render("[Warning]"), err)
	}
	if err := s.Store.Append(s.Chat.ID, reply); err != nil {
		fmt.Fprintf(os.Stderr, "%s save message: %v\n", WarningStyle.Render("[Warning]"), err)
	}

	elapsed := time.Since(start)
	s.Tracker.Record(s.Source, binding.Model, promptTokens, completionTokens, elapsed, input)
	s.Manager.MarkDirty()

	if !s.Quiet {
		printBriefStats(s.Source, promptTokens+completionTokens, elapsed, reply.CostCents)
	}
	fmt.Println()
	return nil
}

// printBriefStats shows an inline summary after each reply.
func printBriefStats(src router.Source, total int, elapsed time.Duration, costCents float64) {
	line := fmt.Sprintf("%s %s | %d tokens | %s",
		InfoStyle.Render("[Stats]"),
		RenderSourceTag(src.Tag(), src.IsLocal()),
		total,
		elapsed.Round(time.Millisecond))
	if costCents > 0 {
		line += fmt.Sprintf(" | %s¢", util.FloatToStr(costCents))
	}
	fmt.Fprintln(os.Stderr, line)
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// handleSlashCommand processes REPL commands. Returns false to exit.
func handleSlashCommand(s *ChatSession, cmd string) (bool, error) {
	parts := strings.Fields(cmd)
	args := parts[1:]

	switch strings.ToLower(parts[0]) {
	case "/help", "/h", "/?", "/":
		printChatHelp()
		return true, nil

	case "/clear", "/c":
		s.Chat.Messages = s.Chat.Messages[:0]
		s.Chat.TokensUsed = 0
		if err := s.Store.Rewrite(s.Chat.ID, nil); err != nil {
			return true, err
		}
		fmt.Println(SuccessStyle.Render("[Conversation cleared]"))
		return true, nil

	case "/source":
		return handleSourceCommand(s, args)

	case "/model", "/m":
		if len(args) == 0 {
			b, err := s.binding()
			if err != nil {
				return true, err
			}
			fmt.Printf("%s %s\n", InfoStyle.Render("[Model]"), ValueStyle.Render(b.Model))
			return true, nil
		}
		s.Model = args[0]
		fmt.Printf("%s model set to %s\n", SuccessStyle.Render("[OK]"), args[0])
		return true, nil

	case "/preset", "/p":
		return handlePresetCommand(s, args)

	case "/status", "/s":
		printStatus(s)
		return true, nil

	case "/history":
		printHistory(s)
		return true, nil

	case "/quit", "/q", "/exit":
		return false, nil

	default:
		return true, fmt.Errorf("unknown command %s (type /help)", parts[0])
	}
}

func handleSourceCommand(s *ChatSession, args []string) (bool, error) {
	if len(args) == 0 {
		fmt.Printf("%s %s (available: %s)\n",
			InfoStyle.Render("[Source]"),
			RenderSourceTag(s.Source.Tag(), s.Source.IsLocal()),
			sourceTags(s.Router))
		return true, nil
	}

	src, err := router.ParseSource(args[0])
	if err != nil {
		return true, err
	}
	if _, err := s.Router.Resolve(src); err != nil {
		return true, err
	}
	s.Source = src
	fmt.Printf("%s source set to %s\n", SuccessStyle.Render("[OK]"), src.Tag())
	return true, nil
}

func handlePresetCommand(s *ChatSession, args []string) (bool, error) {
	if len(args) == 0 {
		name := "(none)"
		if s.PresetName != "" {
			name = s.PresetName
		}
		fmt.Printf("%s %s (available: %s)\n",
			InfoStyle.Render("[Preset]"),
			ValueStyle.Render(name),
			strings.Join(s.Presets.Names(), ", "))
		return true, nil
	}

	if args[0] == "off" || args[0] == "none" {
		s.PresetName = ""
		fmt.Println(SuccessStyle.Render("[OK] preset cleared"))
		return true, nil
	}

	p, ok := s.Presets.Get(args[0])
	if !ok {
		return true, fmt.Errorf("preset %q not found", args[0])
	}
	s.PresetName = p.Name()
	fmt.Printf("%s preset set to %s\n", SuccessStyle.Render("[OK]"), p.Name())
	return true, nil
}

func sourceTags(rt *router.Router) string {
	var tags []string
	for _, src := range rt.Sources() {
		tags = append(tags, src.Tag())
	}
	return strings.Join(tags, ", ")
}

// =============================================================================
// DISPLAY
// =============================================================================

func printWelcome(s *ChatSession) {
	b, _ := s.binding()

	fmt.Println()
	fmt.Println(TitleStyle.Render("loom chat"))
	fmt.Println(RenderSeparator(30))
	fmt.Println(RenderLabel("Chat:", s.Chat.ID))
	fmt.Println(RenderLabel("Source:", s.Source.Tag()))
	fmt.Println(RenderLabel("Model:", b.Model))
	if s.PresetName != "" {
		fmt.Println(RenderLabel("Preset:", s.PresetName))
	}
	if s.Chat.MessageCount() > 0 {
		fmt.Println(RenderLabel("Resumed:", fmt.Sprintf("%d messages", s.Chat.MessageCount())))
	}
	fmt.Println()
	fmt.Println(DimStyle.Render("Type your message and press Enter. Commands: /help, /quit"))
	fmt.Println()
}

func printChatHelp() {
	commands := []struct{ cmd, desc string }{
		{"/help", "Show this help"},
		{"/clear", "Clear conversation history"},
		{"/source [tag]", "Show or switch source tier"},
		{"/model [name]", "Show or switch model"},
		{"/preset [name|off]", "Show or switch preset"},
		{"/status", "Show session status"},
		{"/history", "Show conversation history"},
		{"/quit", "Exit chat"},
	}

	fmt.Println()
	fmt.Println(TitleStyle.Render("Commands"))
	fmt.Println(RenderSeparator(20))
	for _, c := range commands {
		fmt.Printf("  %s %s\n",
			SuccessStyle.Render(util.PadRight(c.cmd, 20)),
			DimStyle.Render(c.desc))
	}
	fmt.Println()
	fmt.Println(DimStyle.Render("Ctrl+C cancels the current generation, Ctrl+D exits"))
	fmt.Println()
}

func printStatus(s *ChatSession) {
	spend := s.Tracker.CurrentSession()
	status := s.Manager.GetStatus()

	fmt.Println()
	fmt.Println(TitleStyle.Render("Session Status"))
	fmt.Println(RenderSeparator(20))
	fmt.Println(RenderLabel("Session:", status.SessionID))
	fmt.Println(RenderLabel("Duration:", session.FormatDuration(status.Duration)))
	fmt.Println(RenderLabel("Messages:", util.IntToStr(s.Chat.MessageCount())))
	fmt.Println(RenderLabel("Context:", fmt.Sprintf("%d / %d tokens", s.Chat.TokensUsed, s.Chat.MaxTokens)))
	fmt.Println(RenderLabel("Source:", s.Source.Tag()))
	fmt.Println(RenderLabel("Cost:", util.FloatToStr(spend.TotalCostCents)+"¢"))
	fmt.Println(RenderLabel("Saved:", util.FloatToStr(spend.SavingsCents)+"¢ vs frontier"))
	fmt.Println()
}

func printHistory(s *ChatSession) {
	if s.Chat.MessageCount() == 0 {
		fmt.Println(DimStyle.Render("[No messages yet]"))
		return
	}

	fmt.Println()
	fmt.Println(TitleStyle.Render("Conversation History"))
	fmt.Println(RenderSeparator(25))
	for i, msg := range s.Chat.Messages {
		role := string(msg.Role)
		switch msg.Role {
		case model.RoleUser:
			role = InfoStyle.Render("You")
		case model.RoleAssistant:
			role = SuccessStyle.Render("AI")
		case model.RoleSystem:
			role = WarningStyle.Render("System")
		}
		preview := strings.ReplaceAll(msg.Preview(100), "\n", " ")
		fmt.Printf("  %d. %s: %s\n", i+1, role, preview)
	}
	fmt.Println()
}

func printExitSummary(s *ChatSession) {
	spend := s.Tracker.CurrentSession()
	if len(spend.Tokens) == 0 {
		fmt.Println(DimStyle.Render("Goodbye!"))
		return
	}

	total := 0
	for _, tc := range spend.Tokens {
		total += tc.Prompt + tc.Completion
	}

	fmt.Println()
	fmt.Println(TitleStyle.Render("Session Summary"))
	fmt.Println(RenderSeparator(15))
	fmt.Println(RenderLabel("Messages:", util.IntToStr(s.Chat.MessageCount())))
	fmt.Println(RenderLabel("Tokens:", util.IntToStr(total)))
	fmt.Println(RenderLabel("Cost:", util.FloatToStr(spend.TotalCostCents)+"¢"))
	fmt.Println(RenderLabel("Saved:", util.FloatToStr(spend.SavingsCents)+"¢ vs frontier"))
	fmt.Println(RenderLabel("Duration:", session.FormatDuration(s.Manager.Duration())))
	fmt.Println()
	fmt.Println(DimStyle.Render("Goodbye!"))
}
