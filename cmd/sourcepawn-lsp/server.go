package main

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/sourcepawn-studio/spls/internal/config"
	"github.com/sourcepawn-studio/spls/internal/diagnostic"
	"github.com/sourcepawn-studio/spls/internal/ids"
	"github.com/sourcepawn-studio/spls/internal/service"
	"github.com/sourcepawn-studio/spls/internal/vfs"
)

// Server dispatches JSON-RPC requests onto a service.Service, the way
// pkg/lsp/server.go's Server dispatches onto gopls — except every method
// here is answered directly instead of being forwarded to a second process,
// since this server has no downstream language tool to proxy to.
type Server struct {
	svc    *service.Service
	fs     vfs.FS
	logger *zap.Logger

	connMu sync.RWMutex
	conn   jsonrpc2.Conn

	pathMu     sync.RWMutex
	pathToFile map[string]ids.FileID

	watcher *diskWatcher
	cancel  context.CancelFunc
}

func NewServer(svc *service.Service, fs vfs.FS, logger *zap.Logger) *Server {
	return &Server{svc: svc, fs: fs, logger: logger, pathToFile: make(map[string]ids.FileID)}
}

// applyChange is the one path every caller (didOpen/didChange, the startup
// disk scan, the fsnotify watcher) uses to feed the service — it also
// records the path->FileID mapping requests address files by, since
// service.Service only ever returns FileIDs in the order of the paths it
// was given, never a reverse lookup.
func (s *Server) applyChange(ctx context.Context, change service.Change) []ids.FileID {
	assigned := s.svc.ApplyChange(ctx, change)
	s.pathMu.Lock()
	for i, fc := range change.FilesChanged {
		if i < len(assigned) {
			s.pathToFile[fc.Path] = assigned[i]
		}
	}
	s.pathMu.Unlock()
	return assigned
}

func (s *Server) SetConn(conn jsonrpc2.Conn) {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	s.conn = conn
}

func (s *Server) getConn() jsonrpc2.Conn {
	s.connMu.RLock()
	defer s.connMu.RUnlock()
	return s.conn
}

// Handler returns the jsonrpc2.Handler Conn.Go dispatches every inbound
// request/notification to.
func (s *Server) Handler() jsonrpc2.Handler {
	return jsonrpc2.ReplyHandler(s.handleRequest)
}

func (s *Server) handleRequest(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	s.logger.Sugar().Debugf("request: %s", req.Method())

	switch req.Method() {
	case protocol.MethodInitialize:
		return s.handleInitialize(ctx, reply, req)
	case protocol.MethodInitialized:
		return reply(ctx, nil, nil)
	case protocol.MethodShutdown:
		return s.handleShutdown(ctx, reply, req)
	case protocol.MethodExit:
		return reply(ctx, nil, nil)
	case protocol.MethodTextDocumentDidOpen:
		return s.handleDidOpen(ctx, reply, req)
	case protocol.MethodTextDocumentDidChange:
		return s.handleDidChange(ctx, reply, req)
	case protocol.MethodTextDocumentDidClose:
		return s.handleDidClose(ctx, reply, req)
	case protocol.MethodTextDocumentDefinition:
		return s.handleDefinition(ctx, reply, req)
	case protocol.MethodTextDocumentReferences:
		return s.handleReferences(ctx, reply, req)
	case protocol.MethodTextDocumentRename:
		return s.handleRename(ctx, reply, req)
	case protocol.MethodTextDocumentHover:
		return s.handleHover(ctx, reply, req)
	case protocol.MethodTextDocumentSignatureHelp:
		return s.handleSignatureHelp(ctx, reply, req)
	case protocol.MethodTextDocumentDocumentSymbol:
		return s.handleDocumentSymbol(ctx, reply, req)
	case protocol.MethodTextDocumentSemanticTokensFull:
		return s.handleSemanticTokensFull(ctx, reply, req)
	case protocol.MethodTextDocumentCompletion:
		return s.handleCompletion(ctx, reply, req)
	default:
		s.logger.Sugar().Debugf("unhandled method: %s", req.Method())
		return reply(ctx, nil, nil)
	}
}

func (s *Server) handleInitialize(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params protocol.InitializeParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return reply(ctx, nil, fmt.Errorf("invalid initialize params: %w", err))
	}

	if params.RootURI != "" {
		root := params.RootURI.Filename()
		cfg, err := config.Load(root, nil)
		if err != nil {
			s.logger.Sugar().Warnf("loading configuration for %s: %v", root, err)
			cfg = config.DefaultConfig()
		}
		s.svc.ApplyChange(ctx, service.Change{Roots: cfg.IncludesDirectories})
		scanWorkspace(ctx, s, root, cfg.IncludesDirectories, s.logger)

		watchCtx, cancel := context.WithCancel(context.Background())
		s.cancel = cancel
		dirs := append([]string{root}, cfg.IncludesDirectories...)
		if w, err := newDiskWatcher(watchCtx, s, dirs, s.logger); err != nil {
			s.logger.Sugar().Warnf("starting file watcher: %v", err)
		} else {
			s.watcher = w
		}
	}

	result := protocol.InitializeResult{
		Capabilities: protocol.ServerCapabilities{
			TextDocumentSync: protocol.TextDocumentSyncOptions{
				OpenClose: true,
				Change:    protocol.TextDocumentSyncKindFull,
			},
			CompletionProvider: &protocol.CompletionOptions{
				TriggerCharacters: []string{".", ":", "\""},
			},
			HoverProvider:              true,
			DefinitionProvider:         true,
			ReferencesProvider:         true,
			RenameProvider:             true,
			DocumentSymbolProvider:     true,
			SignatureHelpProvider:      &protocol.SignatureHelpOptions{TriggerCharacters: []string{"(", ","}},
			SemanticTokensProvider: &protocol.SemanticTokensOptions{
				Legend: protocol.SemanticTokensLegend{
					TokenTypes:     semanticTokenLegend,
					TokenModifiers: semanticTokenModifiers,
				},
				Full: true,
			},
		},
		ServerInfo: &protocol.ServerInfo{
			Name:    "sourcepawn-lsp",
			Version: "0.1.0",
		},
	}
	return reply(ctx, result, nil)
}

func (s *Server) handleShutdown(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	if s.watcher != nil {
		_ = s.watcher.Close()
	}
	if s.cancel != nil {
		s.cancel()
	}
	return reply(ctx, nil, nil)
}

func (s *Server) handleDidOpen(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params protocol.DidOpenTextDocumentParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return reply(ctx, nil, err)
	}
	path := uriToPath(params.TextDocument.URI)
	text := params.TextDocument.Text
	file := s.applyChange(ctx, service.Change{FilesChanged: []service.FileChange{{Path: path, Text: &text}}})
	s.publishDiagnostics(ctx, params.TextDocument.URI, file)
	return reply(ctx, nil, nil)
}

func (s *Server) handleDidChange(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params protocol.DidChangeTextDocumentParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return reply(ctx, nil, err)
	}
	if len(params.ContentChanges) == 0 {
		return reply(ctx, nil, nil)
	}
	// Full-document sync only (TextDocumentSyncKindFull above): the last
	// entry always carries the complete new text.
	text := params.ContentChanges[len(params.ContentChanges)-1].Text
	path := uriToPath(params.TextDocument.URI)
	file := s.applyChange(ctx, service.Change{FilesChanged: []service.FileChange{{Path: path, Text: &text}}})
	s.publishDiagnostics(ctx, params.TextDocument.URI, file)
	return reply(ctx, nil, nil)
}

func (s *Server) handleDidClose(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params protocol.DidCloseTextDocumentParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return reply(ctx, nil, err)
	}
	return reply(ctx, nil, nil)
}

// publishDiagnostics sends the diagnostics returned by a goto-definition at
// offset 0 of files[0]. Those are the resolver's call-site diagnostics, which
// appear only when that offset sits on the callee of a call; preprocessor and
// parse errors are not published.
func (s *Server) publishDiagnostics(ctx context.Context, uri protocol.DocumentURI, files []ids.FileID) {
	conn := s.getConn()
	if conn == nil || len(files) == 0 {
		return
	}
	_, diags, err := s.svc.GotoDefinition(ctx, ids.FilePosition{File: files[0], Offset: 0})
	if err != nil {
		return
	}
	params := protocol.PublishDiagnosticsParams{URI: uri, Diagnostics: toProtocolDiagnostics(diags)}
	_ = conn.Notify(ctx, protocol.MethodTextDocumentPublishDiagnostics, params)
}

func toProtocolDiagnostics(diags []diagnostic.Diagnostic) []protocol.Diagnostic {
	out := make([]protocol.Diagnostic, 0, len(diags))
	for _, d := range diags {
		out = append(out, protocol.Diagnostic{
			Severity: protocol.DiagnosticSeverityWarning,
			Source:   "sourcepawn-lsp",
			Message:  diagnosticMessage(d),
		})
	}
	return out
}

func (s *Server) handleDefinition(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params protocol.DefinitionParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return reply(ctx, nil, err)
	}
	pos, ok := s.filePosition(params.TextDocument.URI, params.Position)
	if !ok {
		return reply(ctx, nil, nil)
	}
	targets, _, err := s.svc.GotoDefinition(ctx, pos)
	if err != nil {
		return reply(ctx, nil, err)
	}
	locs := make([]protocol.Location, 0, len(targets))
	for _, t := range targets {
		if loc, ok := s.locationFor(t.File, t.Range.Start, t.Range.End); ok {
			locs = append(locs, loc)
		}
	}
	return reply(ctx, locs, nil)
}

func (s *Server) handleReferences(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params protocol.ReferenceParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return reply(ctx, nil, err)
	}
	pos, ok := s.filePosition(params.TextDocument.URI, params.Position)
	if !ok {
		return reply(ctx, nil, nil)
	}
	refs, err := s.svc.References(ctx, pos)
	if err != nil {
		return reply(ctx, nil, err)
	}
	locs := make([]protocol.Location, 0, len(refs))
	for _, r := range refs {
		if loc, ok := s.locationFor(r.File, r.Start, r.End); ok {
			locs = append(locs, loc)
		}
	}
	return reply(ctx, locs, nil)
}

func (s *Server) handleRename(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params protocol.RenameParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return reply(ctx, nil, err)
	}
	pos, ok := s.filePosition(params.TextDocument.URI, params.Position)
	if !ok {
		return reply(ctx, nil, nil)
	}
	change, err := s.svc.Rename(ctx, pos, params.NewName)
	if err != nil {
		return reply(ctx, nil, err)
	}
	if change == nil {
		return reply(ctx, nil, nil)
	}

	edits := make(map[protocol.DocumentURI][]protocol.TextEdit, len(change.Files))
	for _, fe := range change.Files {
		path, ok := s.fs.Path(fe.File)
		if !ok {
			continue
		}
		text, _ := s.fs.FileText(fe.File)
		li := newLineIndex(text)
		uri := pathToURI(path)
		for _, e := range fe.Edits {
			edits[uri] = append(edits[uri], protocol.TextEdit{
				Range:   protocol.Range{Start: li.Position(e.Range.Start), End: li.Position(e.Range.End)},
				NewText: e.NewText,
			})
		}
	}
	return reply(ctx, protocol.WorkspaceEdit{Changes: edits}, nil)
}

func (s *Server) handleHover(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params protocol.HoverParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return reply(ctx, nil, err)
	}
	pos, ok := s.filePosition(params.TextDocument.URI, params.Position)
	if !ok {
		return reply(ctx, nil, nil)
	}
	hover, err := s.svc.Hover(ctx, pos)
	if err != nil || hover == nil {
		return reply(ctx, nil, err)
	}
	text, _ := s.fs.FileText(pos.File)
	li := newLineIndex(text)
	rng := protocol.Range{Start: li.Position(hover.Target.Start), End: li.Position(hover.Target.End)}
	return reply(ctx, protocol.Hover{
		Contents: protocol.MarkupContent{Kind: protocol.PlainText, Value: hover.Contents},
		Range:    &rng,
	}, nil)
}

func (s *Server) handleSignatureHelp(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params protocol.SignatureHelpParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return reply(ctx, nil, err)
	}
	pos, ok := s.filePosition(params.TextDocument.URI, params.Position)
	if !ok {
		return reply(ctx, nil, nil)
	}
	help, err := s.svc.SignatureHelp(ctx, pos)
	if err != nil || help == nil {
		return reply(ctx, nil, err)
	}
	active := uint32(help.ActiveParameter)
	result := protocol.SignatureHelp{
		Signatures: []protocol.SignatureInformation{{
			Label: help.Label,
		}},
		ActiveParameter: active,
	}
	return reply(ctx, result, nil)
}

func (s *Server) handleDocumentSymbol(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params protocol.DocumentSymbolParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return reply(ctx, nil, err)
	}
	file, ok := s.fileFor(params.TextDocument.URI)
	if !ok {
		return reply(ctx, nil, nil)
	}
	symbols, err := s.svc.DocumentSymbols(ctx, file)
	if err != nil {
		return reply(ctx, nil, err)
	}
	text, _ := s.fs.FileText(file)
	li := newLineIndex(text)
	out := make([]protocol.DocumentSymbol, 0, len(symbols))
	for _, sym := range symbols {
		out = append(out, toProtocolSymbol(sym, li))
	}
	return reply(ctx, out, nil)
}

func toProtocolSymbol(sym service.Symbol, li *lineIndex) protocol.DocumentSymbol {
	rng := protocol.Range{Start: li.Position(sym.Range.Start), End: li.Position(sym.Range.End)}
	children := make([]protocol.DocumentSymbol, 0, len(sym.Children))
	for _, c := range sym.Children {
		children = append(children, toProtocolSymbol(c, li))
	}
	return protocol.DocumentSymbol{
		Name:           sym.Name,
		Detail:         sym.Detail,
		Kind:           itemtreeKindToSymbolKind(sym.Kind),
		Range:          rng,
		SelectionRange: rng,
		Children:       children,
	}
}

func (s *Server) handleSemanticTokensFull(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params protocol.SemanticTokensParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return reply(ctx, nil, err)
	}
	file, ok := s.fileFor(params.TextDocument.URI)
	if !ok {
		return reply(ctx, nil, nil)
	}
	toks, err := s.svc.SemanticTokens(ctx, file)
	if err != nil {
		return reply(ctx, nil, err)
	}
	text, _ := s.fs.FileText(file)
	li := newLineIndex(text)
	return reply(ctx, protocol.SemanticTokens{Data: encodeSemanticTokens(toks, li)}, nil)
}

// encodeSemanticTokens produces the wire's relative 5-uint32-per-token
// encoding, grounded on bufbuild-buf/private/buf/buflsp/server.go's
// SemanticTokensFull delta-encoding loop.
func encodeSemanticTokens(toks []service.HighlightRange, li *lineIndex) []uint32 {
	sortHighlightRanges(toks)
	data := make([]uint32, 0, len(toks)*5)
	var prevLine, prevChar uint32
	for _, t := range toks {
		start := li.Position(t.Range.Start)
		length := t.Range.End - t.Range.Start
		deltaLine := start.Line - prevLine
		deltaChar := start.Character
		if deltaLine == 0 {
			deltaChar = start.Character - prevChar
		}
		data = append(data, deltaLine, deltaChar, length, semanticTokenTypeIndex(t.Kind), semanticTokenModifierBits(t.Modifiers))
		prevLine, prevChar = start.Line, start.Character
	}
	return data
}

func sortHighlightRanges(toks []service.HighlightRange) {
	for i := 1; i < len(toks); i++ {
		for j := i; j > 0 && toks[j].Range.Start < toks[j-1].Range.Start; j-- {
			toks[j], toks[j-1] = toks[j-1], toks[j]
		}
	}
}

func (s *Server) handleCompletion(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params protocol.CompletionParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return reply(ctx, nil, err)
	}
	pos, ok := s.filePosition(params.TextDocument.URI, params.Position)
	if !ok {
		return reply(ctx, nil, nil)
	}
	trigger := ""
	if params.Context != nil {
		trigger = params.Context.TriggerCharacter
	}
	res, err := s.svc.Completions(ctx, pos, trigger)
	if err != nil {
		return reply(ctx, nil, err)
	}
	items := make([]protocol.CompletionItem, 0, len(res.Items))
	for _, it := range res.Items {
		items = append(items, protocol.CompletionItem{Label: it.Name, Kind: completionKindFor(it)})
	}
	return reply(ctx, protocol.CompletionList{Items: items}, nil)
}

// filePosition resolves a wire TextDocumentPositionParams pair to the core's
// own (FileID, byte offset) representation.
func (s *Server) filePosition(uri protocol.DocumentURI, pos protocol.Position) (ids.FilePosition, bool) {
	file, ok := s.fileFor(uri)
	if !ok {
		return ids.FilePosition{}, false
	}
	text, ok := s.fs.FileText(file)
	if !ok {
		return ids.FilePosition{}, false
	}
	return ids.FilePosition{File: file, Offset: newLineIndex(text).Offset(pos)}, true
}

// fileFor resolves a request's URI to the FileID applyChange assigned it
// when the file was opened or picked up by the startup disk scan — every
// handler below only ever addresses a file the client has opened or that
// scanWorkspace already fed into the service, so this map is always
// populated by the time a request arrives for it.
func (s *Server) fileFor(uri protocol.DocumentURI) (ids.FileID, bool) {
	s.pathMu.RLock()
	defer s.pathMu.RUnlock()
	file, ok := s.pathToFile[uriToPath(uri)]
	return file, ok
}

func (s *Server) locationFor(file ids.FileID, start, end uint32) (protocol.Location, bool) {
	path, ok := s.fs.Path(file)
	if !ok {
		return protocol.Location{}, false
	}
	text, _ := s.fs.FileText(file)
	li := newLineIndex(text)
	return protocol.Location{
		URI:   pathToURI(path),
		Range: protocol.Range{Start: li.Position(start), End: li.Position(end)},
	}, true
}

func diagnosticMessage(d diagnostic.Diagnostic) string {
	if d.Text != "" {
		return d.Text
	}
	return fmt.Sprintf("%s: %s", diagnosticKindName(d.Kind), d.Name)
}

func diagnosticKindName(k diagnostic.Kind) string {
	switch k {
	case diagnostic.UnresolvedInclude:
		return "unresolved include"
	case diagnostic.UnresolvedMacro:
		return "unresolved macro"
	case diagnostic.UnresolvedField:
		return "unresolved field"
	case diagnostic.UnresolvedMethodCall:
		return "unresolved method call"
	case diagnostic.UnresolvedConstructor:
		return "unresolved constructor"
	case diagnostic.UnresolvedNamedArg:
		return "unresolved named argument"
	case diagnostic.UnresolvedInherit:
		return "unresolved inherit"
	case diagnostic.IncorrectNumberOfArguments:
		return "incorrect number of arguments"
	case diagnostic.InvalidUseOfThis:
		return "invalid use of this"
	default:
		return "diagnostic"
	}
}
