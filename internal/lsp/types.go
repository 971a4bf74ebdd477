// Package lsp implements a Language Server Protocol client: a framed
// JSON-RPC transport over a child process's stdio, a lifecycle state
// machine, request/response correlation, and per-document state tracking.
package lsp

import "encoding/json"

// SymbolKind is the integer code the LSP spec assigns to a document symbol.
type SymbolKind int

// Symbol kind codes, verbatim from the LSP specification.
const (
	SymbolKindFile          SymbolKind = 1
	SymbolKindModule        SymbolKind = 2
	SymbolKindNamespace     SymbolKind = 3
	SymbolKindPackage       SymbolKind = 4
	SymbolKindClass         SymbolKind = 5
	SymbolKindMethod        SymbolKind = 6
	SymbolKindProperty      SymbolKind = 7
	SymbolKindField         SymbolKind = 8
	SymbolKindConstructor   SymbolKind = 9
	SymbolKindEnum          SymbolKind = 10
	SymbolKindInterface     SymbolKind = 11
	SymbolKindFunction      SymbolKind = 12
	SymbolKindVariable      SymbolKind = 13
	SymbolKindConstant      SymbolKind = 14
	SymbolKindString        SymbolKind = 15
	SymbolKindNumber        SymbolKind = 16
	SymbolKindBoolean       SymbolKind = 17
	SymbolKindArray         SymbolKind = 18
	SymbolKindObject        SymbolKind = 19
	SymbolKindKey           SymbolKind = 20
	SymbolKindNull          SymbolKind = 21
	SymbolKindEnumMember    SymbolKind = 22
	SymbolKindStruct        SymbolKind = 23
	SymbolKindEvent         SymbolKind = 24
	SymbolKindOperator      SymbolKind = 25
	SymbolKindTypeParameter SymbolKind = 26
)

func (k SymbolKind) String() string {
	switch k {
	case SymbolKindFile:
		return "File"
	case SymbolKindModule:
		return "Module"
	case SymbolKindNamespace:
		return "Namespace"
	case SymbolKindPackage:
		return "Package"
	case SymbolKindClass:
		return "Class"
	case SymbolKindMethod:
		return "Method"
	case SymbolKindProperty:
		return "Property"
	case SymbolKindField:
		return "Field"
	case SymbolKindConstructor:
		return "Constructor"
	case SymbolKindEnum:
		return "Enum"
	case SymbolKindInterface:
		return "Interface"
	case SymbolKindFunction:
		return "Function"
	case SymbolKindVariable:
		return "Variable"
	case SymbolKindConstant:
		return "Constant"
	case SymbolKindEnumMember:
		return "EnumMember"
	case SymbolKindStruct:
		return "Struct"
	case SymbolKindTypeParameter:
		return "TypeParameter"
	default:
		return "Unknown"
	}
}

// Position is a zero-based line/character offset in a text document.
type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

// Range is a half-open [Start, End) span in a text document.
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// Contains reports whether line falls within r, inclusive of both ends'
// line numbers (character offsets are not considered, matching the
// "whose range spans the reference line" test used by enclosing-function
// resolution).
func (r Range) Contains(line int) bool {
	return line >= r.Start.Line && line <= r.End.Line
}

// Location identifies a range within a document.
type Location struct {
	URI   string `json:"uri"`
	Range Range  `json:"range"`
}

// Symbol is the shape document/workspace-symbol requests return, enriched
// with the fields the harvester needs: its own children (for recursive
// enclosing-function search) and an optional container name.
type Symbol struct {
	Name          string     `json:"name"`
	Kind          SymbolKind `json:"kind"`
	ContainerName string     `json:"containerName,omitempty"`
	Range         Range      `json:"range"`
	SelectionRange Range     `json:"selectionRange"`
	Children      []Symbol   `json:"children,omitempty"`
}

// documentSymbolRaw mirrors the two shapes documentSymbol responses can
// take on the wire: DocumentSymbol (hierarchical, with "range"/
// "selectionRange"/"children") or SymbolInformation (flat, with
// "location"). Both are decoded into this shape and normalized by
// normalizeSymbol.
type documentSymbolRaw struct {
	Name           string              `json:"name"`
	Kind           SymbolKind          `json:"kind"`
	ContainerName  string              `json:"containerName,omitempty"`
	Range          *Range              `json:"range,omitempty"`
	SelectionRange *Range              `json:"selectionRange,omitempty"`
	Children       []documentSymbolRaw `json:"children,omitempty"`
	Location       *Location           `json:"location,omitempty"`
}

func normalizeSymbol(raw documentSymbolRaw) Symbol {
	s := Symbol{
		Name:          raw.Name,
		Kind:          raw.Kind,
		ContainerName: raw.ContainerName,
	}
	switch {
	case raw.Range != nil:
		s.Range = *raw.Range
		if raw.SelectionRange != nil {
			s.SelectionRange = *raw.SelectionRange
		} else {
			s.SelectionRange = *raw.Range
		}
	case raw.Location != nil:
		s.Range = raw.Location.Range
		s.SelectionRange = raw.Location.Range
	}
	for _, c := range raw.Children {
		s.Children = append(s.Children, normalizeSymbol(c))
	}
	return s
}

// Diagnostic is a single entry from textDocument/publishDiagnostics.
// Diagnostics are not part of the core contract (spec §4.2.3); the client
// does not decode them and only counts publishDiagnostics notifications.
type Diagnostic struct {
	Range    Range  `json:"range"`
	Severity int    `json:"severity"`
	Code     any    `json:"code,omitempty"`
	Source   string `json:"source,omitempty"`
	Message  string `json:"message"`
}

// ReferencesResult is the payload References returns: the echoed request
// parameters, the raw locations, and timing, so the harvester can
// correlate and report progress without threading extra fields through
// every call site (design note in spec.md §9).
type ReferencesResult struct {
	URI       string
	Line      int
	Character int
	Name      string
	Locations []Location
	Duration  float64 // seconds
}

// --- wire (JSON-RPC 2.0) ---

type rpcMessage struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id,omitempty"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type rpcNotification struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// --- initialize ---

type initializeParams struct {
	ProcessID             *int               `json:"processId"`
	RootURI               string             `json:"rootUri"`
	WorkspaceFolders      []workspaceFolder  `json:"workspaceFolders"`
	Capabilities          clientCapabilities `json:"capabilities"`
}

type workspaceFolder struct {
	URI  string `json:"uri"`
	Name string `json:"name"`
}

type clientCapabilities struct {
	TextDocument textDocumentClientCapabilities `json:"textDocument"`
	Workspace    workspaceClientCapabilities    `json:"workspace"`
}

type textDocumentClientCapabilities struct {
	Synchronization synchronizationCapability `json:"synchronization"`
	Completion      completionCapability      `json:"completion"`
	Hover           hoverCapability           `json:"hover"`
	Definition      definitionCapability      `json:"definition"`
	References      referencesCapability     `json:"references"`
	DocumentSymbol  documentSymbolCapability  `json:"documentSymbol"`
}

type synchronizationCapability struct {
	WillSave bool `json:"willSave"`
	DidSave  bool `json:"didSave"`
}

type completionCapability struct {
	DynamicRegistration bool `json:"dynamicRegistration"`
}

type hoverCapability struct {
	ContentFormat []string `json:"contentFormat"`
}

type definitionCapability struct {
	DynamicRegistration bool `json:"dynamicRegistration"`
}

type referencesCapability struct {
	DynamicRegistration bool `json:"dynamicRegistration"`
}

type documentSymbolCapability struct {
	HierarchicalDocumentSymbolSupport bool `json:"hierarchicalDocumentSymbolSupport"`
}

type workspaceClientCapabilities struct {
	WorkspaceEdit      workspaceEditCapability      `json:"workspaceEdit"`
	DidChangeWatchedFiles didChangeWatchedFilesCapability `json:"didChangeWatchedFiles"`
}

type workspaceEditCapability struct {
	DocumentChanges bool `json:"documentChanges"`
}

type didChangeWatchedFilesCapability struct {
	DynamicRegistration bool `json:"dynamicRegistration"`
}

// --- text document sync ---

type textDocumentIdentifier struct {
	URI string `json:"uri"`
}

type textDocumentItem struct {
	URI        string `json:"uri"`
	LanguageID string `json:"languageId"`
	Version    int    `json:"version"`
	Text       string `json:"text"`
}

type versionedTextDocumentIdentifier struct {
	URI     string `json:"uri"`
	Version int    `json:"version"`
}

type didOpenParams struct {
	TextDocument textDocumentItem `json:"textDocument"`
}

type didChangeParams struct {
	TextDocument   versionedTextDocumentIdentifier  `json:"textDocument"`
	ContentChanges []textDocumentContentChangeEvent `json:"contentChanges"`
}

type textDocumentContentChangeEvent struct {
	Text string `json:"text"`
}

type didCloseParams struct {
	TextDocument textDocumentIdentifier `json:"textDocument"`
}

// --- requests ---

type documentSymbolParams struct {
	TextDocument textDocumentIdentifier `json:"textDocument"`
}

type textDocumentPositionParams struct {
	TextDocument textDocumentIdentifier `json:"textDocument"`
	Position     Position               `json:"position"`
}

type referenceContext struct {
	IncludeDeclaration bool `json:"includeDeclaration"`
}

type referencesParams struct {
	TextDocument textDocumentIdentifier `json:"textDocument"`
	Position     Position               `json:"position"`
	Context      referenceContext       `json:"context"`
}

// logMessageParams mirrors window/logMessage notification params.
type logMessageParams struct {
	Type    int    `json:"type"`
	Message string `json:"message"`
}
