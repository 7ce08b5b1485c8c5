package extension

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Message types sent by the extension.
const (
	TypeNavigation    = "navigation"
	TypeTabClosed     = "tabClosed"
	TypeAiAllow       = "aiAllow"
	TypeStorageGet    = "storageGet"
	TypeStorageSet    = "storageSet"
	TypeStorageRemove = "storageRemove"
	TypeBlockPage     = "blockPage"
	TypeResponse      = "response"
)

// Message types sent by the daemon: commands expecting a response, and
// replies to extension requests.
const (
	CmdCloseTab       = "closeTab"
	CmdOpenTab        = "openTab"
	CmdReloadTab      = "reloadTab"
	CmdExtractContent = "extractContent"
	CmdPrompt         = "prompt"

	ReplyAiAllowResult = "aiAllowResult"
	ReplyStorageValue  = "storageValue"
	ReplyAck           = "ack"
)

// Error codes carried in response and ack messages.
const (
	codeTabNotFound      = "tab_not_found"
	codePermissionDenied = "permission_denied"
	codeDisconnected     = "disconnected"
	codeUnknownType      = "unknown_type"
	codeBadRequest       = "bad_request"
)

var (
	ErrNotConnected     = errors.New("extension not connected")
	ErrTabNotFound      = errors.New("tab not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrTimeout          = errors.New("extension did not respond")
	ErrCommandFailed    = errors.New("extension command failed")
)

// IncomingMsg is a message from the extension to the daemon.
type IncomingMsg struct {
	Type  string `json:"type"`
	ID    string `json:"id,omitempty"`
	TabID int    `json:"tabId,omitempty"`
	URL   string `json:"url,omitempty"`
	// storage requests
	Key   string          `json:"key,omitempty"`
	Value json.RawMessage `json:"value,omitempty"`
	// aiAllow / blockPage / extractContent response
	Scope       string `json:"scope,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Hostname    string `json:"hostname,omitempty"`
	// command response fields
	OK     *bool  `json:"ok,omitempty"`
	Error  string `json:"error,omitempty"`
	Choice string `json:"choice,omitempty"`
}

// OutgoingMsg is a command or reply from the daemon to the extension.
type OutgoingMsg struct {
	Type     string          `json:"type"`
	ID       string          `json:"id"`
	TabID    int             `json:"tabId,omitempty"`
	URL      string          `json:"url,omitempty"`
	Hostname string          `json:"hostname,omitempty"`
	OK       *bool           `json:"ok,omitempty"`
	Value    json.RawMessage `json:"value,omitempty"`
	Error    string          `json:"error,omitempty"`
}

func boolPtr(b bool) *bool { return &b }

// responseError maps a response to a typed error; nil for success.
func responseError(resp IncomingMsg) error {
	if resp.Error == "" && (resp.OK == nil || *resp.OK) {
		return nil
	}
	switch resp.Error {
	case codeTabNotFound:
		return ErrTabNotFound
	case codePermissionDenied:
		return ErrPermissionDenied
	case codeDisconnected:
		return ErrNotConnected
	case "":
		return ErrCommandFailed
	default:
		return fmt.Errorf("%w: %s", ErrCommandFailed, resp.Error)
	}
}
