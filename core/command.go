package core

import (
	"errors"
	"sync"
)

// CommandHandler is a function that handles a command with raw frame data
// The handler is responsible for decoding its own arguments from the data pointer
type CommandHandler func(data *[]byte) error

// Command represents a bench console command or response
type Command struct {
	ID      uint16
	Name    string
	Format  string // Format string for dictionary (e.g., "oid=%c pin=%u")
	Handler CommandHandler
}

// CommandRegistry holds all registered commands. IDs are handed out in
// registration order and line N of the dictionary describes ID N.
type CommandRegistry struct {
	mu         sync.RWMutex
	commands   map[uint16]*Command
	nameToID   map[string]uint16
	nextID     uint16
	dictionary []byte
}

var globalRegistry = NewCommandRegistry()

// NewCommandRegistry creates a new command registry
func NewCommandRegistry() *CommandRegistry {
	return &CommandRegistry{
		commands: make(map[uint16]*Command),
		nameToID: make(map[string]uint16),
	}
}

// RegisterCommand registers a command handler with the global registry.
// A nil handler declares a response message (firmware to host).
func RegisterCommand(name string, format string, handler CommandHandler) uint16 {
	return globalRegistry.Register(name, format, handler)
}

// Register adds a command to the registry
func (r *CommandRegistry) Register(name string, format string, handler CommandHandler) uint16 {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, exists := r.nameToID[name]; exists {
		return id
	}

	id := r.nextID
	r.nextID++

	r.commands[id] = &Command{
		ID:      id,
		Name:    name,
		Format:  format,
		Handler: handler,
	}
	r.nameToID[name] = id

	line := name
	if format != "" {
		line += " " + format
	}
	r.dictionary = append(r.dictionary, line...)
	r.dictionary = append(r.dictionary, '\n')

	return id
}

// GetCommand retrieves a command by ID
func (r *CommandRegistry) GetCommand(id uint16) (*Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cmd, ok := r.commands[id]
	return cmd, ok
}

// GetCommandByName retrieves a command by name
func (r *CommandRegistry) GetCommandByName(name string) (*Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.nameToID[name]
	if !ok {
		return nil, false
	}
	return r.commands[id], true
}

// Count returns the number of registered commands
func (r *CommandRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.commands)
}

// Dispatch calls the appropriate command handler
func (r *CommandRegistry) Dispatch(cmdID uint16, data *[]byte) error {
	cmd, ok := r.GetCommand(cmdID)
	if !ok {
		return errors.New("unknown command ID: " + itoa(int(cmdID)))
	}
	if cmd.Handler == nil {
		return errors.New("response received as command: " + cmd.Name)
	}
	return cmd.Handler(data)
}

// DictionaryChunk returns up to count bytes of the dictionary text
// starting at offset; an empty chunk marks the end.
func (r *CommandRegistry) DictionaryChunk(offset uint32, count uint8) []byte {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if offset >= uint32(len(r.dictionary)) {
		return nil
	}
	end := offset + uint32(count)
	if end > uint32(len(r.dictionary)) {
		end = uint32(len(r.dictionary))
	}
	return r.dictionary[offset:end]
}

// DispatchCommand is a convenience function using the global registry
func DispatchCommand(cmdID uint16, data *[]byte) error {
	return globalRegistry.Dispatch(cmdID, data)
}

// GetGlobalRegistry returns the global command registry
func GetGlobalRegistry() *CommandRegistry {
	return globalRegistry
}
