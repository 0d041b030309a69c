package phlux

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sync"

	"github.com/grovetools/phlux/errors"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Format selects the encoding of saved scopes.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
	FormatTOML Format = "toml"
)

// ParseFormat validates a format name. The empty string selects YAML.
func ParseFormat(name string) (Format, error) {
	switch Format(name) {
	case "", FormatYAML:
		return FormatYAML, nil
	case FormatJSON, FormatTOML:
		return Format(name), nil
	}
	return "", errors.New(errors.ErrCodeInvalidInput, fmt.Sprintf("unknown format '%s'", name)).
		WithDetail("format", name)
}

// SavedTask is a persisted task descriptor.
type SavedTask struct {
	ID   TaskID `yaml:"id" json:"id" toml:"id"`
	Kind string `yaml:"kind" json:"kind" toml:"kind"`
	Data string `yaml:"data" json:"data" toml:"data"`
}

// SavedScope is the persisted form of a Record. Cancel handles are not saved;
// they are recreated when the scope is restored.
type SavedScope struct {
	StateKind string      `yaml:"state_kind" json:"state_kind" toml:"state_kind"`
	State     string      `yaml:"state" json:"state" toml:"state"`
	Tasks     []SavedTask `yaml:"tasks,omitempty" json:"tasks,omitempty" toml:"tasks,omitempty"`
}

// Bundle is what a component hands to its persistence collaborator: the scope
// key and the saved scope.
type Bundle struct {
	Key   Key        `yaml:"key" json:"key" toml:"key"`
	Scope SavedScope `yaml:"scope" json:"scope" toml:"scope"`
}

// Codec converts records to and from their saved form. State and task types
// are registered up front with RegisterState and RegisterTask.
type Codec struct {
	format Format

	mu     sync.RWMutex
	states map[string]func([]byte) (State, error)
	tasks  map[string]func([]byte) (Task, error)
}

// NewCodec returns a codec without registered kinds.
func NewCodec(format Format) *Codec {
	return &Codec{
		format: format,
		states: make(map[string]func([]byte) (State, error)),
		tasks:  make(map[string]func([]byte) (Task, error)),
	}
}

// Format returns the encoding used by c.
func (c *Codec) Format() Format {
	return c.format
}

// RegisterState makes states of type S decodable. S must be a value type;
// registering a pointer or interface type panics.
func RegisterState[S Persistable](c *Codec) {
	kind := kindOf[S]()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.states[kind] = func(data []byte) (State, error) {
		var s S
		if err := c.unmarshal(data, &s); err != nil {
			return nil, err
		}
		return s, nil
	}
}

// RegisterTask makes task descriptors of type T decodable. Like RegisterState
// it panics unless T is a value type.
func RegisterTask[T interface {
	Task
	Persistable
}](c *Codec) {
	kind := kindOf[T]()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tasks[kind] = func(data []byte) (Task, error) {
		var t T
		if err := c.unmarshal(data, &t); err != nil {
			return nil, err
		}
		return t, nil
	}
}

// kindOf returns the kind of the zero value of P. Decoders store into a
// fresh P, so a nil pointer or interface would have nothing to decode into.
func kindOf[P Persistable]() string {
	t := reflect.TypeOf((*P)(nil)).Elem()
	if k := t.Kind(); k == reflect.Pointer || k == reflect.Interface {
		panic(fmt.Sprintf("phlux: cannot register %s: persisted types must be value types", t))
	}
	var zero P
	return zero.Kind()
}

func (c *Codec) marshal(v any) ([]byte, error) {
	switch c.format {
	case FormatJSON:
		return json.Marshal(v)
	case FormatTOML:
		return toml.Marshal(v)
	default:
		return yaml.Marshal(v)
	}
}

func (c *Codec) unmarshal(data []byte, v any) error {
	switch c.format {
	case FormatJSON:
		return json.Unmarshal(data, v)
	case FormatTOML:
		return toml.Unmarshal(data, v)
	default:
		return yaml.Unmarshal(data, v)
	}
}

// Encode converts rec to its saved form.
func (c *Codec) Encode(rec *Record) (SavedScope, error) {
	p, ok := rec.State().(Persistable)
	if !ok {
		return SavedScope{}, errors.NotPersistable(rec.State())
	}
	data, err := c.marshal(rec.State())
	if err != nil {
		return SavedScope{}, errors.CodecFailed("encode state", err).WithDetail("kind", p.Kind())
	}
	saved := SavedScope{StateKind: p.Kind(), State: string(data)}

	for _, id := range rec.TaskIDs() {
		task, _ := rec.Task(id)
		tp, ok := task.(Persistable)
		if !ok {
			return SavedScope{}, errors.NotPersistable(task).WithDetail("task", int(id))
		}
		data, err := c.marshal(task)
		if err != nil {
			return SavedScope{}, errors.CodecFailed("encode task", err).WithDetail("task", int(id))
		}
		saved.Tasks = append(saved.Tasks, SavedTask{ID: id, Kind: tp.Kind(), Data: string(data)})
	}
	return saved, nil
}

// Decode converts a saved scope back to a record ready for Store.Restore.
func (c *Codec) Decode(saved SavedScope) (*Record, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	decodeState, ok := c.states[saved.StateKind]
	if !ok {
		return nil, errors.UnknownKind(saved.StateKind)
	}
	state, err := decodeState([]byte(saved.State))
	if err != nil {
		return nil, errors.CodecFailed("decode state", err).WithDetail("kind", saved.StateKind)
	}

	tasks := make(map[TaskID]Task, len(saved.Tasks))
	for _, st := range saved.Tasks {
		decodeTask, ok := c.tasks[st.Kind]
		if !ok {
			return nil, errors.UnknownKind(st.Kind).WithDetail("task", int(st.ID))
		}
		task, err := decodeTask([]byte(st.Data))
		if err != nil {
			return nil, errors.CodecFailed("decode task", err).WithDetail("task", int(st.ID))
		}
		tasks[st.ID] = task
	}
	return NewRecord(state, tasks), nil
}

// Marshal encodes a bundle.
func (c *Codec) Marshal(b *Bundle) ([]byte, error) {
	data, err := c.marshal(b)
	if err != nil {
		return nil, errors.CodecFailed("encode bundle", err).WithDetail("scope", string(b.Key))
	}
	return data, nil
}

// Unmarshal decodes a bundle produced by Marshal.
func (c *Codec) Unmarshal(data []byte) (*Bundle, error) {
	var b Bundle
	if err := c.unmarshal(data, &b); err != nil {
		return nil, errors.CodecFailed("decode bundle", err)
	}
	if b.Key == "" {
		return nil, errors.New(errors.ErrCodeCodecFailed, "bundle has no scope key")
	}
	return &b, nil
}
