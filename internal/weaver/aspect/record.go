// Package aspect holds the registry records shared between generation
// passes and resolves aspect references into advice.
package aspect

import (
	"context"
	"errors"
	"strings"

	"github.com/weave-lang/weave/internal/companion"
	werrors "github.com/weave-lang/weave/internal/weaver/errors"
)

// RecordKind tells what a registry record describes.
type RecordKind string

const (
	KindAspect    RecordKind = "aspect"
	KindInterface RecordKind = "interface"
	KindEnum      RecordKind = "enum"
)

// Record is the registry value stored for every //weave:register path.
type Record struct {
	Kind       RecordKind          `cbor:"1,keyasint"`
	Name       string              `cbor:"2,keyasint"`
	Package    string              `cbor:"3,keyasint,omitempty"`
	ImportPath string              `cbor:"4,keyasint,omitempty"`
	Docs       []string            `cbor:"5,keyasint,omitempty"`
	Methods    []MethodRecord      `cbor:"6,keyasint,omitempty"`
	Imports    []ImportRecord      `cbor:"7,keyasint,omitempty"`
	Supertypes []string            `cbor:"8,keyasint,omitempty"`
	Members    map[string]Location `cbor:"9,keyasint,omitempty"`
}

// MethodRecord is one method of a registered type. Signature is the
// method's function type as source, e.g. "func(x int) (int, error)".
// Body is the block source and stays empty for interface methods.
type MethodRecord struct {
	Name      string   `cbor:"1,keyasint"`
	Docs      []string `cbor:"2,keyasint,omitempty"`
	Signature string   `cbor:"3,keyasint"`
	Body      string   `cbor:"4,keyasint,omitempty"`
}

// ImportRecord is an import of the file that declared a record.
type ImportRecord struct {
	Name string `cbor:"1,keyasint,omitempty"`
	Path string `cbor:"2,keyasint"`
}

// LocalName returns the identifier the import binds in its file. For an
// unnamed import it guesses from the path, skipping a major version suffix.
func (i ImportRecord) LocalName() string {
	if i.Name != "" {
		return i.Name
	}
	parts := strings.Split(i.Path, "/")
	last := parts[len(parts)-1]
	if len(parts) > 1 && len(last) > 1 && last[0] == 'v' && isDigits(last[1:]) {
		last = parts[len(parts)-2]
	}
	return last
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// Location points at a declaration in source.
type Location struct {
	File string `cbor:"1,keyasint"`
	Line int    `cbor:"2,keyasint"`
}

// Method returns the method named name.
func (r *Record) Method(name string) (MethodRecord, bool) {
	for _, m := range r.Methods {
		if m.Name == name {
			return m, true
		}
	}
	return MethodRecord{}, false
}

// Registry is the part of the companion client the generators use.
// *companion.Client and every companion.Store satisfy it.
type Registry interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Fetch loads and decodes the record registered under path. Registry
// failures come back as *errors.CompilerError values.
func Fetch(ctx context.Context, reg Registry, path string) (*Record, error) {
	data, err := reg.Get(ctx, path)
	if err != nil {
		return nil, registryError(reg, path, err)
	}

	var rec Record
	if err := companion.Unmarshal(data, &rec); err != nil {
		return nil, werrors.NewMalformedRecord(path, err)
	}
	return &rec, nil
}

// Store encodes rec and sets it under path.
func Store(ctx context.Context, reg Registry, path string, rec *Record) error {
	data, err := companion.Marshal(rec)
	if err != nil {
		return werrors.NewMalformedRecord(path, err)
	}
	if len(data) > companion.MaxPayload {
		return werrors.NewPayloadTooLarge(path, len(data), companion.MaxPayload)
	}
	if err := reg.Set(ctx, path, data); err != nil {
		return registryError(reg, path, err)
	}
	return nil
}

func registryError(reg Registry, path string, err error) error {
	switch {
	case companion.IsNotFound(err):
		return werrors.NewNotRegistered(path).WithCause(err)
	case errors.Is(err, companion.ErrPayloadTooLarge):
		var pe *companion.PayloadTooLargeError
		size := 0
		if errors.As(err, &pe) {
			size = pe.Size
		}
		return werrors.NewPayloadTooLarge(path, size, companion.MaxPayload).WithCause(err)
	case errors.Is(err, companion.ErrUnavailable):
		addr := companion.DefaultAddr
		if a, ok := reg.(interface{ Addr() string }); ok {
			addr = a.Addr()
		}
		return werrors.NewRegistryUnavailable(addr, err)
	default:
		return werrors.Wrapf(err, "registry request for %s failed", path)
	}
}
