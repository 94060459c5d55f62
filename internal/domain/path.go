package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ResourceType identifies a kind of resource ("multitext", "integer", ...).
// Type names must not contain '|', '_' or ':' as those delimit the textual
// form of a ResourcePathID; Validate enforces this.
type ResourceType string

// pathDelimiters are the bytes that separate the components of a path's
// textual form.
const pathDelimiters = "|_:"

// Validate rejects empty type names and names containing a path delimiter,
// which would break the String/Parse round trip.
func (t ResourceType) Validate() error {
	if strings.TrimSpace(string(t)) == "" {
		return errors.New("resource type is required")
	}
	if strings.ContainsAny(string(t), pathDelimiters) {
		return fmt.Errorf("resource type %q contains a path delimiter", t)
	}
	return nil
}

// ResourceID is an opaque stable resource identifier.
type ResourceID string

// NewResourceID returns a fresh random resource id.
func NewResourceID() ResourceID {
	return ResourceID(strings.ReplaceAll(uuid.NewString(), "-", ""))
}

// ResourceTypeAndID identifies an offline source resource.
type ResourceTypeAndID struct {
	Type ResourceType
	ID   ResourceID
}

func (r ResourceTypeAndID) String() string {
	return fmt.Sprintf("%s:%s", r.Type, r.ID)
}

func (r ResourceTypeAndID) Validate() error {
	if err := r.Type.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(string(r.ID)) == "" {
		return errors.New("resource id is required")
	}
	return nil
}

// ParseResourceTypeAndID parses the "type:id" form.
func ParseResourceTypeAndID(s string) (ResourceTypeAndID, error) {
	sep := strings.IndexByte(s, ':')
	if sep <= 0 || sep == len(s)-1 {
		return ResourceTypeAndID{}, fmt.Errorf("invalid resource id: %q", s)
	}
	id := ResourceTypeAndID{Type: ResourceType(s[:sep]), ID: ResourceID(s[sep+1:])}
	if err := id.Type.Validate(); err != nil {
		return ResourceTypeAndID{}, fmt.Errorf("invalid resource id %q: %w", s, err)
	}
	return id, nil
}

// Transform identifies a single compilation step by its input and output
// resource types. It is the key under which compilers register.
type Transform struct {
	From ResourceType
	To   ResourceType
}

func (t Transform) String() string {
	return fmt.Sprintf("%s->%s", t.From, t.To)
}

// transformStep is one node of a resource path: a target type and an
// optional name selecting a sub-output of a multi-output compiler.
type transformStep struct {
	Type ResourceType
	Name string
}

// ResourcePathID is a path through transformation space: a source resource
// pushed through an ordered chain of (type, optional name) steps. It
// identifies one specific derived artifact. The zero value is invalid;
// construct with PathFromResource.
//
// ResourcePathID is an immutable value type. Push and the other derivation
// methods return copies.
type ResourcePathID struct {
	source     ResourceTypeAndID
	transforms []transformStep
}

// PathFromResource returns the path identifying the source resource itself.
func PathFromResource(id ResourceTypeAndID) ResourcePathID {
	return ResourcePathID{source: id}
}

// Push appends an unnamed transformation step. It panics if kind fails
// ResourceType.Validate.
func (p ResourcePathID) Push(kind ResourceType) ResourcePathID {
	return p.pushStep(transformStep{Type: kind})
}

// PushNamed appends a transformation step selecting the named sub-output.
// It panics if kind fails ResourceType.Validate or name contains '|'.
func (p ResourcePathID) PushNamed(kind ResourceType, name string) ResourcePathID {
	return p.pushStep(transformStep{Type: kind, Name: name})
}

// pushStep panics on a type or name that would break the String/Parse
// round trip; constructing such a path is a programming error, like an
// invalid registry key.
func (p ResourcePathID) pushStep(step transformStep) ResourcePathID {
	if err := step.Type.Validate(); err != nil {
		panic(fmt.Sprintf("resource path step: %v", err))
	}
	if strings.ContainsRune(step.Name, '|') {
		panic(fmt.Sprintf("resource path step name %q contains '|'", step.Name))
	}
	transforms := make([]transformStep, 0, len(p.transforms)+1)
	transforms = append(transforms, p.transforms...)
	transforms = append(transforms, step)
	return ResourcePathID{source: p.source, transforms: transforms}
}

// WithName returns a copy with the last step's name replaced. It panics if
// name contains '|'.
func (p ResourcePathID) WithName(name string) ResourcePathID {
	if p.IsSource() {
		return p
	}
	if strings.ContainsRune(name, '|') {
		panic(fmt.Sprintf("resource path step name %q contains '|'", name))
	}
	transforms := append([]transformStep(nil), p.transforms...)
	transforms[len(transforms)-1].Name = name
	return ResourcePathID{source: p.source, transforms: transforms}
}

// ToUnnamed returns a copy with the last step's name stripped.
func (p ResourcePathID) ToUnnamed() ResourcePathID {
	return p.WithName("")
}

// IsNamed reports whether the last step carries a name.
func (p ResourcePathID) IsNamed() bool {
	return p.Name() != ""
}

// Name returns the last step's name, or "" for unnamed paths.
func (p ResourcePathID) Name() string {
	if len(p.transforms) == 0 {
		return ""
	}
	return p.transforms[len(p.transforms)-1].Name
}

// IsSource reports whether the path has no transformation steps and thus
// identifies the offline source resource itself.
func (p ResourcePathID) IsSource() bool {
	return len(p.transforms) == 0
}

// IsZero reports whether the path is the invalid zero value.
func (p ResourcePathID) IsZero() bool {
	return p.source == ResourceTypeAndID{}
}

// ContentType returns the resource type produced by the path.
func (p ResourcePathID) ContentType() ResourceType {
	if len(p.transforms) == 0 {
		return p.source.Type
	}
	return p.transforms[len(p.transforms)-1].Type
}

// SourceResource returns the id of the path's root source resource.
func (p ResourcePathID) SourceResource() ResourceTypeAndID {
	return p.source
}

// SourceResourcePath returns the path identifying the root source resource.
func (p ResourcePathID) SourceResourcePath() ResourcePathID {
	return PathFromResource(p.source)
}

// LastTransform returns the transformation producing the path's artifact.
// ok is false for source paths.
func (p ResourcePathID) LastTransform() (Transform, bool) {
	switch len(p.transforms) {
	case 0:
		return Transform{}, false
	case 1:
		return Transform{From: p.source.Type, To: p.transforms[0].Type}, true
	default:
		n := len(p.transforms)
		return Transform{From: p.transforms[n-2].Type, To: p.transforms[n-1].Type}, true
	}
}

// DirectDependency returns the path one step shorter, i.e. the input the
// last transformation compiles. ok is false for source paths.
func (p ResourcePathID) DirectDependency() (ResourcePathID, bool) {
	if p.IsSource() {
		return ResourcePathID{}, false
	}
	return ResourcePathID{
		source:     p.source,
		transforms: append([]transformStep(nil), p.transforms[:len(p.transforms)-1]...),
	}, true
}

// ResourceID returns a stable runtime identifier for the path's artifact.
// Source paths map to the source resource id; derived paths get an id
// deterministically derived from the textual path.
func (p ResourcePathID) ResourceID() ResourceTypeAndID {
	if p.IsSource() {
		return p.source
	}
	digest := uuid.NewSHA1(uuid.NameSpaceOID, []byte(p.String()))
	return ResourceTypeAndID{
		Type: p.ContentType(),
		ID:   ResourceID(strings.ReplaceAll(digest.String(), "-", "")),
	}
}

// String renders the persistent textual form:
// "type:id|transform" per step, with "_name" appended to named steps.
func (p ResourcePathID) String() string {
	var b strings.Builder
	b.WriteString(p.source.String())
	for _, step := range p.transforms {
		b.WriteByte('|')
		b.WriteString(string(step.Type))
		if step.Name != "" {
			b.WriteByte('_')
			b.WriteString(step.Name)
		}
	}
	return b.String()
}

// Equal reports whether two paths identify the same artifact.
func (p ResourcePathID) Equal(other ResourcePathID) bool {
	if p.source != other.source || len(p.transforms) != len(other.transforms) {
		return false
	}
	for i := range p.transforms {
		if p.transforms[i] != other.transforms[i] {
			return false
		}
	}
	return true
}

// ParseResourcePathID parses the textual form produced by String.
func ParseResourcePathID(s string) (ResourcePathID, error) {
	parts := strings.Split(s, "|")
	source, err := ParseResourceTypeAndID(parts[0])
	if err != nil {
		return ResourcePathID{}, fmt.Errorf("parse path %q: %w", s, err)
	}
	path := PathFromResource(source)
	for _, part := range parts[1:] {
		if part == "" {
			return ResourcePathID{}, fmt.Errorf("parse path %q: empty transform", s)
		}
		kind, name := ResourceType(part), ""
		if sep := strings.IndexByte(part, '_'); sep >= 0 {
			if sep == 0 || sep == len(part)-1 {
				return ResourcePathID{}, fmt.Errorf("parse path %q: invalid named transform %q", s, part)
			}
			kind, name = ResourceType(part[:sep]), part[sep+1:]
		}
		if err := kind.Validate(); err != nil {
			return ResourcePathID{}, fmt.Errorf("parse path %q: %w", s, err)
		}
		path = path.pushStep(transformStep{Type: kind, Name: name})
	}
	return path, nil
}

// MarshalText implements encoding.TextMarshaler so paths serialize as their
// textual form in JSON and YAML documents.
func (p ResourcePathID) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *ResourcePathID) UnmarshalText(text []byte) error {
	parsed, err := ParseResourcePathID(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
