// Package build is the data build orchestrator: it compiles offline
// resources into their runtime form through registered compilers, caches
// results in a durable output index keyed by content fingerprints, links
// cross-resource references and emits a manifest of final checksums.
package build

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/legion-labs/databuild-go/internal/compiler"
	"github.com/legion-labs/databuild-go/internal/domain"
	"github.com/legion-labs/databuild-go/internal/graph"
	"github.com/legion-labs/databuild-go/internal/repo"
	"github.com/legion-labs/databuild-go/internal/storage/contentstore"
)

// Options configures a Build. Index, Store and Compilers are required.
type Options struct {
	Index     repo.OutputIndex
	Store     contentstore.Store
	Compilers *compiler.Registry
	Logger    *slog.Logger
}

// Build drives compilation of resource paths against one source index,
// output index and content store. Methods are safe to call sequentially;
// SourcePull must not run concurrently with compilation.
type Build struct {
	sources   *graph.SourceIndex
	index     repo.OutputIndex
	store     contentstore.Store
	compilers *compiler.Registry
	logger    *slog.Logger
}

func New(opts Options) (*Build, error) {
	if opts.Index == nil {
		return nil, errors.New("output index is required")
	}
	if opts.Store == nil {
		return nil, errors.New("content store is required")
	}
	if opts.Compilers == nil {
		return nil, errors.New("compiler registry is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Build{
		sources:   graph.NewSourceIndex(),
		index:     opts.Index,
		store:     opts.Store,
		compilers: opts.Compilers,
		logger:    logger,
	}, nil
}

// SourcePull refreshes the source index from the project and returns the
// number of changed resources. When the project can hand out content, the
// content store is seeded so compilers can read inputs by checksum.
// Call it before compiling; compiling against a stale index means compiling
// against stale dependency declarations.
func (b *Build) SourcePull(ctx context.Context, project graph.Project) (int, error) {
	updated, err := b.sources.Pull(ctx, project)
	if err != nil {
		return updated, fmt.Errorf("source pull: %w", err)
	}

	if source, ok := project.(graph.ContentSource); ok {
		ids, err := project.ResourceList(ctx)
		if err != nil {
			return updated, fmt.Errorf("source pull: %w", err)
		}
		for _, id := range ids {
			content, err := source.ResourceContent(ctx, id)
			if err != nil {
				return updated, fmt.Errorf("source pull content %s: %w", id, err)
			}
			if _, err := b.store.Put(ctx, content); err != nil {
				return updated, fmt.Errorf("source pull store %s: %w", id, err)
			}
		}
	}

	b.logger.Debug("source pull complete", "updated", updated)
	return updated, nil
}

// LookupPathID returns the path recorded for a runtime resource id, or
// repo.ErrNotFound if this build never produced the id.
func (b *Build) LookupPathID(ctx context.Context, id domain.ResourceTypeAndID) (domain.ResourcePathID, error) {
	return b.index.LookupPathID(ctx, id)
}

// PrintBuildGraph renders the target's build graph in Graphviz DOT format.
func (b *Build) PrintBuildGraph(target domain.ResourcePathID, label func(domain.ResourcePathID) string) (string, error) {
	g, err := b.sources.BuildGraph(target)
	if err != nil {
		return "", err
	}
	return g.DOT(label), nil
}

// CompileStat records whether one compile node was served from cache.
type CompileStat struct {
	CompilePath domain.ResourcePathID
	FromCache   bool
	Duration    time.Duration
}

// CompiledResourceInfo describes one artifact produced during a compile
// invocation, along with the cache-key components of the node that
// produced it.
type CompiledResourceInfo struct {
	ContextHash      string
	SourceHash       string
	CompilePath      domain.ResourcePathID
	CompiledPath     domain.ResourcePathID
	CompiledChecksum domain.Checksum
	CompiledSize     int64
}

// CompiledResourceReference is a cross-resource reference discovered during
// compilation, to be resolved by the link pass.
type CompiledResourceReference struct {
	ContextHash       string
	SourceHash        string
	CompilePath       domain.ResourcePathID
	CompiledPath      domain.ResourcePathID
	CompiledReference domain.ResourcePathID
}

// IsReferenceOf reports whether the reference belongs to resource.
func (r CompiledResourceReference) IsReferenceOf(resource CompiledResourceInfo) bool {
	return r.ContextHash == resource.ContextHash &&
		r.SourceHash == resource.SourceHash &&
		r.CompilePath.Equal(resource.CompilePath) &&
		r.CompiledPath.Equal(resource.CompiledPath)
}

// CompileOutput is the transient result of one CompilePath invocation.
// Resources are in topological compile order, dependencies first.
type CompileOutput struct {
	Resources  []CompiledResourceInfo
	References []CompiledResourceReference
	Statistics []CompileStat
}

type compilerDetail struct {
	compiler compiler.Compiler
	hash     string
}

type nodeHashes struct {
	contextHash string
	sourceHash  string
}

// CompilePath compiles the target and everything it depends on, reusing
// cached results where fingerprints match. On any failure the whole call
// aborts; already-cached entries remain valid but nothing new after the
// failure point is persisted.
func (b *Build) CompilePath(ctx context.Context, target domain.ResourcePathID, env domain.CompilationEnv) (*CompileOutput, error) {
	if err := env.Validate(); err != nil {
		return nil, fmt.Errorf("compilation env: %w", err)
	}
	if target.IsSource() {
		return nil, fmt.Errorf("target %s has no transformations to compile", target)
	}
	if err := b.index.RecordPathID(ctx, target); err != nil {
		return nil, fmt.Errorf("record pathid: %w", err)
	}

	g, err := b.sources.BuildGraph(target)
	if err != nil {
		return nil, err
	}
	order, err := g.TopologicalOrder()
	if err != nil {
		return nil, err
	}

	details, err := b.resolveCompilers(order, env)
	if err != nil {
		return nil, err
	}

	out := &CompileOutput{}
	var accumulated []domain.CompiledResource
	hashes := make(map[string]nodeHashes, len(order))

	for _, node := range order {
		if node.IsSource() {
			continue
		}
		if err := b.compileNode(ctx, node, env, details, hashes, &accumulated, out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// resolveCompilers finds a compiler and its behavior hash for every
// transform appearing in the compile order.
func (b *Build) resolveCompilers(order []domain.ResourcePathID, env domain.CompilationEnv) (map[domain.Transform]compilerDetail, error) {
	details := make(map[domain.Transform]compilerDetail)
	for _, node := range order {
		transform, ok := node.LastTransform()
		if !ok {
			continue
		}
		if _, done := details[transform]; done {
			continue
		}
		c, found := b.compilers.Find(transform)
		if !found {
			return nil, &CompileError{Path: node, Err: fmt.Errorf("%w: %s", ErrCompilerNotFound, transform)}
		}
		details[transform] = compilerDetail{
			compiler: c,
			hash:     compilerHash(c.Identity(), transform, env),
		}
	}
	return details, nil
}

func (b *Build) compileNode(
	ctx context.Context,
	node domain.ResourcePathID,
	env domain.CompilationEnv,
	details map[domain.Transform]compilerDetail,
	hashes map[string]nodeHashes,
	accumulated *[]domain.CompiledResource,
	out *CompileOutput,
) error {
	direct, _ := node.DirectDependency()
	transform, _ := node.LastTransform()
	detail := details[transform]

	expectedName := node.Name()
	unnamed := node.ToUnnamed()

	cx := contextHash(transform, detail.hash, Version)

	var sx string
	var inputChecksum domain.Checksum
	if direct.IsSource() {
		// The closure hash covers the source content and everything it
		// declares a dependency on.
		sx = string(b.sources.ComputeSourceHash(unnamed))
		content, ok := b.sources.ResourceHash(direct)
		if !ok {
			return &CompileError{Path: node, Err: fmt.Errorf("no content recorded for %s", direct)}
		}
		inputChecksum = content
	} else {
		// A path-derived input: its hash is its compiled checksum,
		// computed earlier in this invocation.
		compiled, err := b.findCompiledDependency(ctx, direct, hashes)
		if err != nil {
			return err
		}
		sx = derivedSourceHash(compiled.Checksum)
		inputChecksum = compiled.Checksum
	}
	hashes[node.String()] = nodeHashes{contextHash: cx, sourceHash: sx}

	fp := fingerprint(unnamed, cx, sx)
	started := time.Now()

	entry, err := b.index.FindCompiled(ctx, fp)
	fromCache := err == nil
	switch {
	case errors.Is(err, repo.ErrNotFound):
		output, compileErr := detail.compiler.Compile(ctx, compiler.Request{
			CompilePath:    unnamed,
			Transform:      transform,
			SourceChecksum: inputChecksum,
			DerivedDeps:    append([]domain.CompiledResource(nil), *accumulated...),
			Env:            env,
			Store:          b.store,
		})
		if compileErr != nil {
			return &CompileError{Path: unnamed, Err: compileErr}
		}
		if len(output.Resources) == 0 {
			return &CompileError{Path: unnamed, Err: errors.New("compiler produced no resources")}
		}
		entry = repo.CompiledEntry{
			Fingerprint: fp,
			Resources:   output.Resources,
			References:  output.References,
		}
		if err := b.index.InsertCompiled(ctx, entry); err != nil {
			return &CompileError{Path: unnamed, Err: err}
		}
	case err != nil:
		return &CompileError{Path: unnamed, Err: err}
	}

	if expectedName != "" && !hasNamedOutput(entry.Resources, expectedName) {
		return &CompileError{Path: node, Err: fmt.Errorf("%w: %q", ErrOutputNotPresent, expectedName)}
	}

	for _, resource := range entry.Resources {
		if err := b.index.RecordPathID(ctx, resource.Path); err != nil {
			return &CompileError{Path: unnamed, Err: err}
		}
		out.Resources = append(out.Resources, CompiledResourceInfo{
			ContextHash:      cx,
			SourceHash:       sx,
			CompilePath:      unnamed,
			CompiledPath:     resource.Path,
			CompiledChecksum: resource.Checksum,
			CompiledSize:     resource.Size,
		})
	}
	for _, reference := range entry.References {
		out.References = append(out.References, CompiledResourceReference{
			ContextHash:       cx,
			SourceHash:        sx,
			CompilePath:       unnamed,
			CompiledPath:      reference.Path,
			CompiledReference: reference.Reference,
		})
	}
	*accumulated = append(*accumulated, entry.Resources...)
	out.Statistics = append(out.Statistics, CompileStat{
		CompilePath: unnamed,
		FromCache:   fromCache,
		Duration:    time.Since(started),
	})

	b.logger.Debug("compiled node",
		"path", unnamed.String(),
		"from_cache", fromCache,
		"resources", len(entry.Resources),
	)
	return nil
}

// findCompiledDependency returns the compiled output of a direct dependency
// compiled earlier in this invocation.
func (b *Build) findCompiledDependency(ctx context.Context, direct domain.ResourcePathID, hashes map[string]nodeHashes) (domain.CompiledResource, error) {
	nh, ok := hashes[direct.String()]
	if !ok {
		return domain.CompiledResource{}, &CompileError{Path: direct, Err: errors.New("dependency was not compiled in this invocation")}
	}
	entry, err := b.index.FindCompiled(ctx, fingerprint(direct.ToUnnamed(), nh.contextHash, nh.sourceHash))
	if err != nil {
		return domain.CompiledResource{}, &CompileError{Path: direct, Err: err}
	}
	for _, resource := range entry.Resources {
		if resource.Path.Equal(direct) {
			return resource, nil
		}
	}
	return domain.CompiledResource{}, &CompileError{
		Path: direct,
		Err:  fmt.Errorf("%w: %q", ErrOutputNotPresent, direct.Name()),
	}
}

func hasNamedOutput(resources []domain.CompiledResource, name string) bool {
	for _, resource := range resources {
		if resource.Path.Name() == name {
			return true
		}
	}
	return false
}

// Compile compiles the target, links the results and returns the manifest.
// When manifestPath is non-empty, an existing manifest file is merged with
// the new results and rewritten; the file is only touched after the whole
// build succeeded.
func (b *Build) Compile(ctx context.Context, target domain.ResourcePathID, env domain.CompilationEnv, manifestPath string) (domain.Manifest, error) {
	manifest, err := loadManifest(manifestPath)
	if err != nil {
		return domain.Manifest{}, err
	}

	out, err := b.CompilePath(ctx, target, env)
	if err != nil {
		return domain.Manifest{}, err
	}

	linked, err := b.Link(ctx, out.Resources, out.References)
	if err != nil {
		return domain.Manifest{}, err
	}

	// One manifest entry per unique compiled path, preferring the linked
	// checksum where a link output exists.
	final := make(map[string]domain.CompiledResource)
	orderedPaths := make([]string, 0, len(out.Resources))
	for _, resource := range out.Resources {
		key := resource.CompiledPath.String()
		if _, seen := final[key]; !seen {
			orderedPaths = append(orderedPaths, key)
		}
		final[key] = domain.CompiledResource{
			Path:     resource.CompiledPath,
			Checksum: resource.CompiledChecksum,
			Size:     resource.CompiledSize,
		}
	}
	for _, resource := range linked {
		final[resource.Path.String()] = resource
	}
	for _, key := range orderedPaths {
		manifest.Merge(final[key])
	}
	manifest.PreSerialize()

	if manifestPath != "" {
		raw, err := domain.MarshalManifest(manifest)
		if err != nil {
			return domain.Manifest{}, fmt.Errorf("encode manifest: %w", err)
		}
		if err := os.WriteFile(manifestPath, raw, 0o644); err != nil {
			return domain.Manifest{}, fmt.Errorf("write manifest: %w", err)
		}
	}
	return manifest, nil
}

func loadManifest(path string) (domain.Manifest, error) {
	if path == "" {
		return domain.Manifest{}, nil
	}
	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return domain.Manifest{}, nil
	case err != nil:
		return domain.Manifest{}, fmt.Errorf("read manifest: %w", err)
	case len(raw) == 0:
		return domain.Manifest{}, nil
	}
	manifest, err := domain.UnmarshalManifest(raw)
	if err != nil {
		return domain.Manifest{}, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	return manifest, nil
}
