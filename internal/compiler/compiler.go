// Package compiler defines the contract between the build orchestrator and
// data compilers, and the registry mapping transform types to compilers.
package compiler

import (
	"context"

	"github.com/legion-labs/databuild-go/internal/domain"
	"github.com/legion-labs/databuild-go/internal/storage/contentstore"
)

// Request carries everything a compiler may consume for one node.
type Request struct {
	// CompilePath is the unnamed path of the node being compiled. Named
	// sub-outputs are always compiled as part of their unnamed node.
	CompilePath domain.ResourcePathID

	// Transform is the step the compiler was selected for.
	Transform domain.Transform

	// SourceChecksum addresses the compile input blob in Store: the source
	// resource content for first steps, the direct dependency's compiled
	// output for later steps.
	SourceChecksum domain.Checksum

	// DerivedDeps are the compiled outputs of all nodes built earlier in
	// the same invocation, dependency-first.
	DerivedDeps []domain.CompiledResource

	// Env is the compilation environment.
	Env domain.CompilationEnv

	// Store is where the compiler reads its inputs and writes its outputs.
	Store contentstore.Store
}

// Output is the result of one compiler invocation. A compiler may produce
// several resources (named sub-outputs) per node.
type Output struct {
	Resources  []domain.CompiledResource
	References []domain.CompiledReference
}

// Compiler transforms one resource representation into another.
//
// Compilers must be deterministic: identical requests must produce
// byte-identical outputs. The engine caches results under a fingerprint
// derived in part from Identity, so any behavioral change must change the
// identity string.
type Compiler interface {
	// Identity returns the compiler's name and version ("shader@4.1.0").
	Identity() string

	Compile(ctx context.Context, req Request) (Output, error)
}
