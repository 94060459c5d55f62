package compiler

import (
	"context"
	"fmt"

	"github.com/legion-labs/databuild-go/internal/domain"
)

// Passthrough copies its input blob unchanged to the compiled path. It is
// the identity transform, useful for resources whose offline and runtime
// representations coincide.
type Passthrough struct{}

func (Passthrough) Identity() string {
	return "passthrough@1.0.0"
}

func (Passthrough) Compile(ctx context.Context, req Request) (Output, error) {
	data, err := req.Store.Get(ctx, req.SourceChecksum)
	if err != nil {
		return Output{}, fmt.Errorf("read input %s: %w", req.SourceChecksum, err)
	}
	checksum, err := req.Store.Put(ctx, data)
	if err != nil {
		return Output{}, fmt.Errorf("store output: %w", err)
	}
	return Output{
		Resources: []domain.CompiledResource{
			{Path: req.CompilePath, Checksum: checksum, Size: int64(len(data))},
		},
	}, nil
}
