package graph

import (
	"context"

	"github.com/legion-labs/databuild-go/internal/domain"
)

// Project is the offline resource database the build pulls from. It is an
// external collaborator; the engine only reads the resource list, declared
// build dependencies and content checksums.
type Project interface {
	ResourceList(ctx context.Context) ([]domain.ResourceTypeAndID, error)

	// ResourceInfo returns the content checksum and declared build
	// dependencies of a source resource.
	ResourceInfo(ctx context.Context, id domain.ResourceTypeAndID) (domain.Checksum, []domain.ResourcePathID, error)
}

// ContentSource is implemented by projects that can hand out resource
// content, letting SourcePull seed the content store so compilers can read
// their inputs by checksum.
type ContentSource interface {
	ResourceContent(ctx context.Context, id domain.ResourceTypeAndID) ([]byte, error)
}
