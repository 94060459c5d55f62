package build

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"

	"github.com/legion-labs/databuild-go/internal/domain"
)

// assetFileMagic marks linked asset files in the content store.
const assetFileMagic uint32 = 0x6c6e6b61 // "lnka"

// Link resolves cross-resource references against the compiled resources of
// the same invocation and writes a linked asset file for every resource that
// carries references. Resources without references keep their compiled
// checksum and are not re-emitted here.
//
// A reference whose target is not among the compiled resources is a build
// failure, never silently dropped.
func (b *Build) Link(ctx context.Context, resources []CompiledResourceInfo, references []CompiledResourceReference) ([]domain.CompiledResource, error) {
	checksums := make(map[string]domain.Checksum, len(resources))
	for _, resource := range resources {
		checksums[resource.CompiledPath.String()] = resource.CompiledChecksum
	}

	linked := make([]domain.CompiledResource, 0)
	seen := make(map[string]struct{})

	for _, resource := range resources {
		key := resource.CompiledPath.String()
		if _, done := seen[key]; done {
			continue
		}

		var refs []resolvedReference
		for _, reference := range references {
			if !reference.IsReferenceOf(resource) {
				continue
			}
			target, ok := checksums[reference.CompiledReference.String()]
			if !ok {
				return nil, &DanglingReferenceError{
					From: reference.CompiledPath,
					To:   reference.CompiledReference,
				}
			}
			refs = append(refs, resolvedReference{
				path:     reference.CompiledReference,
				checksum: target,
			})
		}
		if len(refs) == 0 {
			continue
		}
		seen[key] = struct{}{}

		content, err := b.store.Get(ctx, resource.CompiledChecksum)
		if err != nil {
			return nil, fmt.Errorf("link %s: %w", resource.CompiledPath, err)
		}
		asset, err := writeAssetFile(refs, content)
		if err != nil {
			return nil, fmt.Errorf("link %s: %w", resource.CompiledPath, err)
		}
		checksum, err := b.store.Put(ctx, asset)
		if err != nil {
			return nil, fmt.Errorf("link %s: %w", resource.CompiledPath, err)
		}
		linked = append(linked, domain.CompiledResource{
			Path:     resource.CompiledPath,
			Checksum: checksum,
			Size:     int64(len(asset)),
		})
	}
	return linked, nil
}

type resolvedReference struct {
	path     domain.ResourcePathID
	checksum domain.Checksum
}

// writeAssetFile serializes a linked asset: magic, the resolved reference
// table, then the compiled content. The layout is length-prefixed so a
// loader can skip the table without parsing paths.
func writeAssetFile(refs []resolvedReference, content []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, assetFileMagic); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.LittleEndian, uint32(len(refs))); err != nil {
		return nil, err
	}
	for _, ref := range refs {
		if err := writeLenPrefixed(&buf, []byte(ref.path.String())); err != nil {
			return nil, err
		}
		if err := writeLenPrefixed(&buf, []byte(ref.checksum)); err != nil {
			return nil, err
		}
	}
	if err := writeLenPrefixed(&buf, content); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeLenPrefixed(buf *bytes.Buffer, data []byte) error {
	if err := binary.Write(buf, binary.LittleEndian, uint64(len(data))); err != nil {
		return err
	}
	_, err := buf.Write(data)
	return err
}
