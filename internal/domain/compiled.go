package domain

// CompiledResource is one artifact produced by a compilation step: the path
// it was persisted under and the checksum addressing its content.
type CompiledResource struct {
	Path     ResourcePathID
	Checksum Checksum
	Size     int64
}

// CompiledReference records that the compiled artifact at Path embeds a
// reference to the artifact identified by Reference. References are
// resolved to checksums during the link pass.
type CompiledReference struct {
	Path      ResourcePathID
	Reference ResourcePathID
}
