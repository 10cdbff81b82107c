package models

// StorageNode is a storage node of the local installation. The wizard offers
// re-using a node that already serves the primary backend as the accelerated
// (cache-tier) backend host.
type StorageNode struct {
	GUID string `json:"guid"`
	Name string `json:"name"`
	IP   string `json:"ip"`
}

// NodeMetadata is the connection metadata a pool stores per reused node.
// When the user picks a reused node and the edited pool already carries
// metadata for it, these values are copied verbatim into the accelerated
// connection fields.
type NodeMetadata struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// VPool is the pool being created or extended by the wizard. MetadataBackends
// holds the stored connection metadata per storage-node GUID.
type VPool struct {
	GUID             string                  `json:"guid"`
	Name             string                  `json:"name"`
	MetadataBackends map[string]NodeMetadata `json:"metadata_backends"`
}
