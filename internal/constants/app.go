// Package constants centralizes tunables shared across the wizard packages.
package constants

import (
	"time"
)

// Backend types supported by the pool wizard.
const (
	BackendTypeAlba        = "alba"
	BackendTypeCephS3      = "ceph_s3"
	BackendTypeAmazonS3    = "amazon_s3"
	BackendTypeSwiftS3     = "swift_s3"
	BackendTypeDistributed = "distributed"
)

// BackendTypes lists every selectable backend type, in display order.
var BackendTypes = []string{
	BackendTypeAlba,
	BackendTypeCephS3,
	BackendTypeAmazonS3,
	BackendTypeSwiftS3,
	BackendTypeDistributed,
}

// Sizing bounds for the pool wizard fields.
//
// Cache sizes are expressed in GiB, the write buffer and SCO size in MiB,
// cluster size in KiB. The write buffer minimum depends on the selected
// SCO size: small SCOs (< 128 MiB) allow a 128 MiB buffer, larger SCOs
// require at least 256 MiB.
const (
	// CacheSizeMin / CacheSizeMax bound the read and write cache sizes (GiB)
	CacheSizeMin = 1
	CacheSizeMax = 10240

	// WriteBufferMax is the upper bound of the volume write buffer (MiB)
	WriteBufferMax = 10240

	// WriteBufferMinSmallSCO applies when the SCO size is below SCOSizeThreshold (MiB)
	WriteBufferMinSmallSCO = 128

	// WriteBufferMinLargeSCO applies for SCO sizes of SCOSizeThreshold and up (MiB)
	WriteBufferMinLargeSCO = 256

	// SCOSizeThreshold is the SCO size (MiB) at which the write buffer minimum doubles
	SCOSizeThreshold = 128

	// PortMin / PortMax bound valid TCP ports (PortMax is exclusive)
	PortMin = 1
	PortMax = 65536
)

// SCOSizes lists the selectable SCO sizes in MiB.
var SCOSizes = []int{4, 8, 16, 32, 64, 128}

// ClusterSizes lists the selectable volume cluster sizes in KiB.
var ClusterSizes = []int{4, 8, 16, 32, 64}

// DTL (Distributed Transaction Log) modes and transports.
const (
	DTLModeNoSync = "no_sync"
	DTLModeASync  = "a_sync"
	DTLModeSync   = "sync"

	DTLTransportTCP  = "tcp"
	DTLTransportRDMA = "rdma"
)

// DTLModes lists the selectable DTL modes, in display order.
var DTLModes = []string{DTLModeNoSync, DTLModeASync, DTLModeSync}

// DTLTransports lists the selectable DTL transports.
var DTLTransports = []string{DTLTransportTCP, DTLTransportRDMA}

// Cache strategies for the volume read cache.
const (
	CacheStrategyOnRead  = "on_read"
	CacheStrategyOnWrite = "on_write"
	CacheStrategyNone    = "none"
)

// CacheStrategies lists the selectable cache strategies.
var CacheStrategies = []string{CacheStrategyOnRead, CacheStrategyOnWrite, CacheStrategyNone}

// Dedupe modes for the volume metadata store.
const (
	DedupeModeDedupe    = "dedupe"
	DedupeModeNonDedupe = "non_dedupe"
)

// DedupeModes lists the selectable dedupe modes.
var DedupeModes = []string{DedupeModeDedupe, DedupeModeNonDedupe}

// HTTP transport tuning, shared by the API client and the S3 probe.
const (
	// HTTPDialTimeout - TCP dial timeout for API connections
	HTTPDialTimeout = 30 * time.Second

	// HTTPDialKeepAlive - TCP keep-alive interval
	HTTPDialKeepAlive = 30 * time.Second

	// HTTPIdleConnTimeout - how long idle connections stay pooled
	HTTPIdleConnTimeout = 90 * time.Second

	// HTTPTLSHandshakeTimeout - extended for slow management networks
	HTTPTLSHandshakeTimeout = 30 * time.Second

	// HTTPExpectContinueTimeout - for HTTP 100-continue handling
	HTTPExpectContinueTimeout = 5 * time.Second

	// HTTPRequestTimeout - overall timeout for a single API request
	HTTPRequestTimeout = 60 * time.Second
)

// Retry policy for management API calls.
const (
	// APIRetryMax - retries per request (4 total attempts)
	APIRetryMax = 3

	// APIRetryWaitMin / APIRetryWaitMax bound the exponential backoff
	APIRetryWaitMin = 500 * time.Millisecond
	APIRetryWaitMax = 10 * time.Second
)

// Event bus buffer sizing.
const (
	// EventBusDefaultBuffer - default per-subscriber channel buffer
	EventBusDefaultBuffer = 256

	// EventBusMaxBuffer - upper cap on the per-subscriber buffer
	EventBusMaxBuffer = 4096
)

// DefaultAPIPort is the management API port of a storage installation.
const DefaultAPIPort = 443
