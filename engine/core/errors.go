package core

import (
	"github.com/cockroachdb/errors"
)

var (
	ErrSwapchainBooting = errors.New("swapchain resized or recreated, booting")
	ErrUnknown          = errors.New("unknown")

	// setup and load failures; all of them are fatal for the engine
	ErrNoSuitableDevice = errors.New("no suitable GPU device found")
	ErrMissingLayer     = errors.New("required validation layer is missing")
	ErrAssetNotFound    = errors.New("asset not found")
	ErrInvalidBytecode  = errors.New("invalid shader bytecode")
	ErrImageDecode      = errors.New("unable to decode image")
	ErrMalformedModel   = errors.New("malformed model file")
	ErrInvalidConfig    = errors.New("invalid configuration")

	// misuse of the load-time aggregation API
	ErrAggregateFinalized = errors.New("mesh aggregate already finalized")
	ErrDuplicateMesh      = errors.New("mesh kind already consumed")
	ErrUnknownMeshKind    = errors.New("unknown mesh kind")
)
