package assets

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"
	"github.com/spaghettifunk/tessera/engine/assets/loaders"
	"github.com/spaghettifunk/tessera/engine/core"
)

type AssetInfo struct {
	Path       string
	Type       loaders.ResourceType
	LastLoaded time.Time
}

// AssetManager resolves asset names under a root directory, dispatches them
// to the loader for their type and, when watching, reports changed files on
// the event bus.
type AssetManager struct {
	root    string
	assets  map[string]AssetInfo
	loaders map[loaders.ResourceType]loaders.Loader
	bus     *core.EventBus

	mutex sync.RWMutex

	done     chan struct{}
	stopped  chan struct{}
	fsnotify *fsnotify.Watcher
	isClosed bool
}

func NewAssetManager(root string, bus *core.EventBus) (*AssetManager, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, errors.Wrapf(core.ErrAssetNotFound, "asset root %s", root)
	}
	if !info.IsDir() {
		return nil, errors.Newf("asset root %s is not a directory", root)
	}

	am := &AssetManager{
		root:    root,
		assets:  make(map[string]AssetInfo),
		loaders: make(map[loaders.ResourceType]loaders.Loader),
		bus:     bus,
	}

	// Register loaders
	am.registerLoader(loaders.ResourceTypeBinary, &loaders.BinaryLoader{})
	am.registerLoader(loaders.ResourceTypeShader, &loaders.ShaderLoader{})
	am.registerLoader(loaders.ResourceTypeImage, &loaders.ImageLoader{})
	am.registerLoader(loaders.ResourceTypeModel, &loaders.ModelLoader{})
	am.registerLoader(loaders.ResourceTypeMaterial, &loaders.MaterialLoader{})

	if err := am.walk(root, false); err != nil {
		return nil, errors.Wrapf(err, "failed to index %s", root)
	}
	core.LogInfo("asset manager indexed %d assets under %s", am.Count(), root)
	return am, nil
}

// Register loaders for each asset type
func (am *AssetManager) registerLoader(assetType loaders.ResourceType, loader loaders.Loader) {
	am.loaders[assetType] = loader
}

func (am *AssetManager) Root() string {
	return am.root
}

// Path returns the on-disk path of an asset name relative to the root.
func (am *AssetManager) Path(name string) string {
	return filepath.Join(am.root, filepath.FromSlash(name))
}

func (am *AssetManager) Count() int {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	return len(am.assets)
}

// Load an asset using the loader registered for its extension.
func (am *AssetManager) Load(name string, params interface{}) (*loaders.Resource, error) {
	path := am.Path(name)
	assetType := DetermineAssetType(path)
	if assetType == loaders.ResourceTypeNone {
		return nil, errors.Newf("unknown asset type for %s", name)
	}

	am.mutex.Lock()
	asset, exists := am.assets[path]
	if !exists {
		// not indexed yet, the loader reports a missing file
		asset = AssetInfo{Path: path, Type: assetType}
	}
	// Load or reload asset from disk
	asset.LastLoaded = time.Now()
	am.assets[path] = asset
	am.mutex.Unlock()

	loader, ok := am.loaders[asset.Type]
	if !ok {
		return nil, errors.Newf("no loader registered for asset type: %s", asset.Type)
	}
	res, err := loader.Load(path, params)
	if err != nil {
		if errors.Is(err, core.ErrAssetNotFound) {
			am.removeAsset(path)
		}
		return nil, err
	}
	return res, nil
}

// Watch starts watching the asset root and every directory below it.
// Created or written files fire EVENT_CODE_ASSET_CHANGED with the manager as
// sender; the asset type is in data.U32[0].
func (am *AssetManager) Watch() error {
	if am.fsnotify != nil {
		return nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "failed to create file watcher")
	}
	am.fsnotify = w
	am.done = make(chan struct{})
	am.stopped = make(chan struct{})

	if err := am.walk(am.root, true); err != nil {
		w.Close()
		am.fsnotify = nil
		return errors.Wrapf(err, "failed to watch %s", am.root)
	}
	go am.start()
	core.LogInfo("watching %s for changes", am.root)
	return nil
}

func (am *AssetManager) Shutdown() {
	if am.fsnotify == nil || am.isClosed {
		return
	}
	am.isClosed = true
	close(am.done)
	<-am.stopped
}

func (am *AssetManager) start() {
	defer close(am.stopped)
	for {
		select {
		case e, ok := <-am.fsnotify.Events:
			if !ok {
				return
			}
			s, err := os.Stat(e.Name)
			if err == nil && s != nil && s.IsDir() {
				if e.Op&fsnotify.Create != 0 {
					if err := am.walk(e.Name, true); err != nil {
						core.LogWarn("failed to watch new directory %s: %s", e.Name, err.Error())
					}
				}
				continue
			}
			// Handle create or modify events
			if e.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				if t := am.handleFileEvent(e.Name); t != loaders.ResourceTypeNone {
					am.fireChanged(t)
				}
			}
			// Can't stat a deleted entry, drop it from the index and the watch list.
			if e.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				am.removeAsset(e.Name)
				_ = am.fsnotify.Remove(e.Name)
			}

		case err, ok := <-am.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError(err.Error())

		case <-am.done:
			am.fsnotify.Close()
			return
		}
	}
}

func (am *AssetManager) fireChanged(t loaders.ResourceType) {
	if am.bus == nil {
		return
	}
	ctx := core.EventContext{}
	ctx.Data.U32[0] = uint32(t)
	am.bus.Fire(core.EVENT_CODE_ASSET_CHANGED, am, ctx)
}

// walk indexes every file under path and, when watch is set, adds every
// directory to the watcher.
func (am *AssetManager) walk(path string, watch bool) error {
	return filepath.Walk(path, func(walkPath string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			if watch {
				return am.fsnotify.Add(walkPath)
			}
			return nil
		}
		am.handleFileEvent(walkPath)
		return nil
	})
}

// Handle the creation or modification of a file
func (am *AssetManager) handleFileEvent(path string) loaders.ResourceType {
	assetType := DetermineAssetType(path)
	if assetType == loaders.ResourceTypeNone {
		return assetType
	}

	am.mutex.Lock()
	defer am.mutex.Unlock()
	am.assets[path] = AssetInfo{
		Path: path,
		Type: assetType,
	}
	return assetType
}

// Remove the asset from the index if it was deleted
func (am *AssetManager) removeAsset(path string) {
	am.mutex.Lock()
	defer am.mutex.Unlock()

	delete(am.assets, path)
}

func DetermineAssetType(path string) loaders.ResourceType {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".spv":
		return loaders.ResourceTypeShader
	case ".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tif", ".tiff", ".webp":
		return loaders.ResourceTypeImage
	case ".obj":
		return loaders.ResourceTypeModel
	case ".mtl":
		return loaders.ResourceTypeMaterial
	case ".bin":
		return loaders.ResourceTypeBinary
	default:
		return loaders.ResourceTypeNone
	}
}
