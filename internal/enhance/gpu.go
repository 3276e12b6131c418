package enhance

import (
	"image"
	"sync"
)

// GPUDenoiser is an optional accelerated denoise backend. Implementations
// wrap a process-wide device resource (command queue, device handle) and
// must either be safe for concurrent submission or serialize internally;
// this package never assumes exclusive ownership.
type GPUDenoiser interface {
	Denoise(img image.Image) (image.Image, error)
}

var (
	gpuOnce    sync.Once
	gpuMu      sync.RWMutex
	gpuFactory func() GPUDenoiser
	gpu        GPUDenoiser
)

// RegisterGPUDenoiser installs a factory for the accelerated backend.
// The factory runs at most once, on first use, so an expensive device
// initialization is deferred until a pipeline actually denoises an image.
// Registration after first use has no effect.
func RegisterGPUDenoiser(factory func() GPUDenoiser) {
	gpuMu.Lock()
	gpuFactory = factory
	gpuMu.Unlock()
}

// gpuBackend returns the process-wide accelerated backend, or nil when none
// is registered or the factory declined to produce one (no device present).
func gpuBackend() GPUDenoiser {
	gpuOnce.Do(func() {
		gpuMu.RLock()
		factory := gpuFactory
		gpuMu.RUnlock()
		if factory != nil {
			gpu = factory()
		}
	})
	return gpu
}
