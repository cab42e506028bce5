package gocuda

import (
	"runtime"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"
	"k8s.io/klog/v2"
)

// contextRegistry maps device ordinals to their single shared context.
// Contexts are expensive and must be one-per-device, so the first request for
// any device primes contexts for every device in one pass: downstream code
// may rely on all device ordinals being valid execution targets once the
// registry is warm, and a later request for device N must not re-enter
// enumeration logic under a different lock ordering.
type contextRegistry struct {
	drv        Driver
	numDevices int

	mu       sync.RWMutex
	byDevice map[int]*Context
	devices  map[int]Device

	prime singleflight.Group
}

func newContextRegistry(drv Driver, numDevices int) *contextRegistry {
	return &contextRegistry{
		drv:        drv,
		numDevices: numDevices,
		byDevice:   make(map[int]*Context),
		devices:    make(map[int]Device),
	}
}

// contextFor returns the shared context of the given device, priming all
// device contexts on first use. Idempotent: after the first success every
// call returns the same *Context per device.
func (r *contextRegistry) contextFor(device int) (*Context, error) {
	if device < 0 || device >= r.numDevices {
		return nil, errors.WithMessagef(ErrContextCreation,
			"device ordinal %d out of range [0, %d)", device, r.numDevices)
	}

	r.mu.RLock()
	ctx, found := r.byDevice[device]
	r.mu.RUnlock()
	if found {
		return ctx, nil
	}

	// Collapse concurrent first requests into a single priming pass. Failures
	// record nothing, so a later call re-reports the same error.
	if _, err, _ := r.prime.Do("prime", func() (any, error) {
		return nil, r.primeAll()
	}); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	ctx, found = r.byDevice[device]
	if !found {
		return nil, errors.WithMessagef(ErrContextCreation,
			"no context recorded for device %d after priming", device)
	}
	return ctx, nil
}

// primeAll initializes the driver and creates (or attaches) the context of
// every enumerated device. All-or-nothing: on failure, contexts created
// during this pass are destroyed and nothing is recorded.
func (r *contextRegistry) primeAll() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.byDevice) > 0 {
		// A previous pass won the singleflight race.
		return nil
	}

	// Context currency is per OS thread; the attach-then-create sequence must
	// observe its own CtxCreate side effects, so keep the goroutine pinned
	// for the whole pass.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	contexts := make(map[int]*Context, r.numDevices)
	devices := make(map[int]Device, r.numDevices)
	// Contexts already claimed by this pass, whether created or attached: a
	// context may back at most one device ordinal.
	used := make(map[uintptr]bool, r.numDevices)
	rollback := func() {
		for _, ctx := range contexts {
			if !ctx.owned {
				continue
			}
			if err := r.drv.CtxDestroy(ctx.raw); err != nil {
				klog.Warningf("Failed to destroy context for device %d while unwinding a failed prime: %v", ctx.device, err)
			}
		}
	}

	for device := 0; device < r.numDevices; device++ {
		if err := r.drv.Init(); err != nil {
			rollback()
			return errors.WithMessagef(ErrDriverInit, "device %d: %v", device, err)
		}

		current, err := r.drv.CtxGetCurrent()
		if err != nil {
			rollback()
			return errors.WithMessagef(ErrContextCreation,
				"failed to obtain the current context for device %d: %v", device, err)
		}

		raw, err := r.drv.DeviceGet(device)
		if err != nil {
			rollback()
			return errors.WithMessagef(ErrContextCreation,
				"failed to obtain a handle for device %d: %v", device, err)
		}
		devices[device] = Device{Ordinal: device, raw: raw}

		// Attach to an externally-established active context if there is one;
		// contexts this pass already claimed don't count, since each device
		// must end up with its own.
		if current != 0 && !used[current] {
			contexts[device] = &Context{device: device, raw: current}
			used[current] = true
			klog.V(1).Infof("attached to active context for device %d", device)
			continue
		}

		ctxRaw, err := r.drv.CtxCreate(raw)
		if err != nil {
			rollback()
			return errors.WithMessagef(ErrContextCreation, "device %d: %v", device, err)
		}
		contexts[device] = &Context{device: device, raw: ctxRaw, owned: true}
		used[ctxRaw] = true
		klog.V(1).Infof("created context for device %d", device)
	}

	r.byDevice = contexts
	r.devices = devices
	return nil
}

// contextsSnapshot returns a copy of the device to context mapping.
func (r *contextRegistry) contextsSnapshot() map[int]*Context {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[int]*Context, len(r.byDevice))
	for device, ctx := range r.byDevice {
		out[device] = ctx
	}
	return out
}

// devicesSnapshot returns a copy of the enumerated devices recorded so far.
func (r *contextRegistry) devicesSnapshot() map[int]Device {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[int]Device, len(r.devices))
	for ordinal, device := range r.devices {
		out[ordinal] = device
	}
	return out
}

// destroyAll tears down every owned context. Best-effort, runs once from
// Manager.Close: results are logged, not re-validated.
func (r *contextRegistry) destroyAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for device, ctx := range r.byDevice {
		if !ctx.owned {
			continue
		}
		if err := r.drv.CtxDestroy(ctx.raw); err != nil {
			klog.Warningf("Failed to destroy context for device %d: %v", device, err)
		}
	}
	r.byDevice = make(map[int]*Context)
}
