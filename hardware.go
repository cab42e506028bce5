package gocuda

import (
	"github.com/gomlx/gocuda/cu"
	"github.com/gomlx/gocuda/cublas"
	"github.com/gomlx/gocuda/cudart"
)

// hardwareDriver implements Driver on the real CUDA stack: driver API through
// package cu, runtime API through cudart, cuBLAS through cublas.
type hardwareDriver struct{}

// Hardware returns the Driver backed by the installed CUDA libraries. This is
// the default driver used by New when no WithDriver option is given.
func Hardware() Driver { return hardwareDriver{} }

func (hardwareDriver) DeviceCount() (int, error) {
	// cuDeviceGetCount requires an initialized driver; an uninitializable
	// driver surfaces here and triggers the single pretend-device fallback.
	if err := cu.Init(); err != nil {
		return 0, err
	}
	return cu.DeviceGetCount()
}

func (hardwareDriver) Init() error {
	return cu.Init()
}

func (hardwareDriver) DeviceGet(ordinal int) (uintptr, error) {
	dev, err := cu.DeviceGet(ordinal)
	return uintptr(dev), err
}

func (hardwareDriver) CtxGetCurrent() (uintptr, error) {
	ctx, err := cu.CtxGetCurrent()
	return uintptr(ctx), err
}

func (hardwareDriver) CtxCreate(device uintptr) (uintptr, error) {
	ctx, err := cu.CtxCreate(cu.Device(device))
	return uintptr(ctx), err
}

func (hardwareDriver) CtxSetCurrent(ctx uintptr) error {
	return cu.CtxSetCurrent(cu.Context(ctx))
}

func (hardwareDriver) CtxDestroy(ctx uintptr) error {
	return cu.CtxDestroy(cu.Context(ctx))
}

func (hardwareDriver) ComputeStreamCreate() (uintptr, error) {
	stream, err := cu.StreamCreate()
	return uintptr(stream), err
}

func (hardwareDriver) ComputeStreamSynchronize(stream uintptr) error {
	return cu.StreamSynchronize(cu.Stream(stream))
}

func (hardwareDriver) ComputeStreamDestroy(stream uintptr) error {
	return cu.StreamDestroy(cu.Stream(stream))
}

func (hardwareDriver) LibraryStreamCreate() (uintptr, error) {
	stream, err := cudart.StreamCreate()
	return uintptr(stream), err
}

func (hardwareDriver) LibraryStreamDestroy(stream uintptr) error {
	return cudart.StreamDestroy(cudart.Stream(stream))
}

func (hardwareDriver) HandleCreate() (uintptr, error) {
	handle, err := cublas.Create()
	return uintptr(handle), err
}

func (hardwareDriver) HandleSetStream(handle, stream uintptr) error {
	return cublas.SetStream(cublas.Handle(handle), stream)
}

func (hardwareDriver) HandleDestroy(handle uintptr) error {
	return cublas.Destroy(cublas.Handle(handle))
}

// DeviceInfo describes an enumerated device for diagnostics.
type DeviceInfo struct {
	Ordinal     int
	Name        string
	TotalMemory uint64 // bytes
}

// QueryDeviceInfo queries the driver for diagnostic details of one device.
// It requires working CUDA libraries; see cmd/cudevices for typical use.
func QueryDeviceInfo(ordinal int) (DeviceInfo, error) {
	info := DeviceInfo{Ordinal: ordinal}
	if err := cu.Init(); err != nil {
		return info, err
	}
	dev, err := cu.DeviceGet(ordinal)
	if err != nil {
		return info, err
	}
	info.Name, err = cu.DeviceName(dev)
	if err != nil {
		return info, err
	}
	info.TotalMemory, err = cu.DeviceTotalMem(dev)
	if err != nil {
		return info, err
	}
	return info, nil
}
