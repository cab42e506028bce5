// Package gocuda manages CUDA device contexts, execution streams and cuBLAS
// handles for a multi-device, multi-worker numerical backend.
//
// Callers never select devices or switch contexts themselves: each worker
// transparently obtains a correctly-initialized device context, dedicated
// compute and library streams bound to that context, and a reusable cuBLAS
// handle. All resources are created lazily on first demand, memoized for the
// Manager's lifetime, and destroyed together on Close.
//
// Three identity axes are reconciled: the physical device (small integer
// ordinal), the logical worker (WorkerID, the unit of resource ownership),
// and the device context shared by all workers assigned to the same device.
// Workers are spread across devices by a stable random assignment; a worker's
// device never changes once assigned.
//
// The usual entry point:
//
//	mgr := gocuda.New()
//	defer mgr.Close()
//	stream, err := mgr.ComputeStream(worker)
//	... enqueue kernels on stream ...
//	err = mgr.SynchronizeStream(worker)
//
// The CUDA libraries are loaded at runtime (dlopen via purego), so binaries
// build and start on machines without CUDA installed; in that case device
// enumeration degrades to a single pretend device and resource creation
// reports errors.
package gocuda
