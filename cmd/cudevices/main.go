// cudevices lists the CUDA devices visible to the driver, with the ordinal,
// name and total memory of each. Handy to check what the registry will see
// before pointing a numerical workload at it.
//
// Requires working CUDA libraries; without them it reports the single
// pretend device the registry falls back to.
package main

import (
	"flag"
	"fmt"

	"github.com/gomlx/gocuda"
	"k8s.io/klog/v2"
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()

	mgr := gocuda.New()
	defer mgr.Close()

	fmt.Printf("%d CUDA device(s):\n", mgr.NumDevices())
	for ordinal := 0; ordinal < mgr.NumDevices(); ordinal++ {
		info, err := gocuda.QueryDeviceInfo(ordinal)
		if err != nil {
			fmt.Printf("\tDevice #%d: <unavailable: %v>\n", ordinal, err)
			continue
		}
		fmt.Printf("\tDevice #%d: %s, %d MiB\n", ordinal, info.Name, info.TotalMemory>>20)
	}
}
