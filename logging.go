package sbmlsolver

import (
	"os"

	kitlog "github.com/go-kit/kit/log"
)

// newLogger returns the driver's default logfmt logger writing to
// stdout, the same construction the teacher uses for its mission
// logger.
func newLogger() kitlog.Logger {
	return kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(os.Stdout))
}

// withDriver tags every line logged through klog with a driver
// instance id, mirroring the teacher's kitlog.With(klog, "estimate", n)
// pattern.
func withDriver(klog kitlog.Logger, id int) kitlog.Logger {
	return kitlog.With(klog, "driver", id)
}
