package metricskey

import "github.com/effective-security/metrics"

// Perf
var (
	// PerfPkgVerify is perf metric
	PerfPkgVerify = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_pkg_verify",
		Help:         "perf_pkg_verify provides the sample metrics of package verification",
		RequiredTags: []string{"action"},
	}

	// PerfKeyImport is perf metric
	PerfKeyImport = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_key_import",
		Help:         "perf_key_import provides the sample metrics of key retrieval and import",
		RequiredTags: []string{"source"},
	}
)

// Metrics returns slice of metrics from this repo
var Metrics = []*metrics.Describe{
	&PerfPkgVerify,
	&PerfKeyImport,
}
