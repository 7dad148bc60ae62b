package runner

const (
	// DefaultGoBinary is the go toolchain binary used by GoTestSource.
	DefaultGoBinary = "go"

	TestCommand       = "test"
	JSONFlag          = "-json"
	CountFlag         = "-count"
	DisableCacheCount = "1"

	// AllPackagesPattern is used when no packages are given.
	AllPackagesPattern = "./..."

	// StdinPath makes FileSource read the stream from stdin.
	StdinPath = "-"

	// maxEventLineSize bounds a single test2json line; large outputs from verbose tests
	// can exceed bufio's 64KiB default.
	maxEventLineSize = 4 * 1024 * 1024
)
