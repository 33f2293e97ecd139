package app

import (
	"os"
	"sync"
)

// TestModeEnv is set to "1" by the testing package so binaries and tests
// skip runtime side effects.
const TestModeEnv = "POSTBOARD_TEST_MODE"

var testMode = sync.OnceValue(func() bool {
	return os.Getenv(TestModeEnv) == "1"
})

// InTestMode reports whether the process runs under go test. The environment
// is read once, on first use.
func InTestMode() bool {
	return testMode()
}
