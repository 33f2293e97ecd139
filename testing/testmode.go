// Package testing switches the application into test mode when blank
// imported from a _test.go file.
package testing

import (
	"os"
	"sync"
)

const testModeEnv = "POSTBOARD_TEST_MODE"

var once sync.Once

func ensureTestMode() {
	once.Do(func() {
		_ = os.Setenv(testModeEnv, "1")
		if os.Getenv("AUTH_SECRET") == "" {
			_ = os.Setenv("AUTH_SECRET", "test-secret-test-secret-test-secret!")
		}
	})
}

func init() {
	ensureTestMode()
}
