// Package guard flips the process into test mode when imported, so entrypoint
// tests never dial Postgres or Redis.
package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("REVTAX_TEST_MODE") == "" {
			_ = os.Setenv("REVTAX_TEST_MODE", "1")
		}
	})
}
