package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("AGENDA_TEST_MODE") == "" {
			_ = os.Setenv("AGENDA_TEST_MODE", "1")
		}
		if os.Getenv("JWT_ACCESS_SECRET") == "" {
			_ = os.Setenv("JWT_ACCESS_SECRET", "guard-access-secret")
		}
		if os.Getenv("JWT_REFRESH_SECRET") == "" {
			_ = os.Setenv("JWT_REFRESH_SECRET", "guard-refresh-secret")
		}
	})
}
