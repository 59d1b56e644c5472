//go:build unix

package fieldbus

import (
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLock_SerialisesHolders(t *testing.T) {
	path := filepath.Join(t.TempDir(), "outputs.txt")

	var (
		mu      sync.Mutex
		holders int
		maxSeen int
		wg      sync.WaitGroup
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l, err := Lock(path)
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			holders++
			if holders > maxSeen {
				maxSeen = holders
			}
			mu.Unlock()

			mu.Lock()
			holders--
			mu.Unlock()
			assert.NoError(t, l.Unlock())
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxSeen)
}
