package pool

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTimerPool(t *testing.T) {
	t.Run("get and put", func(t *testing.T) {
		timer1 := GetTimer(time.Second)
		require.NotNil(t, timer1)

		PutTimer(timer1)

		timer2 := GetTimer(5 * time.Millisecond)
		require.NotNil(t, timer2)

		<-timer2.C
		PutTimer(timer2)
	})

	t.Run("reused active timer does not fire stale", func(t *testing.T) {
		timer1 := GetTimer(10 * time.Millisecond)
		time.Sleep(20 * time.Millisecond) // let it fire unreceived

		PutTimer(timer1)

		begin := time.Now()
		timer2 := GetTimer(50 * time.Millisecond)

		fired := <-timer2.C
		require.GreaterOrEqual(t, fired.Sub(begin), 40*time.Millisecond,
			"reused timer fired from its previous schedule")
		PutTimer(timer2)
	})

	t.Run("concurrent use", func(t *testing.T) {
		var wg sync.WaitGroup
		for i := 0; i < 100; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				timer := GetTimer(5 * time.Millisecond)
				defer PutTimer(timer)
				<-timer.C
			}()
		}
		wg.Wait()
	})
}