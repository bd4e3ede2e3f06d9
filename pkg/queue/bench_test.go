package queue

import (
	"fmt"
	"sync"
	"testing"
)

func BenchmarkInsertRemove(b *testing.B) {
	q, _ := New(1024)
	d := Descriptor{Task: Noop}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		q.Insert(d)
		q.Remove()
	}
}

func BenchmarkProducersConsumers(b *testing.B) {
	for _, tc := range []struct{ producers, consumers, capacity int }{
		{1, 1, 1},
		{3, 5, 10},
		{8, 8, 64},
	} {
		b.Run(fmt.Sprintf("p%d_c%d_cap%d", tc.producers, tc.consumers, tc.capacity), func(b *testing.B) {
			q, _ := New(tc.capacity)
			d := Descriptor{Task: Noop}

			var cwg sync.WaitGroup
			for c := 0; c < tc.consumers; c++ {
				cwg.Add(1)
				go func() {
					defer cwg.Done()
					for {
						if _, ok := q.Remove(); !ok {
							return
						}
					}
				}()
			}

			b.ResetTimer()
			var pwg sync.WaitGroup
			per := b.N / tc.producers
			for p := 0; p < tc.producers; p++ {
				n := per
				if p == 0 {
					n += b.N % tc.producers
				}
				pwg.Add(1)
				go func(n int) {
					defer pwg.Done()
					for i := 0; i < n; i++ {
						q.Insert(d)
					}
				}(n)
			}
			pwg.Wait()
			q.MarkFinished()
			cwg.Wait()
			b.StopTimer()
			q.Destroy()
		})
	}
}

func BenchmarkMetricsQueue(b *testing.B) {
	mq, _ := NewWithMetrics(1024, "bench")
	d := Descriptor{Task: Noop}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		mq.Insert(d)
		mq.Remove()
	}
}
